// Package biome classifies cells into labelled biomes by nearest match over
// (temperature, moisture, elevation, vegetation).
package biome

import (
	"math"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
)

const stage = "biome"

// Unclassified marks a cell no label accepts.
const Unclassified uint16 = 0xFFFF

var UnclassifiedColor = field.Color{R: 0xff, A: 0xff}

// Range is an inclusive [min,max] interval.
type Range [2]float64

func (r Range) Contains(v float64) bool { return v >= r[0] && v <= r[1] }

func (r Range) Mid() float64 { return (r[0] + r[1]) / 2 }

var axisNames = [4]string{"temperature", "moisture", "elevation", "vegetation"}

type Label struct {
	Name        string      `json:"name"`
	Color       field.Color `json:"color"`
	Temperature Range       `json:"temperature"`
	Moisture    Range       `json:"moisture"`
	Elevation   Range       `json:"elevation"`
	Vegetation  Range       `json:"vegetation"`
	// Rarity weighs deviation on temperature, moisture and vegetation.
	// Elevation deviation is unweighted. Non-positive means 1.
	Rarity float64 `json:"rarity"`
}

func (l Label) InRange(t, m, e, v float64) bool {
	return l.Temperature.Contains(t) && l.Moisture.Contains(m) &&
		l.Elevation.Contains(e) && l.Vegetation.Contains(v)
}

func (l Label) Score(t, m, e, v float64) float64 {
	w := l.Rarity
	if w <= 0 {
		w = 1
	}
	dev := math.Abs(t-l.Temperature.Mid()) + math.Abs(m-l.Moisture.Mid()) + math.Abs(v-l.Vegetation.Mid())
	return w*dev + math.Abs(e-l.Elevation.Mid())
}

// Catalog is read-only after construction. Label ids are catalog positions.
type Catalog struct {
	labels []Label
	byName map[string]uint16
}

func NewCatalog(labels []Label) (*Catalog, error) {
	if len(labels) >= int(Unclassified) {
		return nil, issues.Invalid(stage, "too many labels (%d)", len(labels))
	}
	c := &Catalog{labels: append([]Label(nil), labels...), byName: map[string]uint16{}}
	for i, l := range c.labels {
		if l.Name == "" {
			return nil, issues.Invalid(stage, "label %d has no name", i)
		}
		if _, dup := c.byName[l.Name]; dup {
			return nil, issues.Invalid(stage, "duplicate label %q", l.Name)
		}
		for axis, r := range []Range{l.Temperature, l.Moisture, l.Elevation, l.Vegetation} {
			if r[0] > r[1] {
				return nil, issues.Invalid(stage, "label %q: %s range [%g,%g] is inverted", l.Name, axisNames[axis], r[0], r[1])
			}
		}
		c.byName[l.Name] = uint16(i)
	}
	return c, nil
}

func (c *Catalog) Len() int { return len(c.labels) }

func (c *Catalog) Labels() []Label { return c.labels }

func (c *Catalog) ID(name string) (uint16, bool) {
	id, ok := c.byName[name]
	return id, ok
}

func (c *Catalog) Label(id uint16) (Label, bool) {
	if int(id) >= len(c.labels) {
		return Label{}, false
	}
	return c.labels[id], true
}

func (c *Catalog) Color(id uint16) field.Color {
	if l, ok := c.Label(id); ok {
		return l.Color
	}
	return UnclassifiedColor
}

// Classify returns the in-range label with the lowest score; ties keep the
// earlier label. No match yields Unclassified.
func (c *Catalog) Classify(t, m, e, v float64) uint16 {
	best := Unclassified
	bestScore := math.Inf(1)
	for i, l := range c.labels {
		if !l.InRange(t, m, e, v) {
			continue
		}
		if s := l.Score(t, m, e, v); s < bestScore {
			bestScore = s
			best = uint16(i)
		}
	}
	return best
}

// ClassifyField classifies every cell. All four fields must share dimensions.
func (c *Catalog) ClassifyField(temperature, moisture, elevation, vegetation *field.Scalar) (*field.Labels, error) {
	if elevation == nil {
		return nil, issues.Invalid(stage, "missing elevation field")
	}
	w, h := elevation.Width, elevation.Height
	if err := issues.CheckDims(stage, w, h); err != nil {
		return nil, err
	}
	for _, f := range []struct {
		name string
		f    *field.Scalar
	}{{"temperature", temperature}, {"moisture", moisture}, {"vegetation", vegetation}} {
		if f.f == nil || f.f.Width != w || f.f.Height != h {
			return nil, issues.Invalid(stage, "%s field does not match %dx%d", f.name, w, h)
		}
	}

	out := field.NewLabels(w, h)
	field.ParallelRows(h, func(y0, y1 int) {
		for i := y0 * w; i < y1*w; i++ {
			out.Data[i] = c.Classify(temperature.Data[i], moisture.Data[i], elevation.Data[i], vegetation.Data[i])
		}
	})
	return out, nil
}

