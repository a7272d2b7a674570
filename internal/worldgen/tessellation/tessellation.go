// Package tessellation partitions a grid into weighted Voronoi regions
// ("plates") and derives a smoothed per-region gradient field from them.
//
// Steps: scatter seeds, assign every cell to its nearest seed through a
// bucket index, measure each region, recentre once on the centroid of its
// cells, shade each cell by its normalised distance to the centre, then box
// blur the shading with a summed-area table.
package tessellation

import (
	"math"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/rng"
)

const stage = "tessellation"

type Params struct {
	NumRegions      int   `yaml:"num_regions" json:"num_regions"`
	Seed            int64 `yaml:"seed" json:"seed"`
	SmoothingRadius int   `yaml:"smoothing_radius" json:"smoothing_radius"`
}

type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Dist(x, y float64) float64 {
	dx := x - v.X
	dy := y - v.Y
	return math.Sqrt(dx*dx + dy*dy)
}

type Region struct {
	// Seed is the scattered position; Center starts equal to it and moves to
	// the centroid of the assigned cells after recentering.
	Seed        Vec2    `json:"seed"`
	Center      Vec2    `json:"center"`
	MaxDistance float64 `json:"max_distance"`
	Depressed   bool    `json:"depressed"`
	Cells       int     `json:"cells"`
}

type Result struct {
	Field     *field.Scalar
	Gradient  *field.Scalar
	RegionMap *field.Regions
	Regions   []Region
	Issues    []issues.Issue
}

// Generate tessellates a width x height grid. weights may be nil; when given
// it must match the grid and biases seed placement towards heavier cells.
func Generate(width, height int, p Params, weights *field.Scalar) (*Result, error) {
	if err := issues.CheckDims(stage, width, height); err != nil {
		return nil, err
	}
	if p.NumRegions <= 0 {
		return nil, issues.Invalid(stage, "num_regions must be >= 1 (got %d)", p.NumRegions)
	}
	if weights != nil && (weights.Width != width || weights.Height != height) {
		return nil, issues.Invalid(stage, "weight field is %dx%d, grid is %dx%d",
			weights.Width, weights.Height, width, height)
	}
	radius := p.SmoothingRadius
	if radius < 0 {
		radius = 0
	}

	warn := issues.NewList(stage)
	s := rng.New(p.Seed)

	var seeds []Vec2
	if weights != nil {
		seeds = scatterWeighted(s, weights, p.NumRegions, warn)
	}
	if seeds == nil {
		seeds = scatterUniform(s, width, height, p.NumRegions)
	}

	regions := make([]Region, len(seeds))
	for i, sp := range seeds {
		regions[i] = Region{Seed: sp, Center: sp, Depressed: isDepressed(sp, width, height)}
	}

	regionMap := assign(width, height, seeds)
	measure(regionMap, regions)
	recenter(regionMap, regions, warn)

	grad := gradients(regionMap, regions)
	return &Result{
		Field:     smooth(grad, radius),
		Gradient:  grad,
		RegionMap: regionMap,
		Regions:   regions,
		Issues:    warn.Items(),
	}, nil
}

// isDepressed flags seeds outside the disc of radius max(w,h)/2 around the
// grid centre.
func isDepressed(p Vec2, width, height int) bool {
	cx := float64(width) / 2
	cy := float64(height) / 2
	limit := float64(max(width, height)) / 2
	return p.Dist(cx, cy) > limit
}

func assign(width, height int, seeds []Vec2) *field.Regions {
	idx := newBucketIndex(seeds, width, height)
	out := field.NewRegions(width, height)
	field.ParallelRows(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < width; x++ {
				out.Data[y*width+x] = int32(idx.nearest(float64(x), float64(y)))
			}
		}
	})
	return out
}

// measure computes the cell count and the farthest assigned cell from each seed.
func measure(m *field.Regions, regions []Region) {
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r := &regions[m.Data[y*m.Width+x]]
			r.Cells++
			if d := r.Seed.Dist(float64(x), float64(y)); d > r.MaxDistance {
				r.MaxDistance = d
			}
		}
	}
}

// recenter moves each non-empty region to the centroid of its cells and
// recomputes MaxDistance against it. Empty regions keep their seed.
func recenter(m *field.Regions, regions []Region, warn *issues.List) {
	sx := make([]float64, len(regions))
	sy := make([]float64, len(regions))
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			i := m.Data[y*m.Width+x]
			sx[i] += float64(x)
			sy[i] += float64(y)
		}
	}
	for i := range regions {
		r := &regions[i]
		if r.Cells == 0 {
			warn.Degenerate("region %d has no cells; keeping seed (%.2f,%.2f)", i, r.Seed.X, r.Seed.Y)
			continue
		}
		n := float64(r.Cells)
		r.Center = Vec2{X: sx[i] / n, Y: sy[i] / n}
		r.MaxDistance = 0
	}
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			r := &regions[m.Data[y*m.Width+x]]
			if d := r.Center.Dist(float64(x), float64(y)); d > r.MaxDistance {
				r.MaxDistance = d
			}
		}
	}
}

// Shade is the per-cell gradient value for a cell at normalised distance n
// from its region centre.
func Shade(depressed bool, n float64) float64 {
	if depressed {
		return 0.5 * n
	}
	return 0.5 + 0.25*(1-n)
}

func gradients(m *field.Regions, regions []Region) *field.Scalar {
	out := field.NewScalar(m.Width, m.Height)
	field.ParallelRows(m.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < m.Width; x++ {
				r := regions[m.Data[y*m.Width+x]]
				n := 0.0
				if r.MaxDistance > 0 {
					n = r.Center.Dist(float64(x), float64(y)) / r.MaxDistance
				}
				out.Data[y*m.Width+x] = Shade(r.Depressed, n)
			}
		}
	})
	return out
}
