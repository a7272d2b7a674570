// Package rivers traces rivers from coastline cells across an attractiveness
// field derived from elevation and moisture.
package rivers

import (
	"math"

	"terraforge.ai/internal/worldgen/curve"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/rng"
)

const stage = "rivers"

// Payload marks carved river cells in the output point set.
const Payload uint16 = 1

const (
	elevationWeight = 0.8
	moistureWeight  = 0.2

	// Direction scores get a jitter in [jitterMin, 0) so equal cells do not
	// always break ties the same way.
	jitterMin = -0.01
)

type Params struct {
	NumRivers          int         `yaml:"num_rivers" json:"num_rivers"`
	Seed               int64       `yaml:"seed" json:"seed"`
	LengthDistribution curve.Curve `yaml:"length_distribution" json:"length_distribution"`
	SizeDistribution   curve.Curve `yaml:"size_distribution" json:"size_distribution"`
	RadiusDecayChance  float64     `yaml:"radius_decay_chance" json:"radius_decay_chance"`
	SearchRadius       int         `yaml:"search_radius" json:"search_radius"`

	// Optional tuning; zero values take the defaults below.
	CoastMin         float64 `yaml:"coast_min" json:"coast_min"`
	CoastMax         float64 `yaml:"coast_max" json:"coast_max"`
	MinRadius        int     `yaml:"min_radius" json:"min_radius"`
	StepSearchRadius int     `yaml:"step_search_radius" json:"step_search_radius"`
	MaxSteps         int     `yaml:"max_steps" json:"max_steps"`
}

const (
	DefaultCoastMin         = 0.54
	DefaultCoastMax         = 0.56
	DefaultMinRadius        = 3
	DefaultStepSearchRadius = 5
	DefaultMaxSteps         = 4096
)

func (p Params) withDefaults() Params {
	if p.CoastMin == 0 && p.CoastMax == 0 {
		p.CoastMin, p.CoastMax = DefaultCoastMin, DefaultCoastMax
	}
	if p.MinRadius <= 0 {
		p.MinRadius = DefaultMinRadius
	}
	if p.StepSearchRadius <= 0 {
		p.StepSearchRadius = DefaultStepSearchRadius
	}
	if p.MaxSteps <= 0 {
		p.MaxSteps = DefaultMaxSteps
	}
	return p
}

func (p Params) Validate() error {
	if p.NumRivers < 0 {
		return issues.Invalid(stage, "num_rivers must be >= 0 (got %d)", p.NumRivers)
	}
	if p.NumRivers > 0 && p.SearchRadius <= 0 {
		return issues.Invalid(stage, "search_radius must be >= 1 (got %d)", p.SearchRadius)
	}
	if p.CoastMin > p.CoastMax {
		return issues.Invalid(stage, "coast band [%g,%g] is inverted", p.CoastMin, p.CoastMax)
	}
	if err := p.LengthDistribution.Validate(); err != nil {
		return issues.Invalid(stage, "length_distribution: %v", err)
	}
	if err := p.SizeDistribution.Validate(); err != nil {
		return issues.Invalid(stage, "size_distribution: %v", err)
	}
	return nil
}

// Trace records how one river was walked.
type Trace struct {
	ID     int         `json:"id"`
	Origin field.Point `json:"origin"`
	Length float64     `json:"length"`
	Radius int         `json:"radius"`
	Steps  int         `json:"steps"`
	// Remaining holds remainingLength after every step.
	Remaining []float64 `json:"-"`
	Stalled   bool      `json:"stalled"`
}

type Result struct {
	Points *field.PointSet
	// Attractiveness is the field after all paths were suppressed into it.
	Attractiveness *field.Scalar
	Traces         []Trace
	Issues         []issues.Issue
}

// Attractiveness combines elevation and moisture into the field rivers follow.
func Attractiveness(elevation, moisture *field.Scalar) *field.Scalar {
	out := field.NewScalar(elevation.Width, elevation.Height)
	for i := range out.Data {
		out.Data[i] = elevationWeight*elevation.Data[i] + moistureWeight*moisture.Data[i]
	}
	return out
}

// Generate traces p.NumRivers rivers. Rivers that cannot start (no coastline
// cell) count towards NumRivers; they are reported, not retried, because the
// candidate list already holds every qualifying cell.
func Generate(width, height int, p Params, elevation, moisture *field.Scalar) (*Result, error) {
	if err := issues.CheckDims(stage, width, height); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if !matches(elevation, width, height) {
		return nil, issues.Invalid(stage, "elevation field does not match %dx%d grid", width, height)
	}
	if !matches(moisture, width, height) {
		return nil, issues.Invalid(stage, "moisture field does not match %dx%d grid", width, height)
	}
	p = p.withDefaults()

	t := &tracer{
		p:      p,
		s:      rng.New(p.Seed),
		attr:   Attractiveness(elevation, moisture),
		out:    field.NewPointSet(),
		warn:   issues.NewList(stage),
		width:  width,
		height: height,
	}
	res := &Result{Points: t.out, Attractiveness: t.attr}
	if p.NumRivers == 0 {
		return res, nil
	}

	origins := coastline(elevation, p.CoastMin, p.CoastMax)
	if len(origins) == 0 {
		t.warn.Degenerate("no cell with elevation in [%g,%g]; skipping %d rivers", p.CoastMin, p.CoastMax, p.NumRivers)
		res.Issues = t.warn.Items()
		return res, nil
	}

	for i := 0; i < p.NumRivers; i++ {
		origin := origins[t.s.IntN(len(origins))]
		u := t.s.Float64()
		w := walker{
			id:        i,
			pos:       origin,
			remaining: math.Round(p.LengthDistribution.Evaluate(u)),
			radius:    max(0, int(math.Round(p.SizeDistribution.Evaluate(u)))),
		}
		w.dir = t.direction(origin, p.SearchRadius)
		res.Traces = append(res.Traces, t.run(&w))
	}
	res.Issues = t.warn.Items()
	return res, nil
}

func matches(f *field.Scalar, width, height int) bool {
	return f != nil && f.Width == width && f.Height == height
}

func coastline(elevation *field.Scalar, lo, hi float64) []field.Point {
	var out []field.Point
	for y := 0; y < elevation.Height; y++ {
		for x := 0; x < elevation.Width; x++ {
			if v := elevation.At(x, y); v >= lo && v <= hi {
				out = append(out, field.Point{X: x, Y: y})
			}
		}
	}
	return out
}
