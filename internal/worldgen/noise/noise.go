// Package noise synthesises fractal (multi-octave) coherent noise fields.
//
// Each octave i samples the basis at (x/scale*lacunarity^i + off_i,
// y/scale*lacunarity^i + off_i) with amplitude persistence^i. Octave offsets
// come from a stream seeded by Params.Seed, so a field is fully determined by
// (Params, width, height). Basis samples are taken in their native [-1,1]
// convention and normalised afterwards according to Params.Normalize.
package noise

import (
	"fmt"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/rng"
)

const stage = "noise"

const (
	minScale = 1e-4

	// Octave offsets are drawn from [0, offsetSpan) so sample coordinates stay
	// positive for non-negative user offsets.
	offsetSpan = 100000
)

type NormalizeMode string

const (
	NormalizeLocal  NormalizeMode = "local"
	NormalizeGlobal NormalizeMode = "global"
	NormalizeNone   NormalizeMode = "none"
)

type Basis string

const (
	BasisPerlin  Basis = "perlin"
	BasisSimplex Basis = "simplex"
)

type Params struct {
	Scale       float64       `yaml:"scale" json:"scale"`
	Octaves     int           `yaml:"octaves" json:"octaves"`
	Persistence float64       `yaml:"persistence" json:"persistence"`
	Lacunarity  float64       `yaml:"lacunarity" json:"lacunarity"`
	Seed        int64         `yaml:"seed" json:"seed"`
	OffsetX     float64       `yaml:"offset_x" json:"offset_x"`
	OffsetY     float64       `yaml:"offset_y" json:"offset_y"`
	Normalize   NormalizeMode `yaml:"normalize" json:"normalize"`
	Basis       Basis         `yaml:"basis" json:"basis"`
}

// Coerced returns a copy with out-of-range scalars replaced by usable values.
// Octave count is not touched; it is validated instead.
func (p Params) Coerced() Params {
	if p.Scale <= 0 {
		p.Scale = minScale
	}
	if p.Lacunarity <= 0 {
		p.Lacunarity = 1
	}
	if p.Persistence < 0 {
		p.Persistence = 0
	}
	if p.Persistence > 1 {
		p.Persistence = 1
	}
	if p.Normalize == "" {
		p.Normalize = NormalizeLocal
	}
	if p.Basis == "" {
		p.Basis = BasisPerlin
	}
	return p
}

func (p Params) Validate() error {
	if p.Octaves <= 0 {
		return issues.Invalid(stage, "octaves must be >= 1 (got %d)", p.Octaves)
	}
	switch p.Normalize {
	case "", NormalizeLocal, NormalizeGlobal, NormalizeNone:
	default:
		return issues.Invalid(stage, "unknown normalize mode %q", p.Normalize)
	}
	switch p.Basis {
	case "", BasisPerlin, BasisSimplex:
	default:
		return issues.Invalid(stage, "unknown basis %q", p.Basis)
	}
	return nil
}

// MaxAmplitude is the largest possible |raw value|: sum of persistence^i.
func (p Params) MaxAmplitude() float64 {
	var sum float64
	amp := 1.0
	for i := 0; i < p.Octaves; i++ {
		sum += amp
		amp *= p.Persistence
	}
	return sum
}

// Generate returns a width x height field.
func Generate(width, height int, p Params) (*field.Scalar, error) {
	if err := issues.CheckDims(stage, width, height); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.Coerced()

	src, err := newSampler(p.Basis, p.Seed)
	if err != nil {
		return nil, err
	}
	offsets := octaveOffsets(p)

	out := field.NewScalar(width, height)
	field.ParallelRows(height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			row := out.Data[y*width : (y+1)*width]
			for x := range row {
				row[x] = fractal(src, float64(x), float64(y), p, offsets)
			}
		}
	})

	normalize(out, p)
	return out, nil
}

type offset struct{ x, y float64 }

func octaveOffsets(p Params) []offset {
	s := rng.New(p.Seed)
	out := make([]offset, p.Octaves)
	for i := range out {
		out[i] = offset{
			x: s.Range(0, offsetSpan) + p.OffsetX,
			y: s.Range(0, offsetSpan) + p.OffsetY,
		}
	}
	return out
}

func fractal(src sampler, x, y float64, p Params, offsets []offset) float64 {
	amplitude := 1.0
	frequency := 1.0
	var h float64
	for _, o := range offsets {
		sx := x/p.Scale*frequency + o.x
		sy := y/p.Scale*frequency + o.y
		h += src.Eval(sx, sy) * amplitude
		amplitude *= p.Persistence
		frequency *= p.Lacunarity
	}
	return h
}

func normalize(f *field.Scalar, p Params) {
	switch p.Normalize {
	case NormalizeNone:
		return
	case NormalizeGlobal:
		maxAmp := p.MaxAmplitude()
		for i, v := range f.Data {
			f.Data[i] = field.Clamp01((v/maxAmp + 1) / 2)
		}
	default:
		st := f.Stats()
		for i, v := range f.Data {
			f.Data[i] = field.InverseLerp(st.Min, st.Max, v)
		}
	}
}

// String is used in log lines.
func (p Params) String() string {
	return fmt.Sprintf("basis=%s scale=%g octaves=%d persistence=%g lacunarity=%g seed=%d normalize=%s",
		p.Basis, p.Scale, p.Octaves, p.Persistence, p.Lacunarity, p.Seed, p.Normalize)
}
