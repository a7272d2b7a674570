package resources

import (
	"math"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/rng"
)

const (
	// valueThreshold gates the combined noise * falloff value for every pattern.
	valueThreshold = 0.5
	// stripeThreshold gates the normalised wave for the stripes pattern.
	stripeThreshold = 0.7
)

// cell is what a pattern sees for one patch-local cell.
type cell struct {
	lx, ly int
	value  float64
	res    *Resource
	s      *rng.Stream
}

type patternFunc func(c cell) bool

var patterns = map[Pattern]patternFunc{
	PatternArea:    area,
	PatternDots:    dots,
	PatternStripes: stripes,
}

func area(c cell) bool {
	return c.value > valueThreshold
}

func densityGate(c cell) bool {
	return c.s.IntN(100) >= 100-c.res.Density
}

func dots(c cell) bool {
	// Draw first so every cell consumes the same amount of randomness.
	keep := densityGate(c)
	return c.value > valueThreshold && keep
}

func stripes(c cell) bool {
	keep := densityGate(c)
	w := c.res.Stripes
	x, y := float64(c.lx), float64(c.ly)
	xWobble := math.Sin(y*w.WobbleFrequency[0]) * w.WobbleStrength[0]
	yWobble := math.Sin(x*w.WobbleFrequency[1]) * w.WobbleStrength[1]
	wave := math.Sin((x+xWobble)*w.Frequency+(y+yWobble)*w.Frequency) * w.Amplitude
	wave = field.InverseLerp(-w.Amplitude, w.Amplitude, wave)
	return c.value > valueThreshold && wave > stripeThreshold && keep
}
