package tessellation

import (
	"math"
	"sort"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/rng"
)

func scatterUniform(s *rng.Stream, width, height, n int) []Vec2 {
	out := make([]Vec2, n)
	for i := range out {
		out[i] = Vec2{X: s.Range(0, float64(width)), Y: s.Range(0, float64(height))}
	}
	return out
}

// scatterWeighted draws n cells by inverse-CDF over the row-major cumulative
// weight. Negative and NaN weights count as zero. Returns nil when the total
// weight is zero so the caller can fall back to uniform scatter.
func scatterWeighted(s *rng.Stream, w *field.Scalar, n int, warn *issues.List) []Vec2 {
	cum := make([]float64, len(w.Data))
	var total float64
	for i, v := range w.Data {
		if v > 0 && !math.IsInf(v, 0) {
			total += v
		}
		cum[i] = total
	}
	if total <= 0 {
		warn.Degenerate("weight field sums to zero; scattering %d seeds uniformly", n)
		return nil
	}
	out := make([]Vec2, n)
	for i := range out {
		r := s.Range(0, total)
		c := sort.Search(len(cum), func(j int) bool { return cum[j] > r })
		if c == len(cum) {
			c = len(cum) - 1
		}
		out[i] = Vec2{X: float64(c % w.Width), Y: float64(c / w.Width)}
	}
	return out
}
