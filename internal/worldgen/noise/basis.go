package noise

import (
	perlin "github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"

	"terraforge.ai/internal/worldgen/issues"
)

// sampler is a single-octave coherent noise source in [-1,1].
// Implementations must be safe for concurrent Eval calls.
type sampler interface {
	Eval(x, y float64) float64
}

type perlinSampler struct{ p *perlin.Perlin }

// With n=1 go-perlin returns the raw basis value; octave summing is ours.
func (s perlinSampler) Eval(x, y float64) float64 { return s.p.Noise2D(x, y) }

type simplexSampler struct{ n opensimplex.Noise }

func (s simplexSampler) Eval(x, y float64) float64 { return s.n.Eval2(x, y) }

func newSampler(b Basis, seed int64) (sampler, error) {
	switch b {
	case BasisPerlin, "":
		return perlinSampler{p: perlin.NewPerlin(2, 2, 1, seed)}, nil
	case BasisSimplex:
		return simplexSampler{n: opensimplex.New(seed)}, nil
	}
	return nil, issues.Invalid(stage, "unknown basis %q", b)
}
