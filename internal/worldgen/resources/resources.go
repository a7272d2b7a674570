// Package resources scatters resource patches over cells whose biome a
// resource prefers, steering away from areas already crowded by earlier
// patches through a density accumulator.
package resources

import (
	"math"
	"sort"

	"terraforge.ai/internal/worldgen/biome"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/noise"
	"terraforge.ai/internal/worldgen/rng"
)

const stage = "resources"

type Params struct {
	Seed       int64        `yaml:"seed" json:"seed"`
	PatchNoise noise.Params `yaml:"patch_noise" json:"patch_noise"`
}

// Patch describes one placed patch.
type Patch struct {
	Resource int         `json:"resource"`
	Center   field.Point `json:"center"`
	Width    int         `json:"width"`
	Height   int         `json:"height"`
	Cells    int         `json:"cells"`
}

type Result struct {
	// Points carry the resource's catalog index as payload.
	Points  *field.PointSet
	Density *field.Scalar
	Patches []Patch
	Issues  []issues.Issue
}

// Place runs every resource in catalog order. Resource types share the
// density accumulator, so they are placed one after another.
func Place(width, height int, labels *field.Labels, biomes *biome.Catalog, catalog []Resource, p Params) (*Result, error) {
	if err := issues.CheckDims(stage, width, height); err != nil {
		return nil, err
	}
	if labels == nil || labels.Width != width || labels.Height != height {
		return nil, issues.Invalid(stage, "label field does not match %dx%d grid", width, height)
	}
	if biomes == nil {
		return nil, issues.Invalid(stage, "missing biome catalog")
	}
	if len(catalog) > math.MaxUint16 {
		return nil, issues.Invalid(stage, "too many resources (%d)", len(catalog))
	}
	needNoise := false
	for i, r := range catalog {
		if err := r.validate(i, biomes); err != nil {
			return nil, err
		}
		needNoise = needNoise || r.NumPatches > 0
	}
	if needNoise {
		if err := p.PatchNoise.Validate(); err != nil {
			return nil, err
		}
	}

	pl := &placer{
		p:       p,
		labels:  labels,
		density: field.NewScalar(width, height),
		out:     field.NewPointSet(),
		warn:    issues.NewList(stage),
	}
	res := &Result{Points: pl.out, Density: pl.density}
	for i := range catalog {
		r := &catalog[i]
		if r.NumPatches == 0 {
			continue
		}
		patches, err := pl.placeResource(i, r, r.preferred(biomes))
		if err != nil {
			return nil, err
		}
		res.Patches = append(res.Patches, patches...)
	}
	res.Issues = pl.warn.Items()
	return res, nil
}

type placer struct {
	p       Params
	labels  *field.Labels
	density *field.Scalar
	out     *field.PointSet
	warn    *issues.List
}

func (pl *placer) placeResource(ri int, r *Resource, pref []bool) ([]Patch, error) {
	cands := candidates(pl.labels, pref)
	if len(cands) == 0 {
		pl.warn.Degenerate("resource %q: no cell with a preferred biome", r.Name)
		return nil, nil
	}

	s := rng.New(rng.Derive(pl.p.Seed, int64(ri)))
	cum := make([]float64, len(cands))
	var out []Patch
	for i := 0; i < r.NumPatches; i++ {
		var total float64
		for j, c := range cands {
			total += 1 - pl.density.At(c.X, c.Y)
			cum[j] = total
		}
		if total <= 0 {
			pl.warn.Degenerate("resource %q: preferred cells saturated after %d of %d patches", r.Name, i, r.NumPatches)
			break
		}
		u := s.Range(0, total)
		k := sort.Search(len(cum), func(j int) bool { return cum[j] > u })
		if k == len(cum) {
			k = len(cum) - 1
		}
		center := cands[k]

		sw := int(math.Floor(r.SizeDistribution.Evaluate(s.Float64())))
		sh := int(math.Floor(r.SizeDistribution.Evaluate(s.Float64())))
		if sw <= 0 || sh <= 0 {
			pl.warn.Degenerate("resource %q: patch %d drew empty size %dx%d", r.Name, i, sw, sh)
			continue
		}

		pl.stamp(center, max(sw, sh))

		np := pl.p.PatchNoise
		np.Seed = rng.Derive(pl.p.Seed, int64(ri), int64(i))
		local, err := noise.Generate(sw, sh, np)
		if err != nil {
			return nil, err
		}
		n := pl.fillPatch(ri, r, pref, center, local, s)
		out = append(out, Patch{Resource: ri, Center: center, Width: sw, Height: sh, Cells: n})
	}
	return out, nil
}

// candidates lists preferred cells in row-major order. Rows are scanned in
// parallel bands and joined in band order.
func candidates(labels *field.Labels, pref []bool) []field.Point {
	w := labels.Width
	rows := make([][]field.Point, labels.Height)
	field.ParallelRows(labels.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < w; x++ {
				if prefers(pref, labels.Data[y*w+x]) {
					rows[y] = append(rows[y], field.Point{X: x, Y: y})
				}
			}
		}
	})
	var out []field.Point
	for _, r := range rows {
		out = append(out, r...)
	}
	return out
}

// stamp adds a linear radial bump to the density accumulator, clamped to [0,1].
func (pl *placer) stamp(c field.Point, radius int) {
	d := pl.density
	for y := max(0, c.Y-radius); y <= min(d.Height-1, c.Y+radius); y++ {
		for x := max(0, c.X-radius); x <= min(d.Width-1, c.X+radius); x++ {
			dist := math.Hypot(float64(x-c.X), float64(y-c.Y))
			falloff := field.Clamp01(1 - dist/float64(radius))
			d.Set(x, y, field.Clamp01(d.At(x, y)+falloff))
		}
	}
}

// fillPatch evaluates the resource pattern over the patch rectangle centred on
// c and adds the selected cells. Cells outside the grid are skipped.
func (pl *placer) fillPatch(ri int, r *Resource, pref []bool, c field.Point, local *field.Scalar, s *rng.Stream) int {
	sw, sh := local.Width, local.Height
	ox, oy := c.X-sw/2, c.Y-sh/2
	cx, cy := float64(sw/2), float64(sh/2)
	span := float64(max(sw, sh))
	fn := patterns[r.Pattern]

	added := 0
	for ly := 0; ly < sh; ly++ {
		for lx := 0; lx < sw; lx++ {
			gx, gy := ox+lx, oy+ly
			if !pl.labels.InBounds(gx, gy) {
				continue
			}
			dist := math.Hypot(float64(lx)-cx, float64(ly)-cy)
			v := local.At(lx, ly) * (1 - dist/span)
			keep := fn(cell{lx: lx, ly: ly, value: v, res: r, s: s})
			if keep && prefers(pref, pl.labels.At(gx, gy)) {
				if pl.out.Add(field.Point{X: gx, Y: gy}, uint16(ri)) {
					added++
				}
			}
		}
	}
	return added
}
