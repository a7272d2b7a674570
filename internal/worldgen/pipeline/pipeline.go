// Package pipeline composes the generation stages into a world:
// noise layers, plate-adjusted elevation, island falloff, rivers, biome
// classification and resource placement, in that order.
package pipeline

import (
	"fmt"
	"log"
	"math"
	"time"

	"golang.org/x/sync/errgroup"

	"terraforge.ai/internal/config"
	"terraforge.ai/internal/worldgen/biome"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/noise"
	"terraforge.ai/internal/worldgen/resources"
	"terraforge.ai/internal/worldgen/rivers"
	"terraforge.ai/internal/worldgen/tessellation"
)

const stage = "pipeline"

// Stage names as they appear in reports, logs and the run index.
const (
	StageNoise        = "noise"
	StageTessellation = "tessellation"
	StageIsland       = "island"
	StageRivers       = "rivers"
	StageBiomes       = "biomes"
	StageResources    = "resources"
)

// Layer names.
const (
	LayerElevation   = "elevation"
	LayerMoisture    = "moisture"
	LayerTemperature = "temperature"
	LayerVegetation  = "vegetation"
)

type Config struct {
	config.Config

	Biomes       *biome.Catalog
	ResourceDefs []resources.Resource
}

// StageReport is one timed stage. Layer and Stats are set for stages that
// finish a scalar layer.
type StageReport struct {
	Stage    string        `json:"stage"`
	Layer    string        `json:"layer,omitempty"`
	Duration time.Duration `json:"duration_ns"`
	Stats    *field.Stats  `json:"stats,omitempty"`
}

type Swatch struct {
	Name  string      `json:"name"`
	Color field.Color `json:"color"`
}

type World struct {
	Width  int
	Height int
	Seed   int64

	Elevation   *field.Scalar
	Moisture    *field.Scalar
	Temperature *field.Scalar
	Vegetation  *field.Scalar

	// Plates is nil when tessellation is disabled.
	Plates *tessellation.Result
	Biomes *field.Labels

	// Palettes are indexed by biome label id and resource payload.
	BiomePalette  []Swatch
	ResourceKinds []Swatch

	Rivers      *field.PointSet
	RiverTraces []rivers.Trace
	Resources   *field.PointSet
	Patches     []resources.Patch

	Stages []StageReport
	Issues []issues.Issue
}

// Layer returns a scalar layer by name.
func (w *World) Layer(name string) (*field.Scalar, bool) {
	switch name {
	case LayerElevation:
		return w.Elevation, true
	case LayerMoisture:
		return w.Moisture, true
	case LayerTemperature:
		return w.Temperature, true
	case LayerVegetation:
		return w.Vegetation, true
	}
	return nil, false
}

func ScalarLayers() []string {
	return []string{LayerElevation, LayerMoisture, LayerTemperature, LayerVegetation}
}

// Generate runs every stage. Only invalid parameters fail; recoverable
// conditions are collected on World.Issues and logged.
func Generate(cfg Config, logger *log.Logger) (*World, error) {
	if err := issues.CheckDims(stage, cfg.Width, cfg.Height); err != nil {
		return nil, err
	}
	if cfg.Biomes == nil {
		return nil, issues.Invalid(stage, "missing biome catalog")
	}
	if err := cfg.Config.Validate(); err != nil {
		return nil, issues.Invalid(stage, "%v", err)
	}

	r := &run{cfg: cfg, logger: logger}
	w := &World{Width: cfg.Width, Height: cfg.Height, Seed: cfg.Seed}
	for _, l := range cfg.Biomes.Labels() {
		w.BiomePalette = append(w.BiomePalette, Swatch{Name: l.Name, Color: l.Color})
	}
	for _, res := range cfg.ResourceDefs {
		w.ResourceKinds = append(w.ResourceKinds, Swatch{Name: res.Name, Color: res.Color})
	}
	steps := []func(*World) error{
		r.noiseLayers,
		r.plates,
		r.island,
		r.rivers,
		r.biomes,
		r.resources,
	}
	for _, step := range steps {
		if err := step(w); err != nil {
			return nil, err
		}
	}
	w.Stages = r.reports
	w.Issues = r.issues
	for _, is := range r.issues {
		r.logf("issue %s", is)
	}
	r.logf("world %dx%d seed=%d digest=%s issues=%d", w.Width, w.Height, w.Seed, w.Digest(), len(w.Issues))
	return w, nil
}

type run struct {
	cfg     Config
	logger  *log.Logger
	reports []StageReport
	issues  []issues.Issue
}

func (r *run) logf(format string, args ...any) {
	if r.logger != nil {
		r.logger.Printf(format, args...)
	}
}

func (r *run) report(stage, layer string, start time.Time, f *field.Scalar) {
	rep := StageReport{Stage: stage, Layer: layer, Duration: time.Since(start)}
	if f != nil {
		st := f.Stats()
		rep.Stats = &st
		r.logf("stage=%s layer=%s took=%s min=%.4f max=%.4f mean=%.4f", stage, layer, rep.Duration, st.Min, st.Max, st.Mean)
	} else {
		r.logf("stage=%s took=%s", stage, rep.Duration)
	}
	r.reports = append(r.reports, rep)
}

// noiseLayers generates the four layers concurrently; each is independent
// and deterministic on its own parameters.
func (r *run) noiseLayers(w *World) error {
	c := r.cfg
	specs := []struct {
		name string
		spec config.LayerSpec
		dst  **field.Scalar
	}{
		{LayerElevation, c.Layers.Elevation, &w.Elevation},
		{LayerMoisture, c.Layers.Moisture, &w.Moisture},
		{LayerTemperature, c.Layers.Temperature, &w.Temperature},
		{LayerVegetation, c.Layers.Vegetation, &w.Vegetation},
	}
	took := make([]time.Duration, len(specs))
	var g errgroup.Group
	for i, s := range specs {
		i, s := i, s
		g.Go(func() error {
			start := time.Now()
			f, err := noise.Generate(c.Width, c.Height, c.LayerParams(s.spec))
			if err != nil {
				return fmt.Errorf("layer %s: %w", s.name, err)
			}
			*s.dst = f
			took[i] = time.Since(start)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	for i, s := range specs {
		// Moisture, temperature and vegetation are final here; elevation is
		// reported again after each stage that reshapes it.
		st := (*s.dst).Stats()
		r.reports = append(r.reports, StageReport{Stage: StageNoise, Layer: s.name, Duration: took[i], Stats: &st})
		r.logf("stage=%s layer=%s took=%s min=%.4f max=%.4f mean=%.4f", StageNoise, s.name, took[i], st.Min, st.Max, st.Mean)
	}
	return nil
}

func (r *run) plates(w *World) error {
	t := r.cfg.Tessellation
	if t.NumRegions == 0 {
		return nil
	}
	start := time.Now()
	var weights *field.Scalar
	if t.WeightByElevation {
		weights = w.Elevation
	}
	res, err := tessellation.Generate(w.Width, w.Height, r.cfg.TessellationParams(), weights)
	if err != nil {
		return err
	}
	r.issues = append(r.issues, res.Issues...)
	w.Plates = res
	BlendPlates(w.Elevation, res.Field, t.Influence)
	r.report(StageTessellation, LayerElevation, start, w.Elevation)
	return nil
}

// BlendPlates sets elevation to clamp01((1-k)*elevation + k*plates) in place.
func BlendPlates(elevation, plates *field.Scalar, k float64) {
	if k == 0 {
		return
	}
	for i, v := range elevation.Data {
		elevation.Data[i] = field.Clamp01((1-k)*v + k*plates.Data[i])
	}
}

func (r *run) island(w *World) error {
	if r.cfg.IslandSize == 0 {
		return nil
	}
	start := time.Now()
	IslandFalloff(w.Elevation, r.cfg.IslandSize)
	r.report(StageIsland, LayerElevation, start, w.Elevation)
	return nil
}

// IslandFalloff scales elevation down linearly beyond size*width/2 from the
// grid centre, reaching zero at twice that distance. The centre is the
// geometric one (width/2, height/2 in cell units), so a one-cell-wide strip
// keeps its middle rows.
func IslandFalloff(elevation *field.Scalar, size float64) {
	cx, cy := float64(elevation.Width)/2, float64(elevation.Height)/2
	maxDist := cx * size
	if maxDist <= 0 {
		elevation.Fill(0)
		return
	}
	field.ParallelRows(elevation.Height, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			for x := 0; x < elevation.Width; x++ {
				d := math.Hypot(cx-float64(x), cy-float64(y))
				if d <= maxDist {
					continue
				}
				i := elevation.Index(x, y)
				elevation.Data[i] = field.Clamp01(elevation.Data[i] * (1 - (d-maxDist)/maxDist))
			}
		}
	})
}

func (r *run) rivers(w *World) error {
	start := time.Now()
	res, err := rivers.Generate(w.Width, w.Height, r.cfg.RiverParams(), w.Elevation, w.Moisture)
	if err != nil {
		return err
	}
	r.issues = append(r.issues, res.Issues...)
	w.Rivers = res.Points
	w.RiverTraces = res.Traces
	Carve(w.Elevation, w.Rivers, r.cfg.Rivers.CarveElevation)
	r.report(StageRivers, LayerElevation, start, w.Elevation)
	r.logf("stage=%s rivers=%d cells=%d", StageRivers, len(res.Traces), res.Points.Len())
	return nil
}

// Carve caps elevation at level on every point of the set.
func Carve(elevation *field.Scalar, points *field.PointSet, level float64) {
	for _, e := range points.Entries() {
		i := elevation.Index(e.Pos.X, e.Pos.Y)
		elevation.Data[i] = math.Min(elevation.Data[i], level)
	}
}

func (r *run) biomes(w *World) error {
	start := time.Now()
	labels, err := r.cfg.Biomes.ClassifyField(w.Temperature, w.Moisture, w.Elevation, w.Vegetation)
	if err != nil {
		return err
	}
	w.Biomes = labels
	if n := labels.Histogram()[biome.Unclassified]; n > 0 {
		warn := issues.NewList(StageBiomes)
		warn.Degenerate("%d cells matched no biome label", n)
		r.issues = append(r.issues, warn.Items()...)
	}
	r.report(StageBiomes, "", start, nil)
	return nil
}

func (r *run) resources(w *World) error {
	start := time.Now()
	res, err := resources.Place(w.Width, w.Height, w.Biomes, r.cfg.Biomes, r.cfg.ResourceDefs, resources.Params{
		Seed:       r.cfg.ResourceSeed(),
		PatchNoise: r.cfg.Config.Resources.PatchNoise,
	})
	if err != nil {
		return err
	}
	r.issues = append(r.issues, res.Issues...)
	w.Resources = res.Points
	w.Patches = res.Patches
	r.report(StageResources, "", start, nil)
	r.logf("stage=%s patches=%d cells=%d", StageResources, len(res.Patches), res.Points.Len())
	return nil
}
