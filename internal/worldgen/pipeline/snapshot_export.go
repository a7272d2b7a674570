package pipeline

import (
	"fmt"
	"time"

	"terraforge.ai/internal/persistence/snapshot"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/resources"
	"terraforge.ai/internal/worldgen/rivers"
	"terraforge.ai/internal/worldgen/tessellation"
)

// ExportSnapshot copies the world into the snapshot model. catalogDigests
// may be nil.
func (w *World) ExportSnapshot(configDigest string, catalogDigests map[string]string) snapshot.WorldV1 {
	s := snapshot.WorldV1{
		Header: snapshot.Header{
			Version: snapshot.Version,
			Seed:    w.Seed,
			Width:   w.Width,
			Height:  w.Height,
			Digest:  w.Digest(),
		},
		ConfigDigest:   configDigest,
		CatalogDigests: catalogDigests,
		Elevation:      w.Elevation.Data,
		Moisture:       w.Moisture.Data,
		Temperature:    w.Temperature.Data,
		Vegetation:     w.Vegetation.Data,
		Biomes:         w.Biomes.Data,
		BiomePalette:   exportSwatches(w.BiomePalette),
		ResourceKinds:  exportSwatches(w.ResourceKinds),
		Rivers:         exportPoints(w.Rivers),
		Resources:      exportPoints(w.Resources),
	}
	if w.Plates != nil {
		if w.Plates.RegionMap != nil {
			s.RegionMap = w.Plates.RegionMap.Data
		}
		for _, r := range w.Plates.Regions {
			s.Plates = append(s.Plates, snapshot.PlateV1{
				SeedX: r.Seed.X, SeedY: r.Seed.Y,
				CenterX: r.Center.X, CenterY: r.Center.Y,
				MaxDistance: r.MaxDistance,
				Depressed:   r.Depressed,
				Cells:       r.Cells,
			})
		}
	}
	for _, t := range w.RiverTraces {
		s.RiverTraces = append(s.RiverTraces, snapshot.TraceV1{
			ID: t.ID, X: t.Origin.X, Y: t.Origin.Y,
			Length: t.Length, Radius: t.Radius, Steps: t.Steps, Stalled: t.Stalled,
		})
	}
	for _, p := range w.Patches {
		s.Patches = append(s.Patches, snapshot.PatchV1{
			Resource: p.Resource, X: p.Center.X, Y: p.Center.Y,
			Width: p.Width, Height: p.Height, Cells: p.Cells,
		})
	}
	for _, st := range w.Stages {
		row := snapshot.StageV1{Stage: st.Stage, Layer: st.Layer, DurationNs: int64(st.Duration)}
		if st.Stats != nil {
			row.HasStats = true
			row.Min, row.Max, row.Mean = st.Stats.Min, st.Stats.Max, st.Stats.Mean
		}
		s.Stages = append(s.Stages, row)
	}
	for _, is := range w.Issues {
		s.Issues = append(s.Issues, snapshot.IssueV1{Stage: is.Stage, Code: is.Code, Message: is.Message})
	}
	return s
}

// ImportSnapshot rebuilds a world and checks it against the recorded digest.
func ImportSnapshot(s snapshot.WorldV1) (*World, error) {
	h := s.Header
	if h.Width <= 0 || h.Height <= 0 {
		return nil, fmt.Errorf("snapshot: bad dimensions %dx%d", h.Width, h.Height)
	}
	n := h.Width * h.Height
	w := &World{Width: h.Width, Height: h.Height, Seed: h.Seed}

	var err error
	if w.Elevation, err = importScalar(LayerElevation, s.Elevation, h.Width, h.Height); err != nil {
		return nil, err
	}
	if w.Moisture, err = importScalar(LayerMoisture, s.Moisture, h.Width, h.Height); err != nil {
		return nil, err
	}
	if w.Temperature, err = importScalar(LayerTemperature, s.Temperature, h.Width, h.Height); err != nil {
		return nil, err
	}
	if w.Vegetation, err = importScalar(LayerVegetation, s.Vegetation, h.Width, h.Height); err != nil {
		return nil, err
	}
	if len(s.Biomes) != n {
		return nil, fmt.Errorf("snapshot: biomes has %d cells, want %d", len(s.Biomes), n)
	}
	w.Biomes = &field.Labels{Width: h.Width, Height: h.Height, Data: s.Biomes}
	if w.BiomePalette, err = importSwatches(s.BiomePalette); err != nil {
		return nil, err
	}
	if w.ResourceKinds, err = importSwatches(s.ResourceKinds); err != nil {
		return nil, err
	}
	w.Rivers = importPoints(s.Rivers)
	w.Resources = importPoints(s.Resources)

	if len(s.Plates) > 0 {
		res := &tessellation.Result{}
		if len(s.RegionMap) == n {
			res.RegionMap = &field.Regions{Width: h.Width, Height: h.Height, Data: s.RegionMap}
		}
		for _, p := range s.Plates {
			res.Regions = append(res.Regions, tessellation.Region{
				Seed:        tessellation.Vec2{X: p.SeedX, Y: p.SeedY},
				Center:      tessellation.Vec2{X: p.CenterX, Y: p.CenterY},
				MaxDistance: p.MaxDistance,
				Depressed:   p.Depressed,
				Cells:       p.Cells,
			})
		}
		w.Plates = res
	}
	for _, t := range s.RiverTraces {
		w.RiverTraces = append(w.RiverTraces, rivers.Trace{
			ID: t.ID, Origin: field.Point{X: t.X, Y: t.Y},
			Length: t.Length, Radius: t.Radius, Steps: t.Steps, Stalled: t.Stalled,
		})
	}
	for _, p := range s.Patches {
		w.Patches = append(w.Patches, resources.Patch{
			Resource: p.Resource, Center: field.Point{X: p.X, Y: p.Y},
			Width: p.Width, Height: p.Height, Cells: p.Cells,
		})
	}
	for _, st := range s.Stages {
		rep := StageReport{Stage: st.Stage, Layer: st.Layer, Duration: time.Duration(st.DurationNs)}
		if st.HasStats {
			rep.Stats = &field.Stats{Min: st.Min, Max: st.Max, Mean: st.Mean}
		}
		w.Stages = append(w.Stages, rep)
	}
	for _, is := range s.Issues {
		w.Issues = append(w.Issues, issues.Issue{Stage: is.Stage, Code: is.Code, Message: is.Message})
	}

	if h.Digest != "" {
		if got := w.Digest(); got != h.Digest {
			return nil, fmt.Errorf("snapshot: digest mismatch (got %s want %s)", got, h.Digest)
		}
	}
	return w, nil
}

func importScalar(name string, data []float64, width, height int) (*field.Scalar, error) {
	if len(data) != width*height {
		return nil, fmt.Errorf("snapshot: layer %s has %d cells, want %d", name, len(data), width*height)
	}
	return &field.Scalar{Width: width, Height: height, Data: data}, nil
}

func exportPoints(p *field.PointSet) []snapshot.PointV1 {
	out := make([]snapshot.PointV1, 0, p.Len())
	for _, e := range p.Entries() {
		out = append(out, snapshot.PointV1{X: e.Pos.X, Y: e.Pos.Y, Payload: e.Payload})
	}
	return out
}

func importPoints(pts []snapshot.PointV1) *field.PointSet {
	out := field.NewPointSet()
	for _, p := range pts {
		out.Add(field.Point{X: p.X, Y: p.Y}, p.Payload)
	}
	return out
}

func exportSwatches(in []Swatch) []snapshot.SwatchV1 {
	out := make([]snapshot.SwatchV1, 0, len(in))
	for _, s := range in {
		out = append(out, snapshot.SwatchV1{Name: s.Name, Color: s.Color.String()})
	}
	return out
}

func importSwatches(in []snapshot.SwatchV1) ([]Swatch, error) {
	out := make([]Swatch, 0, len(in))
	for _, s := range in {
		c, err := field.ParseColor(s.Color)
		if err != nil {
			return nil, fmt.Errorf("snapshot: swatch %s: %w", s.Name, err)
		}
		out = append(out, Swatch{Name: s.Name, Color: c})
	}
	return out, nil
}
