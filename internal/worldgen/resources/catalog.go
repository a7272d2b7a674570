package resources

import (
	"terraforge.ai/internal/worldgen/biome"
	"terraforge.ai/internal/worldgen/curve"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
)

type Pattern string

const (
	PatternArea    Pattern = "area"
	PatternDots    Pattern = "dots"
	PatternStripes Pattern = "stripes"
)

// SineWave shapes the stripes pattern.
type SineWave struct {
	Frequency       float64    `json:"frequency"`
	Amplitude       float64    `json:"amplitude"`
	WobbleFrequency [2]float64 `json:"wobble_frequency"`
	WobbleStrength  [2]float64 `json:"wobble_strength"`
}

type Resource struct {
	Name  string      `json:"name"`
	Color field.Color `json:"color"`
	// Density is the per-cell keep chance in percent for dots and stripes.
	Density          int         `json:"density"`
	SizeDistribution curve.Curve `json:"size_distribution"`
	NumPatches       int         `json:"num_patches"`
	PreferredBiomes  []string    `json:"preferred_biomes"`
	Pattern          Pattern     `json:"pattern"`
	Stripes          SineWave    `json:"stripes,omitempty"`
}

func (r Resource) validate(i int, biomes *biome.Catalog) error {
	if r.Name == "" {
		return issues.Invalid(stage, "resource %d has no name", i)
	}
	if r.NumPatches < 0 {
		return issues.Invalid(stage, "resource %q: num_patches must be >= 0", r.Name)
	}
	if r.Density < 0 || r.Density > 100 {
		return issues.Invalid(stage, "resource %q: density %d outside 0..100", r.Name, r.Density)
	}
	if _, ok := patterns[r.Pattern]; !ok {
		return issues.Invalid(stage, "resource %q: unknown pattern %q", r.Name, r.Pattern)
	}
	if r.Pattern == PatternStripes && r.Stripes.Amplitude <= 0 {
		return issues.Invalid(stage, "resource %q: stripes need a positive amplitude", r.Name)
	}
	if err := r.SizeDistribution.Validate(); err != nil {
		return issues.Invalid(stage, "resource %q: size_distribution: %v", r.Name, err)
	}
	for _, b := range r.PreferredBiomes {
		if _, ok := biomes.ID(b); !ok {
			return issues.Invalid(stage, "resource %q: unknown biome %q", r.Name, b)
		}
	}
	return nil
}

// preferred returns a lookup indexed by biome label id.
func (r Resource) preferred(biomes *biome.Catalog) []bool {
	out := make([]bool, biomes.Len())
	for _, b := range r.PreferredBiomes {
		id, _ := biomes.ID(b)
		out[id] = true
	}
	return out
}

func prefers(pref []bool, label uint16) bool {
	return int(label) < len(pref) && pref[label]
}
