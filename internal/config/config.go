// Package config loads worldgen.yaml: grid size, world seed and the
// parameters of every generation stage.
package config

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"terraforge.ai/internal/worldgen/curve"
	"terraforge.ai/internal/worldgen/noise"
	"terraforge.ai/internal/worldgen/rivers"
	"terraforge.ai/internal/worldgen/tessellation"
)

type Config struct {
	Width  int   `yaml:"width"`
	Height int   `yaml:"height"`
	Seed   int64 `yaml:"seed"`

	// IslandSize scales the radius (as a fraction of half the width) beyond
	// which elevation falls off towards the edge. 0 disables the falloff.
	IslandSize float64 `yaml:"island_size"`

	Layers       Layers           `yaml:"layers"`
	Tessellation TessellationSpec `yaml:"tessellation"`
	Rivers       RiverSpec        `yaml:"rivers"`
	Resources    ResourceSpec     `yaml:"resources"`
	Catalogs     CatalogPaths     `yaml:"catalogs"`
}

type Layers struct {
	Elevation   LayerSpec `yaml:"elevation"`
	Moisture    LayerSpec `yaml:"moisture"`
	Temperature LayerSpec `yaml:"temperature"`
	Vegetation  LayerSpec `yaml:"vegetation"`
}

// LayerSpec is one noise layer. The effective noise seed is the world seed
// plus SeedOffset; Noise.Seed is overwritten.
type LayerSpec struct {
	SeedOffset int64        `yaml:"seed_offset"`
	Noise      noise.Params `yaml:"noise"`
}

type TessellationSpec struct {
	SeedOffset      int64 `yaml:"seed_offset"`
	NumRegions      int   `yaml:"num_regions"`
	SmoothingRadius int   `yaml:"smoothing_radius"`
	// Influence blends plates into elevation: (1-k)*noise + k*plates.
	Influence float64 `yaml:"influence"`
	// WeightByElevation biases plate seeds towards high noise elevation.
	WeightByElevation bool `yaml:"weight_by_elevation"`
}

type RiverSpec struct {
	SeedOffset         int64       `yaml:"seed_offset"`
	NumRivers          int         `yaml:"num_rivers"`
	LengthDistribution curve.Curve `yaml:"length_distribution"`
	SizeDistribution   curve.Curve `yaml:"size_distribution"`
	RadiusDecayChance  float64     `yaml:"radius_decay_chance"`
	SearchRadius       int         `yaml:"search_radius"`
	CoastMin           float64     `yaml:"coast_min"`
	CoastMax           float64     `yaml:"coast_max"`
	MaxSteps           int         `yaml:"max_steps"`
	// CarveElevation caps elevation at every river cell.
	CarveElevation float64 `yaml:"carve_elevation"`
}

type ResourceSpec struct {
	SeedOffset int64        `yaml:"seed_offset"`
	PatchNoise noise.Params `yaml:"patch_noise"`
}

type CatalogPaths struct {
	Biomes    string `yaml:"biomes"`
	Resources string `yaml:"resources"`
}

func Load(path string) (Config, error) {
	cfg := Defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("worldgen.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("worldgen.yaml: %w", err)
	}
	return cfg, nil
}

func Defaults() Config {
	layer := func(offset int64, scale float64, octaves int) LayerSpec {
		return LayerSpec{
			SeedOffset: offset,
			Noise: noise.Params{
				Scale:       scale,
				Octaves:     octaves,
				Persistence: 0.5,
				Lacunarity:  2,
				Normalize:   noise.NormalizeLocal,
				Basis:       noise.BasisPerlin,
			},
		}
	}
	return Config{
		Width:      256,
		Height:     256,
		Seed:       1337,
		IslandSize: 0.8,
		Layers: Layers{
			Elevation:   layer(0, 60, 5),
			Moisture:    layer(101, 80, 4),
			Temperature: layer(202, 120, 3),
			Vegetation:  layer(303, 40, 4),
		},
		Tessellation: TessellationSpec{
			SeedOffset:      404,
			NumRegions:      24,
			SmoothingRadius: 6,
			Influence:       0.35,
		},
		Rivers: RiverSpec{
			SeedOffset:         505,
			NumRivers:          6,
			LengthDistribution: curve.Linear(60, 180),
			SizeDistribution:   curve.Linear(3, 6),
			RadiusDecayChance:  0.05,
			SearchRadius:       8,
			CoastMin:           rivers.DefaultCoastMin,
			CoastMax:           rivers.DefaultCoastMax,
			MaxSteps:           rivers.DefaultMaxSteps,
			CarveElevation:     0.5,
		},
		Resources: ResourceSpec{
			SeedOffset: 606,
			PatchNoise: noise.Params{
				Scale:       6,
				Octaves:     2,
				Persistence: 0.5,
				Lacunarity:  2,
				Normalize:   noise.NormalizeLocal,
				Basis:       noise.BasisPerlin,
			},
		},
		Catalogs: CatalogPaths{
			Biomes:    "./configs/biomes.json",
			Resources: "./configs/resources.json",
		},
	}
}

// Normalize fills empty enum fields and trims paths. It never changes a value
// that Validate would reject.
func (c *Config) Normalize() {
	for _, l := range c.layerRefs() {
		if l.spec.Noise.Normalize == "" {
			l.spec.Noise.Normalize = noise.NormalizeLocal
		}
		if l.spec.Noise.Basis == "" {
			l.spec.Noise.Basis = noise.BasisPerlin
		}
	}
	if c.Resources.PatchNoise.Normalize == "" {
		c.Resources.PatchNoise.Normalize = noise.NormalizeLocal
	}
	if c.Resources.PatchNoise.Basis == "" {
		c.Resources.PatchNoise.Basis = noise.BasisPerlin
	}
	c.Catalogs.Biomes = strings.TrimSpace(c.Catalogs.Biomes)
	c.Catalogs.Resources = strings.TrimSpace(c.Catalogs.Resources)
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("width/height must be > 0 (got %dx%d)", c.Width, c.Height)
	}
	if c.IslandSize < 0 {
		return fmt.Errorf("island_size must be >= 0")
	}
	for _, l := range c.layerRefs() {
		if err := l.spec.Noise.Validate(); err != nil {
			return fmt.Errorf("layers.%s: %w", l.name, err)
		}
	}
	t := c.Tessellation
	if t.NumRegions < 0 {
		return fmt.Errorf("tessellation.num_regions must be >= 0")
	}
	if t.SmoothingRadius < 0 {
		return fmt.Errorf("tessellation.smoothing_radius must be >= 0")
	}
	if t.Influence < 0 || t.Influence > 1 {
		return fmt.Errorf("tessellation.influence must be in [0,1]")
	}
	if t.Influence > 0 && t.NumRegions == 0 {
		return fmt.Errorf("tessellation.influence needs num_regions > 0")
	}
	if err := c.RiverParams().Validate(); err != nil {
		return fmt.Errorf("rivers: %w", err)
	}
	if c.Rivers.RadiusDecayChance < 0 || c.Rivers.RadiusDecayChance > 1 {
		return fmt.Errorf("rivers.radius_decay_chance must be in [0,1]")
	}
	if c.Rivers.CarveElevation < 0 || c.Rivers.CarveElevation > 1 {
		return fmt.Errorf("rivers.carve_elevation must be in [0,1]")
	}
	if err := c.Resources.PatchNoise.Validate(); err != nil {
		return fmt.Errorf("resources.patch_noise: %w", err)
	}
	return nil
}

type layerRef struct {
	name string
	spec *LayerSpec
}

func (c *Config) layerRefs() []layerRef {
	return []layerRef{
		{"elevation", &c.Layers.Elevation},
		{"moisture", &c.Layers.Moisture},
		{"temperature", &c.Layers.Temperature},
		{"vegetation", &c.Layers.Vegetation},
	}
}

// LayerParams returns the noise parameters of a layer with the world seed applied.
func (c Config) LayerParams(l LayerSpec) noise.Params {
	p := l.Noise
	p.Seed = c.Seed + l.SeedOffset
	return p
}

func (c Config) TessellationParams() tessellation.Params {
	return tessellation.Params{
		NumRegions:      c.Tessellation.NumRegions,
		Seed:            c.Seed + c.Tessellation.SeedOffset,
		SmoothingRadius: c.Tessellation.SmoothingRadius,
	}
}

func (c Config) RiverParams() rivers.Params {
	r := c.Rivers
	return rivers.Params{
		NumRivers:          r.NumRivers,
		Seed:               c.Seed + r.SeedOffset,
		LengthDistribution: r.LengthDistribution,
		SizeDistribution:   r.SizeDistribution,
		RadiusDecayChance:  r.RadiusDecayChance,
		SearchRadius:       r.SearchRadius,
		CoastMin:           r.CoastMin,
		CoastMax:           r.CoastMax,
		MaxSteps:           r.MaxSteps,
	}
}

func (c Config) ResourceSeed() int64 { return c.Seed + c.Resources.SeedOffset }

// Digest is the sha256 of the canonical JSON encoding of the applied values.
func (c Config) Digest() string {
	b, _ := json.Marshal(c)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
