package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"terraforge.ai/internal/worldgen/noise"
)

func TestLoad_WorldgenYAML(t *testing.T) {
	cfg, err := Load("../../configs/worldgen.yaml")
	if err != nil {
		t.Fatalf("load worldgen.yaml: %v", err)
	}
	if cfg.Width != 256 || cfg.Height != 256 {
		t.Fatalf("size=%dx%d want 256x256", cfg.Width, cfg.Height)
	}
	if cfg.Layers.Moisture.Noise.Basis != noise.BasisSimplex {
		t.Fatalf("moisture basis=%q want simplex", cfg.Layers.Moisture.Noise.Basis)
	}
	if cfg.Layers.Temperature.Noise.Normalize != noise.NormalizeGlobal {
		t.Fatalf("temperature normalize=%q want global", cfg.Layers.Temperature.Noise.Normalize)
	}
	if len(cfg.Rivers.LengthDistribution.Keys) != 2 {
		t.Fatalf("length distribution keys=%d want 2", len(cfg.Rivers.LengthDistribution.Keys))
	}
	if !cfg.Tessellation.WeightByElevation {
		t.Fatalf("weight_by_elevation should be set")
	}
}

func TestLoad_EmptyPathUsesDefaults(t *testing.T) {
	cfg, err := Load("  ")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}
	if cfg.Seed != Defaults().Seed {
		t.Fatalf("seed=%d want default", cfg.Seed)
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	p := filepath.Join(t.TempDir(), "worldgen.yaml")
	if err := os.WriteFile(p, []byte("width: 32\nheight: 16\nlayers:\n  moisture:\n    noise: {scale: 10, octaves: 2, persistence: 0.4, lacunarity: 2}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cfg, err := Load(p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Width != 32 || cfg.Height != 16 {
		t.Fatalf("size=%dx%d", cfg.Width, cfg.Height)
	}
	if cfg.Layers.Moisture.Noise.Normalize != noise.NormalizeLocal || cfg.Layers.Moisture.Noise.Basis != noise.BasisPerlin {
		t.Fatalf("normalize should fill enums: %+v", cfg.Layers.Moisture.Noise)
	}
	if cfg.Layers.Elevation.Noise.Octaves != Defaults().Layers.Elevation.Noise.Octaves {
		t.Fatalf("untouched layer should keep defaults")
	}
}

func TestLoad_RejectsInvalid(t *testing.T) {
	cases := []struct {
		yaml string
		want string
	}{
		{"width: 0\n", "width/height"},
		{"island_size: -1\n", "island_size"},
		{"layers:\n  vegetation:\n    noise: {scale: 1, octaves: 0}\n", "layers.vegetation"},
		{"tessellation: {num_regions: 0, influence: 0.5}\n", "num_regions"},
		{"rivers: {num_rivers: 2, search_radius: 0}\n", "rivers"},
		{"rivers: {carve_elevation: 1.5}\n", "carve_elevation"},
		{"width: [1\n", "worldgen.yaml"},
	}
	for _, tc := range cases {
		p := filepath.Join(t.TempDir(), "worldgen.yaml")
		if err := os.WriteFile(p, []byte(tc.yaml), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
		_, err := Load(p)
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("yaml %q: err=%v want containing %q", tc.yaml, err, tc.want)
		}
	}
}

func TestConfig_SeedOffsets(t *testing.T) {
	cfg := Defaults()
	cfg.Seed = 1000
	if got := cfg.LayerParams(cfg.Layers.Moisture).Seed; got != 1000+cfg.Layers.Moisture.SeedOffset {
		t.Fatalf("moisture seed=%d", got)
	}
	if got := cfg.TessellationParams().Seed; got != 1000+cfg.Tessellation.SeedOffset {
		t.Fatalf("tessellation seed=%d", got)
	}
	if got := cfg.RiverParams().Seed; got != 1000+cfg.Rivers.SeedOffset {
		t.Fatalf("river seed=%d", got)
	}
	if got := cfg.ResourceSeed(); got != 1000+cfg.Resources.SeedOffset {
		t.Fatalf("resource seed=%d", got)
	}
}

func TestConfig_Digest(t *testing.T) {
	a, b := Defaults(), Defaults()
	if a.Digest() != b.Digest() {
		t.Fatalf("equal configs digest differently")
	}
	b.Layers.Vegetation.Noise.Octaves++
	if a.Digest() == b.Digest() {
		t.Fatalf("digest ignores layer parameters")
	}
}
