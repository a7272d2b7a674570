// Package catalogs loads the biome and resource catalogs from JSON, checks
// them against embedded JSON Schemas and records a sha256 digest of each file.
package catalogs

import (
	"bytes"
	"crypto/sha256"
	"embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"terraforge.ai/internal/worldgen/biome"
	"terraforge.ai/internal/worldgen/resources"
)

//go:embed schemas/*.schema.json
var schemaFS embed.FS

const (
	BiomesSchema    = "biomes.schema.json"
	ResourcesSchema = "resources.schema.json"
)

type Catalogs struct {
	Biomes    BiomeCatalog
	Resources ResourceCatalog
}

type BiomeCatalog struct {
	Catalog *biome.Catalog
	Digest  string
}

type ResourceCatalog struct {
	Defs   []resources.Resource
	Digest string
}

// Load reads both catalogs. Resource preferences are checked against the
// biome names here so a bad catalog fails before any generation work.
func Load(biomesPath, resourcesPath string) (*Catalogs, error) {
	var c Catalogs
	if err := loadBiomes(biomesPath, &c.Biomes); err != nil {
		return nil, err
	}
	if err := loadResources(resourcesPath, &c.Resources); err != nil {
		return nil, err
	}
	for _, r := range c.Resources.Defs {
		for _, b := range r.PreferredBiomes {
			if _, ok := c.Biomes.Catalog.ID(b); !ok {
				return nil, fmt.Errorf("resources.json: %s prefers unknown biome %s", r.Name, b)
			}
		}
	}
	return &c, nil
}

func loadBiomes(path string, out *BiomeCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ValidateDocument(BiomesSchema, raw); err != nil {
		return fmt.Errorf("biomes.json: %w", err)
	}
	out.Digest = sha256Hex(raw)

	var defs []biome.Label
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("biomes.json: %w", err)
	}
	cat, err := biome.NewCatalog(defs)
	if err != nil {
		return fmt.Errorf("biomes.json: %w", err)
	}
	out.Catalog = cat
	return nil
}

func loadResources(path string, out *ResourceCatalog) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := ValidateDocument(ResourcesSchema, raw); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	out.Digest = sha256Hex(raw)

	var defs []resources.Resource
	if err := json.Unmarshal(raw, &defs); err != nil {
		return fmt.Errorf("resources.json: %w", err)
	}
	seen := map[string]bool{}
	for _, d := range defs {
		if seen[d.Name] {
			return fmt.Errorf("resources.json: duplicate name %s", d.Name)
		}
		seen[d.Name] = true
	}
	out.Defs = defs
	return nil
}

var (
	schemasOnce sync.Once
	schemas     map[string]*jsonschema.Schema
	schemasErr  error
)

func compiled(name string) (*jsonschema.Schema, error) {
	schemasOnce.Do(func() {
		c := jsonschema.NewCompiler()
		names := []string{BiomesSchema, ResourcesSchema}
		for _, n := range names {
			b, err := schemaFS.ReadFile("schemas/" + n)
			if err != nil {
				schemasErr = err
				return
			}
			if err := c.AddResource(n, bytes.NewReader(b)); err != nil {
				schemasErr = fmt.Errorf("%s: %w", n, err)
				return
			}
		}
		schemas = map[string]*jsonschema.Schema{}
		for _, n := range names {
			s, err := c.Compile(n)
			if err != nil {
				schemasErr = fmt.Errorf("%s: %w", n, err)
				return
			}
			schemas[n] = s
		}
	})
	if schemasErr != nil {
		return nil, schemasErr
	}
	s, ok := schemas[name]
	if !ok {
		return nil, fmt.Errorf("unknown schema %s", name)
	}
	return s, nil
}

// ValidateDocument checks raw JSON against one of the embedded schemas.
func ValidateDocument(schema string, raw []byte) error {
	s, err := compiled(schema)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	return s.Validate(v)
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}
