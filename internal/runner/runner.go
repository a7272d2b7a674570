// Package runner wires one generation run end to end: config and catalogs in,
// snapshot, run log, index row and optional archive out.
package runner

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"terraforge.ai/internal/catalogs"
	"terraforge.ai/internal/config"
	"terraforge.ai/internal/persistence/archive"
	"terraforge.ai/internal/persistence/indexdb"
	persistlog "terraforge.ai/internal/persistence/log"
	"terraforge.ai/internal/persistence/snapshot"
	"terraforge.ai/internal/worldgen/pipeline"
)

type Options struct {
	ConfigPath string
	DataDir    string

	// RunID defaults to a timestamped id.
	RunID string
	// Seed, Width and Height override the config when non-nil.
	Seed   *int64
	Width  *int
	Height *int

	// Archive, when set, copies the snapshot under archives/<name>_<digest12>/.
	Archive   string
	DisableDB bool
}

type Result struct {
	RunID        string
	World        *pipeline.World
	SnapshotPath string
	ArchivedPath string
}

// Inputs is the loaded config plus the catalogs it points at.
type Inputs struct {
	Config   config.Config
	Catalogs *catalogs.Catalogs
}

func (in Inputs) PipelineConfig() pipeline.Config {
	return pipeline.Config{
		Config:       in.Config,
		Biomes:       in.Catalogs.Biomes.Catalog,
		ResourceDefs: in.Catalogs.Resources.Defs,
	}
}

func (in Inputs) CatalogDigests() map[string]string {
	return map[string]string{
		"biomes":    in.Catalogs.Biomes.Digest,
		"resources": in.Catalogs.Resources.Digest,
	}
}

func LoadInputs(opts Options) (Inputs, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return Inputs{}, err
	}
	if opts.Seed != nil {
		cfg.Seed = *opts.Seed
	}
	if opts.Width != nil {
		cfg.Width = *opts.Width
	}
	if opts.Height != nil {
		cfg.Height = *opts.Height
	}
	if err := cfg.Validate(); err != nil {
		return Inputs{}, fmt.Errorf("config: %w", err)
	}
	cats, err := catalogs.Load(cfg.Catalogs.Biomes, cfg.Catalogs.Resources)
	if err != nil {
		return Inputs{}, fmt.Errorf("load catalogs: %w", err)
	}
	return Inputs{Config: cfg, Catalogs: cats}, nil
}

func SnapshotDir(dataDir string) string { return filepath.Join(dataDir, "snapshots") }

func IndexPath(dataDir string) string { return filepath.Join(dataDir, "index", "runs.sqlite") }

// Run generates a world and persists it. Index failures are logged, not
// returned; the snapshot and the JSONL run log are the source of truth.
func Run(ctx context.Context, opts Options, logger *log.Logger) (*Result, error) {
	in, err := LoadInputs(opts)
	if err != nil {
		return nil, err
	}
	runID := strings.TrimSpace(opts.RunID)
	if runID == "" {
		runID = fmt.Sprintf("run_%s_%d", time.Now().UTC().Format("20060102T150405"), in.Config.Seed)
	}

	w, err := pipeline.Generate(in.PipelineConfig(), logger)
	if err != nil {
		return nil, err
	}
	res := &Result{RunID: runID, World: w}

	snap := w.ExportSnapshot(in.Config.Digest(), in.CatalogDigests())
	res.SnapshotPath = filepath.Join(SnapshotDir(opts.DataDir), runID+".snap.zst")
	if err := snapshot.WriteSnapshot(res.SnapshotPath, snap); err != nil {
		return nil, fmt.Errorf("snapshot write: %w", err)
	}
	logf(logger, "run=%s snapshot=%s", runID, res.SnapshotPath)

	runLog := persistlog.NewRunLogger(opts.DataDir)
	if err := runLog.WriteRun(runID, w); err != nil {
		logf(logger, "run log: %v", err)
	}
	if err := runLog.Close(); err != nil {
		logf(logger, "run log close: %v", err)
	}

	if !opts.DisableDB {
		if err := recordIndex(ctx, opts.DataDir, runID, in, w, res.SnapshotPath); err != nil {
			logf(logger, "index: %v", err)
		}
	}

	if name := strings.TrimSpace(opts.Archive); name != "" {
		p, archived, err := archive.ArchiveWorld(opts.DataDir, name, res.SnapshotPath, snap)
		if err != nil {
			return res, fmt.Errorf("archive: %w", err)
		}
		res.ArchivedPath = p
		if archived {
			logf(logger, "archived %s", p)
		} else {
			logf(logger, "archive exists %s", p)
		}
	}
	return res, nil
}

func recordIndex(ctx context.Context, dataDir, runID string, in Inputs, w *pipeline.World, snapPath string) error {
	idx, err := indexdb.OpenSQLite(IndexPath(dataDir))
	if err != nil {
		return err
	}
	defer idx.Close()
	if err := idx.UpsertCatalogs(in.Catalogs, in.Config); err != nil {
		return fmt.Errorf("upsert catalogs: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return idx.RecordRunSync(ctx, runID, w, in.Config.Digest(), snapPath)
}

// LatestSnapshot returns the most recently written snapshot in dataDir, or "".
func LatestSnapshot(dataDir string) string {
	dir := SnapshotDir(dataDir)
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTime time.Time
	for _, e := range ents {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".snap.zst") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if best == "" || info.ModTime().After(bestTime) {
			bestTime = info.ModTime()
			best = filepath.Join(dir, e.Name())
		}
	}
	return best
}

// LoadSnapshot reads a snapshot and rebuilds the world, checking its digest.
func LoadSnapshot(path string) (*pipeline.World, error) {
	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		return nil, err
	}
	return pipeline.ImportSnapshot(snap)
}

func logf(logger *log.Logger, format string, args ...any) {
	if logger != nil {
		logger.Printf(format, args...)
	}
}
