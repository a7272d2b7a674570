package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"sort"
	"strings"
	"time"

	"terraforge.ai/internal/persistence/indexdb"
	"terraforge.ai/internal/persistence/snapshot"
	"terraforge.ai/internal/runner"
	"terraforge.ai/internal/worldgen/biome"
	"terraforge.ai/internal/worldgen/pipeline"
)

func main() {
	var (
		snapPath   = flag.String("snapshot", "", "snapshot to inspect (default: latest in data dir)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		headerOnly = flag.Bool("header", false, "print only the snapshot header")
		runs       = flag.Int("runs", 0, "list the N most recent runs from the index instead")
		stagesOf   = flag.String("stages", "", "list indexed stage reports of a run id instead")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[inspect] ", log.LstdFlags)

	if *runs > 0 || *stagesOf != "" {
		idx, err := indexdb.OpenSQLite(runner.IndexPath(*dataDir))
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		defer idx.Close()
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if *runs > 0 {
			err = printRuns(ctx, os.Stdout, idx, *runs)
		} else {
			err = printStages(ctx, os.Stdout, idx, *stagesOf)
		}
		if err != nil {
			logger.Fatalf("query: %v", err)
		}
		return
	}

	path := strings.TrimSpace(*snapPath)
	if path == "" {
		path = runner.LatestSnapshot(*dataDir)
	}
	if path == "" {
		logger.Fatalf("no snapshot given and none found under %s", runner.SnapshotDir(*dataDir))
	}

	if *headerOnly {
		h, err := snapshot.ReadHeader(path)
		if err != nil {
			logger.Fatalf("read header: %v", err)
		}
		fmt.Printf("version=%d seed=%d size=%dx%d digest=%s\n", h.Version, h.Seed, h.Width, h.Height, h.Digest)
		return
	}

	snap, err := snapshot.ReadSnapshot(path)
	if err != nil {
		logger.Fatalf("read snapshot: %v", err)
	}
	w, err := pipeline.ImportSnapshot(snap)
	if err != nil {
		logger.Fatalf("import snapshot: %v", err)
	}
	fmt.Printf("snapshot %s\n", path)
	fmt.Printf("config_digest=%s\n", snap.ConfigDigest)
	printWorld(os.Stdout, w)
}

func printWorld(out io.Writer, w *pipeline.World) {
	fmt.Fprintf(out, "seed=%d size=%dx%d digest=%s\n", w.Seed, w.Width, w.Height, w.Digest())
	for _, name := range pipeline.ScalarLayers() {
		f, _ := w.Layer(name)
		if f == nil {
			continue
		}
		s := f.Stats()
		fmt.Fprintf(out, "  %-12s min=%.4f max=%.4f mean=%.4f\n", name, s.Min, s.Max, s.Mean)
	}
	if w.Plates != nil {
		fmt.Fprintf(out, "  plates       regions=%d\n", len(w.Plates.Regions))
	}

	if w.Biomes != nil {
		hist := w.Biomes.Histogram()
		ids := make([]int, 0, len(hist))
		for id := range hist {
			ids = append(ids, int(id))
		}
		sort.Ints(ids)
		total := float64(len(w.Biomes.Data))
		fmt.Fprintf(out, "biomes:\n")
		for _, id := range ids {
			name := "UNCLASSIFIED"
			if uint16(id) != biome.Unclassified && id < len(w.BiomePalette) {
				name = w.BiomePalette[id].Name
			}
			n := hist[uint16(id)]
			fmt.Fprintf(out, "  %-14s %7d  %5.1f%%\n", name, n, 100*float64(n)/total)
		}
	}

	fmt.Fprintf(out, "rivers: traces=%d cells=%d\n", len(w.RiverTraces), w.Rivers.Len())
	counts := map[uint16]int{}
	for _, e := range w.Resources.Entries() {
		counts[e.Payload]++
	}
	fmt.Fprintf(out, "resources: patches=%d cells=%d\n", len(w.Patches), w.Resources.Len())
	for i, k := range w.ResourceKinds {
		fmt.Fprintf(out, "  %-14s %7d\n", k.Name, counts[uint16(i)])
	}
	for _, is := range w.Issues {
		fmt.Fprintf(out, "issue: %s\n", is)
	}
}

func printRuns(ctx context.Context, out io.Writer, idx *indexdb.SQLiteIndex, limit int) error {
	rs, err := idx.Runs(ctx, limit)
	if err != nil {
		return err
	}
	for _, r := range rs {
		fmt.Fprintf(out, "%s  seed=%d size=%dx%d issues=%d digest=%.12s  %s\n", r.RunID, r.Seed, r.Width, r.Height, r.Issues, r.Digest, r.SnapshotPath)
	}
	return nil
}

func printStages(ctx context.Context, out io.Writer, idx *indexdb.SQLiteIndex, runID string) error {
	ss, err := idx.Stages(ctx, runID)
	if err != nil {
		return err
	}
	if len(ss) == 0 {
		return fmt.Errorf("run %q not found", runID)
	}
	for _, s := range ss {
		fmt.Fprintf(out, "%-13s %-12s %9.3fms", s.Stage, s.Layer, s.DurationMs)
		if s.Min.Valid {
			fmt.Fprintf(out, "  min=%.4f max=%.4f mean=%.4f", s.Min.Float64, s.Max.Float64, s.Mean.Float64)
		}
		fmt.Fprintln(out)
	}
	return nil
}
