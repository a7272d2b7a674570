package main

import (
	"context"
	"flag"
	"log"
	"os"
	"strconv"
	"time"

	"terraforge.ai/internal/runner"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/worldgen.yaml", "path to worldgen.yaml (empty: built-in defaults)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		runID      = flag.String("run", "", "run id (default: timestamp + seed)")
		seed       = flag.String("seed", "", "override the config seed")
		width      = flag.Int("width", 0, "override the config width (0: keep)")
		height     = flag.Int("height", 0, "override the config height (0: keep)")
		archive    = flag.String("archive", "", "archive the snapshot under this name")
		disableDB  = flag.Bool("disable_db", false, "skip the sqlite run index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[worldgen] ", log.LstdFlags|log.Lmicroseconds)

	opts := runner.Options{
		ConfigPath: *configPath,
		DataDir:    *dataDir,
		RunID:      *runID,
		Archive:    *archive,
		DisableDB:  *disableDB,
	}
	if *seed != "" {
		v, err := strconv.ParseInt(*seed, 10, 64)
		if err != nil {
			logger.Fatalf("bad -seed %q: %v", *seed, err)
		}
		opts.Seed = &v
	}
	if *width > 0 {
		opts.Width = width
	}
	if *height > 0 {
		opts.Height = height
	}

	start := time.Now()
	res, err := runner.Run(context.Background(), opts, logger)
	if err != nil {
		logger.Fatalf("generate: %v", err)
	}
	logger.Printf("done run=%s seed=%d size=%dx%d issues=%d digest=%s in %s",
		res.RunID, res.World.Seed, res.World.Width, res.World.Height, len(res.World.Issues), res.World.Digest(), time.Since(start).Round(time.Millisecond))
}
