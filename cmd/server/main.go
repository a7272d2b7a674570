package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"sync/atomic"
	"syscall"
	"time"

	"terraforge.ai/internal/runner"
	"terraforge.ai/internal/transport/observer"
	"terraforge.ai/internal/worldgen/pipeline"
)

func main() {
	var (
		addr       = flag.String("addr", "127.0.0.1:8080", "http listen address")
		configPath = flag.String("config", "./configs/worldgen.yaml", "path to worldgen.yaml (used when generating)")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		disableDB  = flag.Bool("disable_db", false, "skip the sqlite run index when generating")

		snapPath   = flag.String("snapshot", "", "path to snapshot to serve (optional)")
		loadLatest = flag.Bool("load_latest_snapshot", true, "serve the latest snapshot from data dir if present (when -snapshot is empty)")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	load := func() (*pipeline.World, error) {
		path := strings.TrimSpace(*snapPath)
		if path == "" && *loadLatest {
			path = runner.LatestSnapshot(*dataDir)
		}
		if path != "" {
			w, err := runner.LoadSnapshot(path)
			if err != nil {
				return nil, fmt.Errorf("load snapshot %s: %w", path, err)
			}
			logger.Printf("serving snapshot=%s digest=%s", filepath.Base(path), w.Digest())
			return w, nil
		}
		res, err := runner.Run(context.Background(), runner.Options{
			ConfigPath: *configPath,
			DataDir:    *dataDir,
			DisableDB:  *disableDB,
		}, log.New(os.Stdout, "[worldgen] ", log.LstdFlags|log.Lmicroseconds))
		if err != nil {
			return nil, err
		}
		return res.World, nil
	}

	w, err := load()
	if err != nil {
		logger.Fatalf("world: %v", err)
	}

	ctx, cancel := signalContext()
	defer cancel()

	obsSrv := observer.NewServer(w, logger)
	st := &state{}
	st.world.Store(w)

	// SIGHUP reloads (or regenerates) the world without dropping connections.
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case <-hup:
				nw, err := load()
				if err != nil {
					logger.Printf("reload: %v", err)
					continue
				}
				st.world.Store(nw)
				st.reloads.Add(1)
				obsSrv.SetWorld(nw)
			}
		}
	}()

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", st.metricsHandler())
	mux.HandleFunc("/v1/bootstrap", obsSrv.BootstrapHandler())
	mux.HandleFunc("/v1/ws", obsSrv.WSHandler())

	srv := &http.Server{
		Addr:              *addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", *addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Fatalf("ListenAndServe: %v", err)
	}
}

type state struct {
	world   atomic.Pointer[pipeline.World]
	reloads atomic.Uint64
}

func (s *state) metricsHandler() http.HandlerFunc {
	return func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		w := s.world.Load()

		// Minimal Prometheus exposition format.
		fmt.Fprintf(rw, "# HELP terraforge_world_cells Cells in the served world.\n")
		fmt.Fprintf(rw, "# TYPE terraforge_world_cells gauge\n")
		fmt.Fprintf(rw, "terraforge_world_cells{seed=\"%d\"} %d\n", w.Seed, w.Width*w.Height)

		fmt.Fprintf(rw, "# HELP terraforge_world_points Point-set sizes.\n")
		fmt.Fprintf(rw, "# TYPE terraforge_world_points gauge\n")
		fmt.Fprintf(rw, "terraforge_world_points{set=%q} %d\n", "rivers", w.Rivers.Len())
		fmt.Fprintf(rw, "terraforge_world_points{set=%q} %d\n", "resources", w.Resources.Len())

		fmt.Fprintf(rw, "# HELP terraforge_world_issues Recoverable issues recorded while generating.\n")
		fmt.Fprintf(rw, "# TYPE terraforge_world_issues gauge\n")
		fmt.Fprintf(rw, "terraforge_world_issues %d\n", len(w.Issues))

		fmt.Fprintf(rw, "# HELP terraforge_stage_ms Stage duration in milliseconds.\n")
		fmt.Fprintf(rw, "# TYPE terraforge_stage_ms gauge\n")
		for _, st := range w.Stages {
			fmt.Fprintf(rw, "terraforge_stage_ms{stage=%q,layer=%q} %.3f\n", st.Stage, st.Layer, float64(st.Duration)/float64(time.Millisecond))
		}

		fmt.Fprintf(rw, "# HELP terraforge_reloads_total SIGHUP reloads served.\n")
		fmt.Fprintf(rw, "# TYPE terraforge_reloads_total counter\n")
		fmt.Fprintf(rw, "terraforge_reloads_total %d\n", s.reloads.Load())
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}
