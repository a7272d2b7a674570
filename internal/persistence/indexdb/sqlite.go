package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"terraforge.ai/internal/catalogs"
	"terraforge.ai/internal/config"
	"terraforge.ai/internal/worldgen/pipeline"
)

type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch) in Close.
	mu     sync.RWMutex
	closed atomic.Bool

	dropRunTotal atomic.Uint64
	writeErrors  atomic.Uint64
}

type req struct {
	run    runRow
	stages []stageRow
	issues []issueRow
	done   chan error
}

type runRow struct {
	RunID        string
	Seed         int64
	Width        int
	Height       int
	Digest       string
	ConfigDigest string
	SnapshotPath string
	CreatedAt    string
}

type stageRow struct {
	Seq        int
	Stage      string
	Layer      string
	DurationMs float64
	HasStats   bool
	Min        float64
	Max        float64
	Mean       float64
}

type issueRow struct {
	Seq     int
	Stage   string
	Code    string
	Message string
}

type Stats struct {
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
	DropRunTotal  uint64 `json:"drop_run_total"`
	WriteErrors   uint64 `json:"write_errors"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, 256),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	// WAL is much faster for append-style workloads.
	// NORMAL is a decent durability/perf tradeoff for a secondary index.
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS runs (
			run_id TEXT PRIMARY KEY,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			digest TEXT NOT NULL,
			config_digest TEXT NOT NULL,
			snapshot_path TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_runs_digest ON runs(digest);`,
		`CREATE TABLE IF NOT EXISTS stages (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			layer TEXT NOT NULL,
			duration_ms REAL NOT NULL,
			min REAL,
			max REAL,
			mean REAL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE TABLE IF NOT EXISTS issues (
			run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
			seq INTEGER NOT NULL,
			stage TEXT NOT NULL,
			code TEXT NOT NULL,
			message TEXT NOT NULL,
			PRIMARY KEY (run_id, seq)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_issues_code ON issues(code);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed.Store(true)
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
		DropRunTotal:  s.dropRunTotal.Load(),
		WriteErrors:   s.writeErrors.Load(),
	}
}

// RecordRun queues a run with its stage reports and issues. It never blocks;
// if the writer falls behind the run is dropped (the JSONL run log remains
// the source of truth).
func (s *SQLiteIndex) RecordRun(runID string, w *pipeline.World, configDigest, snapshotPath string) {
	if s == nil {
		return
	}
	r := buildReq(runID, w, configDigest, snapshotPath, nil)
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		s.dropRunTotal.Add(1)
	}
}

// RecordRunSync queues a run and waits until its transaction commits.
func (s *SQLiteIndex) RecordRunSync(ctx context.Context, runID string, w *pipeline.World, configDigest, snapshotPath string) error {
	if s == nil {
		return fmt.Errorf("index closed")
	}
	done := make(chan error, 1)
	r := buildReq(runID, w, configDigest, snapshotPath, done)
	if err := s.send(ctx, r); err != nil {
		return err
	}
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// send blocks until the writer accepts r. The read lock keeps Close from
// closing ch mid-send; the writer keeps draining, so Close only waits briefly.
func (s *SQLiteIndex) send(ctx context.Context, r req) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed.Load() {
		return fmt.Errorf("index closed")
	}
	select {
	case s.ch <- r:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func buildReq(runID string, w *pipeline.World, configDigest, snapshotPath string, done chan error) req {
	r := req{
		run: runRow{
			RunID:        runID,
			Seed:         w.Seed,
			Width:        w.Width,
			Height:       w.Height,
			Digest:       w.Digest(),
			ConfigDigest: configDigest,
			SnapshotPath: snapshotPath,
			CreatedAt:    time.Now().UTC().Format(time.RFC3339Nano),
		},
		done: done,
	}
	for i, st := range w.Stages {
		row := stageRow{
			Seq:        i,
			Stage:      st.Stage,
			Layer:      st.Layer,
			DurationMs: float64(st.Duration) / float64(time.Millisecond),
		}
		if st.Stats != nil {
			row.HasStats = true
			row.Min, row.Max, row.Mean = st.Stats.Min, st.Stats.Max, st.Stats.Mean
		}
		r.stages = append(r.stages, row)
	}
	for i, is := range w.Issues {
		r.issues = append(r.issues, issueRow{Seq: i, Stage: is.Stage, Code: is.Code, Message: is.Message})
	}
	return r
}

// UpsertCatalogs stores the raw catalog files and the applied config.
func (s *SQLiteIndex) UpsertCatalogs(cats *catalogs.Catalogs, cfg config.Config) error {
	if s == nil {
		return nil
	}

	now := time.Now().UTC().Format(time.RFC3339Nano)

	type kv struct {
		name   string
		digest string
		json   []byte
	}
	var rows []kv
	if b, err := os.ReadFile(cfg.Catalogs.Biomes); err == nil {
		rows = append(rows, kv{name: "biomes", digest: cats.Biomes.Digest, json: b})
	}
	if b, err := os.ReadFile(cfg.Catalogs.Resources); err == nil {
		rows = append(rows, kv{name: "resources", digest: cats.Resources.Digest, json: b})
	}
	// Config: store the values we actually apply (canonical JSON).
	if b, err := json.Marshal(cfg); err == nil {
		rows = append(rows, kv{name: "worldgen", digest: cfg.Digest(), json: b})
	}

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for _, r := range rows {
		if r.name == "" || r.digest == "" || len(r.json) == 0 {
			continue
		}
		if _, err := stmt.Exec(r.name, r.digest, string(r.json), now); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	// Prepared statements (on db; executed within tx).
	insertRun, _ := s.db.Prepare(`INSERT OR REPLACE INTO runs(run_id,seed,width,height,digest,config_digest,snapshot_path,created_at) VALUES(?,?,?,?,?,?,?,?)`)
	insertStage, _ := s.db.Prepare(`INSERT OR REPLACE INTO stages(run_id,seq,stage,layer,duration_ms,min,max,mean) VALUES(?,?,?,?,?,?,?,?)`)
	insertIssue, _ := s.db.Prepare(`INSERT OR REPLACE INTO issues(run_id,seq,stage,code,message) VALUES(?,?,?,?,?)`)
	defer func() {
		for _, st := range []*sql.Stmt{insertRun, insertStage, insertIssue} {
			if st != nil {
				_ = st.Close()
			}
		}
	}()

	// One transaction per run: a run is small and readers should see it
	// complete or not at all.
	write := func(r req) error {
		if insertRun == nil || insertStage == nil || insertIssue == nil {
			return fmt.Errorf("prepare statements failed")
		}
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		ru := r.run
		if _, err := tx.Stmt(insertRun).Exec(ru.RunID, ru.Seed, ru.Width, ru.Height, ru.Digest, ru.ConfigDigest, ru.SnapshotPath, ru.CreatedAt); err != nil {
			return err
		}
		for _, st := range r.stages {
			var mn, mx, mean any
			if st.HasStats {
				mn, mx, mean = st.Min, st.Max, st.Mean
			}
			if _, err := tx.Stmt(insertStage).Exec(ru.RunID, st.Seq, st.Stage, st.Layer, st.DurationMs, mn, mx, mean); err != nil {
				return err
			}
		}
		for _, is := range r.issues {
			if _, err := tx.Stmt(insertIssue).Exec(ru.RunID, is.Seq, is.Stage, is.Code, is.Message); err != nil {
				return err
			}
		}
		return tx.Commit()
	}

	for r := range s.ch {
		err := write(r)
		if err != nil {
			s.writeErrors.Add(1)
		}
		if r.done != nil {
			r.done <- err
		}
	}
}
