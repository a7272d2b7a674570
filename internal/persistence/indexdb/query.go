package indexdb

import (
	"context"
	"database/sql"
)

type RunSummary struct {
	RunID        string
	Seed         int64
	Width        int
	Height       int
	Digest       string
	ConfigDigest string
	SnapshotPath string
	CreatedAt    string
	Issues       int
}

// Runs lists the most recent runs first.
func (s *SQLiteIndex) Runs(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.run_id, r.seed, r.width, r.height, r.digest, r.config_digest, r.snapshot_path, r.created_at,
		       (SELECT COUNT(*) FROM issues i WHERE i.run_id = r.run_id)
		FROM runs r
		ORDER BY r.created_at DESC, r.run_id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var r RunSummary
		if err := rows.Scan(&r.RunID, &r.Seed, &r.Width, &r.Height, &r.Digest, &r.ConfigDigest, &r.SnapshotPath, &r.CreatedAt, &r.Issues); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type StageSummary struct {
	Stage      string
	Layer      string
	DurationMs float64
	Min        sql.NullFloat64
	Max        sql.NullFloat64
	Mean       sql.NullFloat64
}

func (s *SQLiteIndex) Stages(ctx context.Context, runID string) ([]StageSummary, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT stage, layer, duration_ms, min, max, mean FROM stages WHERE run_id=? ORDER BY seq`, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []StageSummary
	for rows.Next() {
		var st StageSummary
		if err := rows.Scan(&st.Stage, &st.Layer, &st.DurationMs, &st.Min, &st.Max, &st.Mean); err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, rows.Err()
}

// FindByDigest returns the runs that produced an identical world.
func (s *SQLiteIndex) FindByDigest(ctx context.Context, digest string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT run_id FROM runs WHERE digest=? ORDER BY created_at`, digest)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}
