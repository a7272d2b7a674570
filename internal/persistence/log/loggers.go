package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"terraforge.ai/internal/worldgen/pipeline"
)

type JSONLZstdWriter struct {
	baseDir string
	prefix  string

	mu      sync.Mutex
	curHour string
	f       *os.File
	enc     *zstd.Encoder
	w       *bufio.Writer
}

func NewJSONLZstdWriter(baseDir, prefix string) *JSONLZstdWriter {
	return &JSONLZstdWriter{
		baseDir: baseDir,
		prefix:  prefix,
	}
}

func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.closeLocked()
}

func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := time.Now().UTC().Format("2006-01-02-15")
	if hour != w.curHour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	if err := w.w.WriteByte('\n'); err != nil {
		return err
	}
	return w.w.Flush()
}

func (w *JSONLZstdWriter) rotateLocked(hour string) error {
	if err := w.closeLocked(); err != nil {
		return err
	}
	dir := filepath.Dir(w.pathForHour(hour))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.pathForHour(hour), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	w.curHour = hour
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err1 error
	if w.w != nil {
		_ = w.w.Flush()
	}
	if w.enc != nil {
		err1 = w.enc.Close()
		w.enc = nil
	}
	if w.f != nil {
		_ = w.f.Close()
		w.f = nil
	}
	w.w = nil
	return err1
}

func (w *JSONLZstdWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// Entry is one JSONL line of a run log.
type Entry struct {
	Kind  string `json:"kind"` // "stage", "issue" or "run"
	RunID string `json:"run_id"`
	Seed  int64  `json:"seed"`

	Stage      string   `json:"stage,omitempty"`
	Layer      string   `json:"layer,omitempty"`
	DurationMs float64  `json:"duration_ms,omitempty"`
	Min        *float64 `json:"min,omitempty"`
	Max        *float64 `json:"max,omitempty"`
	Mean       *float64 `json:"mean,omitempty"`

	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`

	Width  int    `json:"width,omitempty"`
	Height int    `json:"height,omitempty"`
	Digest string `json:"digest,omitempty"`
}

// RunLogger writes stage reports, issues and a closing summary per run (compressed).
type RunLogger struct{ w *JSONLZstdWriter }

func NewRunLogger(dataDir string) *RunLogger {
	return &RunLogger{w: NewJSONLZstdWriter(filepath.Join(dataDir, "runs"), "runs")}
}

func (l *RunLogger) WriteRun(runID string, w *pipeline.World) error {
	for _, st := range w.Stages {
		e := Entry{Kind: "stage", RunID: runID, Seed: w.Seed, Stage: st.Stage, Layer: st.Layer, DurationMs: ms(st.Duration)}
		if st.Stats != nil {
			mn, mx, mean := st.Stats.Min, st.Stats.Max, st.Stats.Mean
			e.Min, e.Max, e.Mean = &mn, &mx, &mean
		}
		if err := l.w.Write(e); err != nil {
			return err
		}
	}
	for _, is := range w.Issues {
		if err := l.w.Write(Entry{Kind: "issue", RunID: runID, Seed: w.Seed, Stage: is.Stage, Code: is.Code, Message: is.Message}); err != nil {
			return err
		}
	}
	return l.w.Write(Entry{Kind: "run", RunID: runID, Seed: w.Seed, Width: w.Width, Height: w.Height, Digest: w.Digest()})
}

func (l *RunLogger) Close() error { return l.w.Close() }

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
