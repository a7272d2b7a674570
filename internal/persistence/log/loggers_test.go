package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/pipeline"
)

func readEntries(t *testing.T, dir string) []Entry {
	t.Helper()
	files, err := filepath.Glob(filepath.Join(dir, "runs", "runs-*.jsonl.zst"))
	if err != nil || len(files) == 0 {
		t.Fatalf("no run log files (err=%v)", err)
	}
	var out []Entry
	for _, p := range files {
		f, err := os.Open(p)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		dec, err := zstd.NewReader(f)
		if err != nil {
			t.Fatalf("zstd: %v", err)
		}
		sc := bufio.NewScanner(dec)
		for sc.Scan() {
			var e Entry
			if err := json.Unmarshal(sc.Bytes(), &e); err != nil {
				t.Fatalf("line %q: %v", sc.Text(), err)
			}
			out = append(out, e)
		}
		dec.Close()
		_ = f.Close()
	}
	return out
}

func TestRunLogger_WritesStagesIssuesAndSummary(t *testing.T) {
	dir := t.TempDir()
	l := NewRunLogger(dir)

	elev := field.NewScalar(2, 2)
	w := &pipeline.World{
		Width: 2, Height: 2, Seed: 7,
		Elevation: elev,
		Stages: []pipeline.StageReport{
			{Stage: pipeline.StageNoise, Layer: pipeline.LayerElevation, Duration: 3 * time.Millisecond, Stats: &field.Stats{Max: 1, Mean: 0.5}},
			{Stage: pipeline.StageBiomes, Duration: time.Millisecond},
		},
		Issues: []issues.Issue{{Code: issues.ErrCodeDegenerateInput, Stage: "rivers", Message: "no coastline"}},
	}
	if err := l.WriteRun("r1", w); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	if err := l.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	got := readEntries(t, dir)
	if len(got) != 4 {
		t.Fatalf("entries=%d want 4: %+v", len(got), got)
	}
	if got[0].Kind != "stage" || got[0].DurationMs != 3 || got[0].Max == nil || *got[0].Max != 1 {
		t.Fatalf("stage entry=%+v", got[0])
	}
	if got[1].Min != nil {
		t.Fatalf("stage without stats should omit min: %+v", got[1])
	}
	if got[2].Kind != "issue" || got[2].Code != issues.ErrCodeDegenerateInput {
		t.Fatalf("issue entry=%+v", got[2])
	}
	if got[3].Kind != "run" || got[3].Digest != w.Digest() || got[3].RunID != "r1" {
		t.Fatalf("run entry=%+v", got[3])
	}
}
