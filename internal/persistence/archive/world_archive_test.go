package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"terraforge.ai/internal/persistence/snapshot"
)

func TestArchiveWorld_CopiesSnapshotOnce(t *testing.T) {
	dir := t.TempDir()

	src := filepath.Join(dir, "snapshots", "run-1.snap.zst")
	if err := os.MkdirAll(filepath.Dir(src), 0o755); err != nil {
		t.Fatalf("mkdir snapshots: %v", err)
	}
	want := []byte("dummy")
	if err := os.WriteFile(src, want, 0o644); err != nil {
		t.Fatalf("write src: %v", err)
	}

	snap := snapshot.WorldV1{
		Header:       snapshot.Header{Version: 1, Seed: 42, Width: 8, Height: 8, Digest: "0123456789abcdef"},
		ConfigDigest: "cfg",
	}

	archivedPath, ok, err := ArchiveWorld(dir, "demo-island", src, snap)
	if err != nil {
		t.Fatalf("archive: %v", err)
	}
	if !ok {
		t.Fatalf("expected archived=true")
	}
	if filepath.Base(filepath.Dir(archivedPath)) != "demo-island_0123456789ab" {
		t.Fatalf("archive dir=%s", filepath.Dir(archivedPath))
	}

	got, err := os.ReadFile(archivedPath)
	if err != nil {
		t.Fatalf("read archived: %v", err)
	}
	if string(got) != string(want) {
		t.Fatalf("archived content mismatch: got=%q want=%q", string(got), string(want))
	}

	raw, err := os.ReadFile(filepath.Join(filepath.Dir(archivedPath), "meta.json"))
	if err != nil {
		t.Fatalf("expected meta.json to exist: %v", err)
	}
	var meta WorldArchiveMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("meta.json: %v", err)
	}
	if meta.Seed != 42 || meta.Digest != snap.Header.Digest || meta.Config != "cfg" {
		t.Fatalf("meta=%+v", meta)
	}

	again, ok, err := ArchiveWorld(dir, "demo-island", src, snap)
	if err != nil || ok || again != archivedPath {
		t.Fatalf("second archive: path=%s ok=%v err=%v", again, ok, err)
	}
}

func TestArchiveWorld_Rejects(t *testing.T) {
	dir := t.TempDir()
	snap := snapshot.WorldV1{Header: snapshot.Header{Digest: "0123456789abcdef"}}
	if _, _, err := ArchiveWorld(dir, "Bad Name", "x", snap); err == nil {
		t.Fatalf("bad name accepted")
	}
	if _, _, err := ArchiveWorld(dir, "ok", "x", snapshot.WorldV1{}); err == nil {
		t.Fatalf("missing digest accepted")
	}
	if _, _, err := ArchiveWorld(dir, "ok", filepath.Join(dir, "missing.snap.zst"), snap); err == nil {
		t.Fatalf("missing source accepted")
	}
}
