package archive

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"time"

	"terraforge.ai/internal/persistence/snapshot"
)

type WorldArchiveMeta struct {
	Name      string `json:"name"`
	Seed      int64  `json:"seed"`
	Width     int    `json:"width"`
	Height    int    `json:"height"`
	Digest    string `json:"digest"`
	Snapshot  string `json:"snapshot"`
	CreatedAt string `json:"created_at"`
	Config    string `json:"config_digest,omitempty"`
}

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{0,63}$`)

// ArchiveWorld copies a snapshot into `dataDir/archives/<name>_<digest12>/`.
// Archiving the same world (same digest) under the same name twice is a
// no-op and returns archived=false with the existing path.
func ArchiveWorld(dataDir, name, snapshotPath string, snap snapshot.WorldV1) (archivedPath string, archived bool, err error) {
	if !namePattern.MatchString(name) {
		return "", false, fmt.Errorf("archive name %q: want lowercase letters, digits, '-' or '_'", name)
	}
	if len(snap.Header.Digest) < 12 {
		return "", false, fmt.Errorf("archive %s: snapshot has no digest", name)
	}

	archiveDir := filepath.Join(dataDir, "archives", fmt.Sprintf("%s_%s", name, snap.Header.Digest[:12]))
	dst := filepath.Join(archiveDir, filepath.Base(snapshotPath))
	if _, err := os.Stat(dst); err == nil {
		return dst, false, nil
	}
	if err := os.MkdirAll(archiveDir, 0o755); err != nil {
		return "", false, err
	}
	if err := copyFile(snapshotPath, dst); err != nil {
		return "", false, err
	}

	meta := WorldArchiveMeta{
		Name:      name,
		Seed:      snap.Header.Seed,
		Width:     snap.Header.Width,
		Height:    snap.Header.Height,
		Digest:    snap.Header.Digest,
		Snapshot:  filepath.Base(dst),
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
		Config:    snap.ConfigDigest,
	}
	if b, err := json.MarshalIndent(meta, "", "  "); err == nil {
		_ = os.WriteFile(filepath.Join(archiveDir, "meta.json"), b, 0o644)
	}

	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
