package snapshot

import (
	"bufio"
	"encoding/gob"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"
)

const Version = 1

// Header is also written as a plain JSON line ahead of the gob body so tools
// can identify a snapshot without decoding the layers.
type Header struct {
	Version int    `json:"version"`
	Seed    int64  `json:"seed"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Digest  string `json:"digest"`
}

type WorldV1 struct {
	Header Header `json:"header"`

	ConfigDigest   string            `json:"config_digest,omitempty"`
	CatalogDigests map[string]string `json:"catalog_digests,omitempty"`

	Elevation   []float64 `json:"elevation"`
	Moisture    []float64 `json:"moisture"`
	Temperature []float64 `json:"temperature"`
	Vegetation  []float64 `json:"vegetation"`

	Biomes        []uint16   `json:"biomes"`
	BiomePalette  []SwatchV1 `json:"biome_palette"`
	ResourceKinds []SwatchV1 `json:"resource_kinds"`
	Rivers        []PointV1  `json:"rivers"`
	Resources     []PointV1  `json:"resources"`
	RegionMap     []int32    `json:"region_map,omitempty"`
	Plates        []PlateV1  `json:"plates,omitempty"`
	RiverTraces   []TraceV1  `json:"river_traces,omitempty"`
	Patches       []PatchV1  `json:"patches,omitempty"`
	Stages        []StageV1  `json:"stages,omitempty"`
	Issues        []IssueV1  `json:"issues,omitempty"`
}

type SwatchV1 struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type PointV1 struct {
	X       int    `json:"x"`
	Y       int    `json:"y"`
	Payload uint16 `json:"payload"`
}

type PlateV1 struct {
	SeedX       float64 `json:"seed_x"`
	SeedY       float64 `json:"seed_y"`
	CenterX     float64 `json:"center_x"`
	CenterY     float64 `json:"center_y"`
	MaxDistance float64 `json:"max_distance"`
	Depressed   bool    `json:"depressed"`
	Cells       int     `json:"cells"`
}

type TraceV1 struct {
	ID      int     `json:"id"`
	X       int     `json:"x"`
	Y       int     `json:"y"`
	Length  float64 `json:"length"`
	Radius  int     `json:"radius"`
	Steps   int     `json:"steps"`
	Stalled bool    `json:"stalled,omitempty"`
}

type PatchV1 struct {
	Resource int `json:"resource"`
	X        int `json:"x"`
	Y        int `json:"y"`
	Width    int `json:"width"`
	Height   int `json:"height"`
	Cells    int `json:"cells"`
}

type StageV1 struct {
	Stage      string  `json:"stage"`
	Layer      string  `json:"layer,omitempty"`
	DurationNs int64   `json:"duration_ns"`
	HasStats   bool    `json:"has_stats,omitempty"`
	Min        float64 `json:"min,omitempty"`
	Max        float64 `json:"max,omitempty"`
	Mean       float64 `json:"mean,omitempty"`
}

type IssueV1 struct {
	Stage   string `json:"stage"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// WriteSnapshot writes to a temporary file and renames it into place, so a
// failed write never leaves a truncated snapshot at path.
func WriteSnapshot(path string, snap WorldV1) (err error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err := encode(f, snap); err != nil {
		return err
	}
	if err := f.Sync(); err != nil {
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// encode writes the header line and gob body through zstd. The buffer is
// flushed and the encoder closed before returning; either failing is an error.
func encode(w io.Writer, snap WorldV1) error {
	enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return err
	}
	bw := bufio.NewWriterSize(enc, 256*1024)

	hb, _ := json.Marshal(snap.Header)
	if _, err := bw.Write(hb); err != nil {
		_ = enc.Close()
		return err
	}
	if err := bw.WriteByte('\n'); err != nil {
		_ = enc.Close()
		return err
	}
	if err := gob.NewEncoder(bw).Encode(&snap); err != nil {
		_ = enc.Close()
		return fmt.Errorf("gob encode: %w", err)
	}
	if err := bw.Flush(); err != nil {
		_ = enc.Close()
		return fmt.Errorf("flush: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("zstd close: %w", err)
	}
	return nil
}

func ReadSnapshot(path string) (WorldV1, error) {
	var snap WorldV1
	f, err := os.Open(path)
	if err != nil {
		return snap, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return snap, err
	}
	defer dec.Close()

	br := bufio.NewReaderSize(dec, 256*1024)

	// The gob body repeats the header.
	if _, err := br.ReadBytes('\n'); err != nil {
		return snap, fmt.Errorf("read header: %w", err)
	}

	if err := gob.NewDecoder(br).Decode(&snap); err != nil {
		return snap, fmt.Errorf("gob decode: %w", err)
	}
	if snap.Header.Version != Version {
		return snap, fmt.Errorf("unsupported snapshot version %d", snap.Header.Version)
	}
	return snap, nil
}

// ReadHeader decodes only the leading JSON line.
func ReadHeader(path string) (Header, error) {
	var h Header
	f, err := os.Open(path)
	if err != nil {
		return h, err
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return h, err
	}
	defer dec.Close()

	line, err := bufio.NewReader(dec).ReadBytes('\n')
	if err != nil {
		return h, fmt.Errorf("read header: %w", err)
	}
	if err := json.Unmarshal(line, &h); err != nil {
		return h, fmt.Errorf("header: %w", err)
	}
	return h, nil
}
