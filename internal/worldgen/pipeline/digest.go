package pipeline

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"

	"terraforge.ai/internal/worldgen/field"
)

// Digest hashes the dimensions, seed, every layer, the biome labels and both
// point sets in insertion order. Equal digests mean bit-identical worlds.
func (w *World) Digest() string {
	h := sha256.New()
	var tmp [8]byte

	digestWriteU64(h, &tmp, uint64(w.Width))
	digestWriteU64(h, &tmp, uint64(w.Height))
	digestWriteU64(h, &tmp, uint64(w.Seed))
	for _, f := range []*field.Scalar{w.Elevation, w.Moisture, w.Temperature, w.Vegetation} {
		digestScalar(h, &tmp, f)
	}
	if w.Biomes != nil {
		for _, v := range w.Biomes.Data {
			binary.LittleEndian.PutUint16(tmp[:2], v)
			h.Write(tmp[:2])
		}
	}
	digestPoints(h, &tmp, w.Rivers)
	digestPoints(h, &tmp, w.Resources)
	return hex.EncodeToString(h.Sum(nil))
}

func digestWriteU64(h hash.Hash, tmp *[8]byte, v uint64) {
	binary.LittleEndian.PutUint64(tmp[:], v)
	h.Write(tmp[:])
}

func digestScalar(h hash.Hash, tmp *[8]byte, f *field.Scalar) {
	if f == nil {
		digestWriteU64(h, tmp, 0)
		return
	}
	digestWriteU64(h, tmp, uint64(len(f.Data)))
	for _, v := range f.Data {
		digestWriteU64(h, tmp, math.Float64bits(v))
	}
}

func digestPoints(h hash.Hash, tmp *[8]byte, p *field.PointSet) {
	digestWriteU64(h, tmp, uint64(p.Len()))
	if p == nil {
		return
	}
	for _, e := range p.Entries() {
		digestWriteU64(h, tmp, uint64(int64(e.Pos.X)))
		digestWriteU64(h, tmp, uint64(int64(e.Pos.Y)))
		digestWriteU64(h, tmp, uint64(e.Payload))
	}
}
