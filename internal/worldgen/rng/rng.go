// Package rng provides the seeded random streams used by every generation
// stage. Nothing in worldgen touches a global source.
package rng

import "math/rand/v2"

func mix64(z uint64) uint64 {
	z += 0x9e3779b97f4a7c15
	z = (z ^ (z >> 30)) * 0xbf58476d1ce4e5b9
	z = (z ^ (z >> 27)) * 0x94d049bb133111eb
	return z ^ (z >> 31)
}

// Hash2 is a stateless hash of a seed and a cell coordinate.
func Hash2(seed int64, x, y int) uint64 {
	ux := uint64(uint32(int32(x)))
	uy := uint64(uint32(int32(y)))
	v := uint64(seed) ^ (ux * 0x9e3779b97f4a7c15) ^ (uy * 0xbf58476d1ce4e5b9)
	return mix64(v)
}

// Derive mixes salts into a seed so that sibling stages get independent streams.
func Derive(seed int64, salts ...int64) int64 {
	h := mix64(uint64(seed))
	for _, s := range salts {
		h = mix64(h ^ uint64(s))
	}
	return int64(h)
}

type Stream struct {
	r *rand.Rand
}

func New(seed int64) *Stream {
	s := uint64(seed)
	return &Stream{r: rand.New(rand.NewPCG(mix64(s), mix64(s^0xda3e39cb94b95bdb)))}
}

// Float64 returns a value in [0,1).
func (s *Stream) Float64() float64 { return s.r.Float64() }

// Range returns a value in [lo,hi).
func (s *Stream) Range(lo, hi float64) float64 {
	return lo + (hi-lo)*s.r.Float64()
}

// IntN returns a value in [0,n). n <= 0 yields 0.
func (s *Stream) IntN(n int) int {
	if n <= 0 {
		return 0
	}
	return s.r.IntN(n)
}

// IntRange returns a value in [lo,hi).
func (s *Stream) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.IntN(hi-lo)
}
