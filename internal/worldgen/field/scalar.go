// Package field holds the dense grids and point sets passed between
// generation stages. Storage is row-major: index = y*Width + x.
package field

import "math"

type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

type Scalar struct {
	Width  int
	Height int
	Data   []float64
}

func NewScalar(width, height int) *Scalar {
	return &Scalar{Width: width, Height: height, Data: make([]float64, width*height)}
}

func (s *Scalar) Index(x, y int) int { return y*s.Width + x }

func (s *Scalar) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < s.Width && y < s.Height
}

func (s *Scalar) At(x, y int) float64 { return s.Data[y*s.Width+x] }

func (s *Scalar) Set(x, y int, v float64) { s.Data[y*s.Width+x] = v }

func (s *Scalar) Fill(v float64) {
	for i := range s.Data {
		s.Data[i] = v
	}
}

func (s *Scalar) Clone() *Scalar {
	out := &Scalar{Width: s.Width, Height: s.Height, Data: make([]float64, len(s.Data))}
	copy(out.Data, s.Data)
	return out
}

// Stats summarises a field. An empty field reports zeros.
type Stats struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Mean float64 `json:"mean"`
}

func (s *Scalar) Stats() Stats {
	if len(s.Data) == 0 {
		return Stats{}
	}
	st := Stats{Min: math.Inf(1), Max: math.Inf(-1)}
	var sum float64
	for _, v := range s.Data {
		if v < st.Min {
			st.Min = v
		}
		if v > st.Max {
			st.Max = v
		}
		sum += v
	}
	st.Mean = sum / float64(len(s.Data))
	return st
}

func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// InverseLerp maps v from [a,b] to [0,1]. a == b yields 0.
func InverseLerp(a, b, v float64) float64 {
	if a == b {
		return 0
	}
	return Clamp01((v - a) / (b - a))
}
