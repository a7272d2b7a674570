package tessellation

import "terraforge.ai/internal/worldgen/field"

// smooth box-filters src with a (2r+1)^2 window clipped to the grid, using a
// summed-area table so each cell costs O(1) regardless of r.
func smooth(src *field.Scalar, r int) *field.Scalar {
	w, h := src.Width, src.Height
	if r == 0 {
		return src.Clone()
	}
	iw := w + 1
	sat := make([]float64, iw*(h+1))
	for y := 0; y < h; y++ {
		var rowSum float64
		for x := 0; x < w; x++ {
			rowSum += src.Data[y*w+x]
			sat[(y+1)*iw+x+1] = sat[y*iw+x+1] + rowSum
		}
	}

	out := field.NewScalar(w, h)
	field.ParallelRows(h, func(y0, y1 int) {
		for y := y0; y < y1; y++ {
			ya := max(0, y-r)
			yb := min(h-1, y+r)
			for x := 0; x < w; x++ {
				xa := max(0, x-r)
				xb := min(w-1, x+r)
				area := float64((xb - xa + 1) * (yb - ya + 1))
				sum := sat[(yb+1)*iw+xb+1] - sat[ya*iw+xb+1] - sat[(yb+1)*iw+xa] + sat[ya*iw+xa]
				out.Data[y*w+x] = sum / area
			}
		}
	})
	return out
}
