package tessellation

import "math"

// bucketIndex is a uniform grid of seed buckets sized so that each bucket
// holds about one seed on average. Built once, then queried read-only from
// many goroutines.
type bucketIndex struct {
	seeds   []Vec2
	cell    float64
	cols    int
	rows    int
	buckets [][]int32
}

func newBucketIndex(seeds []Vec2, width, height int) *bucketIndex {
	cell := math.Sqrt(float64(width) * float64(height) / float64(len(seeds)))
	if cell < 1 {
		cell = 1
	}
	b := &bucketIndex{
		seeds: seeds,
		cell:  cell,
		cols:  max(1, int(math.Ceil(float64(width)/cell))),
		rows:  max(1, int(math.Ceil(float64(height)/cell))),
	}
	b.buckets = make([][]int32, b.cols*b.rows)
	for i, s := range seeds {
		bx, by := b.bucketOf(s.X, s.Y)
		k := by*b.cols + bx
		b.buckets[k] = append(b.buckets[k], int32(i))
	}
	return b
}

func (b *bucketIndex) bucketOf(x, y float64) (int, int) {
	bx := min(max(int(x/b.cell), 0), b.cols-1)
	by := min(max(int(y/b.cell), 0), b.rows-1)
	return bx, by
}

// nearest returns the index of the closest seed; equal distances resolve to
// the lowest index.
func (b *bucketIndex) nearest(px, py float64) int {
	bx, by := b.bucketOf(px, py)
	best := -1
	bestD2 := math.Inf(1)

	visit := func(cx, cy int) {
		if cx < 0 || cy < 0 || cx >= b.cols || cy >= b.rows {
			return
		}
		for _, i := range b.buckets[cy*b.cols+cx] {
			s := b.seeds[i]
			dx := px - s.X
			dy := py - s.Y
			d2 := dx*dx + dy*dy
			if d2 < bestD2 || (d2 == bestD2 && int(i) < best) {
				bestD2 = d2
				best = int(i)
			}
		}
	}

	maxRing := max(b.cols, b.rows)
	for r := 0; r <= maxRing; r++ {
		for cy := by - r; cy <= by+r; cy++ {
			if cy == by-r || cy == by+r {
				for cx := bx - r; cx <= bx+r; cx++ {
					visit(cx, cy)
				}
				continue
			}
			visit(bx-r, cy)
			if r > 0 {
				visit(bx+r, cy)
			}
		}
		// Everything beyond ring r is at least r*cell away.
		if best >= 0 {
			gap := float64(r) * b.cell
			if bestD2 < gap*gap {
				break
			}
		}
	}
	return best
}
