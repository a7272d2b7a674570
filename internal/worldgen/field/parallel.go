package field

import (
	"runtime"

	"golang.org/x/sync/errgroup"
)

// minRowsPerBand keeps tiny grids on a single goroutine.
const minRowsPerBand = 8

// ParallelRows splits [0,height) into disjoint bands and runs fn on each.
// fn must only write to rows inside its band.
func ParallelRows(height int, fn func(y0, y1 int)) {
	if height <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	bands := (height + minRowsPerBand - 1) / minRowsPerBand
	if bands > workers*4 {
		bands = workers * 4
	}
	if bands <= 1 {
		fn(0, height)
		return
	}
	step := (height + bands - 1) / bands

	var g errgroup.Group
	g.SetLimit(workers)
	for y0 := 0; y0 < height; y0 += step {
		y0 := y0
		y1 := y0 + step
		if y1 > height {
			y1 = height
		}
		g.Go(func() error {
			fn(y0, y1)
			return nil
		})
	}
	_ = g.Wait()
}
