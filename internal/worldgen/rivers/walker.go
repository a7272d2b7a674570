package rivers

import (
	"math"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
	"terraforge.ai/internal/worldgen/rng"
)

// walker is the mutable state of one river while it is being traced.
type walker struct {
	id        int
	pos       field.Point
	dir       field.Point
	remaining float64
	radius    int
}

// tracer owns the attractiveness accumulator for the duration of one
// Generate call; rivers are walked strictly one after another.
type tracer struct {
	p      Params
	s      *rng.Stream
	attr   *field.Scalar
	out    *field.PointSet
	warn   *issues.List
	width  int
	height int
}

func (t *tracer) run(w *walker) Trace {
	tr := Trace{ID: w.id, Origin: w.pos, Length: w.remaining, Radius: w.radius}
	for w.remaining > 0 {
		if tr.Steps >= t.p.MaxSteps {
			t.warn.Exhausted("river %d hit the %d step limit with %.1f length left", w.id, t.p.MaxSteps, w.remaining)
			tr.Stalled = true
			break
		}
		if w.dir == (field.Point{}) {
			t.warn.Exhausted("river %d found no direction at (%d,%d)", w.id, w.pos.X, w.pos.Y)
			tr.Stalled = true
			break
		}
		end := field.Point{X: w.pos.X + w.dir.X, Y: w.pos.Y + w.dir.Y}

		r := w.radius
		line(w.pos, end, func(x, y int) { t.carve(x, y, r) })
		line(w.pos, end, func(x, y int) { t.suppress(x, y, r/2) })

		if t.s.Float64() < t.p.RadiusDecayChance && w.radius > t.p.MinRadius {
			w.radius--
		}

		w.remaining -= math.Hypot(float64(w.dir.X), float64(w.dir.Y))
		w.pos = end
		w.dir = t.direction(w.pos, t.p.StepSearchRadius)

		tr.Steps++
		tr.Remaining = append(tr.Remaining, w.remaining)
	}
	return tr
}

// direction returns the offset from pos to the most attractive in-bounds cell
// within radius, excluding pos itself. A zero offset means nothing qualified.
func (t *tracer) direction(pos field.Point, radius int) field.Point {
	best := field.Point{X: pos.X, Y: pos.Y}
	bestScore := math.Inf(-1)
	for y := pos.Y - radius; y <= pos.Y+radius; y++ {
		for x := pos.X - radius; x <= pos.X+radius; x++ {
			if !t.attr.InBounds(x, y) || (x == pos.X && y == pos.Y) {
				continue
			}
			score := t.attr.At(x, y) + t.s.Range(jitterMin, 0)
			if score > bestScore {
				bestScore = score
				best = field.Point{X: x, Y: y}
			}
		}
	}
	return field.Point{X: best.X - pos.X, Y: best.Y - pos.Y}
}

func (t *tracer) carve(cx, cy, r int) {
	disc(cx, cy, r, t.width, t.height, func(x, y int) {
		t.out.Add(field.Point{X: x, Y: y}, Payload)
	})
}

func (t *tracer) suppress(cx, cy, r int) {
	disc(cx, cy, r, t.width, t.height, func(x, y int) {
		t.attr.Set(x, y, 0)
	})
}

// disc visits in-bounds cells within Euclidean distance r of (cx,cy).
func disc(cx, cy, r, width, height int, visit func(x, y int)) {
	r2 := r * r
	for y := max(0, cy-r); y <= min(height-1, cy+r); y++ {
		dy := y - cy
		for x := max(0, cx-r); x <= min(width-1, cx+r); x++ {
			dx := x - cx
			if dx*dx+dy*dy <= r2 {
				visit(x, y)
			}
		}
	}
}

// line walks the cells of the segment a-b with integer Bresenham, all octants,
// both endpoints included.
func line(a, b field.Point, plot func(x, y int)) {
	x0, y0 := a.X, a.Y
	dx := abs(b.X - x0)
	dy := -abs(b.Y - y0)
	sx, sy := 1, 1
	if x0 > b.X {
		sx = -1
	}
	if y0 > b.Y {
		sy = -1
	}
	e := dx + dy
	for {
		plot(x0, y0)
		if x0 == b.X && y0 == b.Y {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
