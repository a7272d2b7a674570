package rivers

import (
	"errors"
	"testing"

	"terraforge.ai/internal/worldgen/curve"
	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
)

// ramp rises from 0 at x=0 to 1 at x=width-1, so a few columns sit in the
// coastline band.
func ramp(width, height int) *field.Scalar {
	f := field.NewScalar(width, height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			f.Set(x, y, float64(x)/float64(width-1))
		}
	}
	return f
}

func flat(width, height int, v float64) *field.Scalar {
	f := field.NewScalar(width, height)
	f.Fill(v)
	return f
}

func testParams() Params {
	return Params{
		NumRivers:          5,
		Seed:               11,
		LengthDistribution: curve.Linear(20, 60),
		SizeDistribution:   curve.Linear(3, 6),
		RadiusDecayChance:  0.3,
		SearchRadius:       8,
	}
}

func TestGenerate_NoRivers(t *testing.T) {
	p := testParams()
	p.NumRivers = 0
	res, err := Generate(101, 40, p, ramp(101, 40), flat(101, 40, 0.5))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Points.Len() != 0 || len(res.Traces) != 0 {
		t.Fatalf("points=%d traces=%d want empty", res.Points.Len(), len(res.Traces))
	}
}

func TestGenerate_PointsInBoundsAndLengthDecreases(t *testing.T) {
	res, err := Generate(101, 40, testParams(), ramp(101, 40), flat(101, 40, 0.5))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if len(res.Traces) != 5 {
		t.Fatalf("traces=%d want 5", len(res.Traces))
	}
	if res.Points.Len() == 0 {
		t.Fatalf("expected carved cells")
	}
	for _, e := range res.Points.Entries() {
		if e.Pos.X < 0 || e.Pos.Y < 0 || e.Pos.X >= 101 || e.Pos.Y >= 40 {
			t.Fatalf("point out of bounds: %+v", e.Pos)
		}
		if e.Payload != Payload {
			t.Fatalf("payload=%d want %d", e.Payload, Payload)
		}
	}
	for _, tr := range res.Traces {
		prev := tr.Length
		for i, r := range tr.Remaining {
			if r >= prev {
				t.Fatalf("river %d step %d: remaining %v did not decrease from %v", tr.ID, i, r, prev)
			}
			prev = r
		}
		if !tr.Stalled && len(tr.Remaining) > 0 && tr.Remaining[len(tr.Remaining)-1] > 0 {
			t.Fatalf("river %d ended with length left but not stalled", tr.ID)
		}
		if v := tr.Origin.X; v < 54 || v > 56 {
			t.Fatalf("river %d origin %+v not on the coastline band", tr.ID, tr.Origin)
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	a, _ := Generate(101, 40, testParams(), ramp(101, 40), flat(101, 40, 0.5))
	b, _ := Generate(101, 40, testParams(), ramp(101, 40), flat(101, 40, 0.5))
	ea, eb := a.Points.Entries(), b.Points.Entries()
	if len(ea) != len(eb) {
		t.Fatalf("len %d vs %d", len(ea), len(eb))
	}
	for i := range ea {
		if ea[i] != eb[i] {
			t.Fatalf("entry %d: %+v vs %+v", i, ea[i], eb[i])
		}
	}
}

func TestGenerate_NoCoastlineIsSkipped(t *testing.T) {
	res, err := Generate(30, 30, testParams(), flat(30, 30, 0.9), flat(30, 30, 0.5))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Points.Len() != 0 {
		t.Fatalf("points=%d want 0", res.Points.Len())
	}
	if len(res.Issues) != 1 || res.Issues[0].Code != issues.ErrCodeDegenerateInput {
		t.Fatalf("issues=%+v", res.Issues)
	}
}

func TestGenerate_StepLimitStallsRiver(t *testing.T) {
	p := testParams()
	p.NumRivers = 1
	p.LengthDistribution = curve.Constant(1e6)
	p.MaxSteps = 10
	res, err := Generate(101, 40, p, ramp(101, 40), flat(101, 40, 0.5))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	tr := res.Traces[0]
	if !tr.Stalled || tr.Steps > 10 {
		t.Fatalf("trace=%+v want stalled within 10 steps", tr)
	}
	found := false
	for _, is := range res.Issues {
		if is.Code == issues.ErrCodeSearchExhausted {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected search-exhausted issue, got %+v", res.Issues)
	}
}

func TestGenerate_SuppressesPath(t *testing.T) {
	res, err := Generate(101, 40, testParams(), ramp(101, 40), flat(101, 40, 0.5))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	for _, tr := range res.Traces {
		if tr.Steps > 0 && res.Attractiveness.At(tr.Origin.X, tr.Origin.Y) != 0 {
			t.Fatalf("origin of river %d not suppressed", tr.ID)
		}
	}
}

func TestGenerate_InvalidParameters(t *testing.T) {
	p := testParams()
	p.SearchRadius = 0
	if _, err := Generate(10, 10, p, flat(10, 10, 0), flat(10, 10, 0)); !errors.Is(err, issues.ErrInvalidParameter) {
		t.Fatalf("search radius 0 err=%v", err)
	}
	if _, err := Generate(10, 10, testParams(), flat(5, 10, 0), flat(10, 10, 0)); !errors.Is(err, issues.ErrInvalidParameter) {
		t.Fatalf("mismatched elevation err=%v", err)
	}
	if _, err := Generate(0, 10, testParams(), nil, nil); !errors.Is(err, issues.ErrInvalidParameter) {
		t.Fatalf("width=0 err=%v", err)
	}
}

func TestLine_AllOctantsConnected(t *testing.T) {
	ends := []field.Point{{X: 5, Y: 0}, {X: 5, Y: 3}, {X: 3, Y: 5}, {X: 0, Y: 5}, {X: -3, Y: 5},
		{X: -5, Y: 2}, {X: -5, Y: 0}, {X: -4, Y: -4}, {X: 0, Y: -5}, {X: 2, Y: -5}, {X: 0, Y: 0}}
	for _, e := range ends {
		var pts []field.Point
		line(field.Point{}, e, func(x, y int) { pts = append(pts, field.Point{X: x, Y: y}) })
		if pts[0] != (field.Point{}) || pts[len(pts)-1] != e {
			t.Fatalf("line to %+v: endpoints %+v..%+v", e, pts[0], pts[len(pts)-1])
		}
		for i := 1; i < len(pts); i++ {
			if abs(pts[i].X-pts[i-1].X) > 1 || abs(pts[i].Y-pts[i-1].Y) > 1 {
				t.Fatalf("line to %+v has a gap at %d", e, i)
			}
		}
		if want := max(abs(e.X), abs(e.Y)) + 1; len(pts) != want {
			t.Fatalf("line to %+v: %d cells want %d", e, len(pts), want)
		}
	}
}

func TestDisc_ClipsToGrid(t *testing.T) {
	n := 0
	disc(0, 0, 2, 10, 10, func(x, y int) {
		if x < 0 || y < 0 {
			t.Fatalf("visited out of bounds (%d,%d)", x, y)
		}
		n++
	})
	// (0,0) (1,0) (2,0) (0,1) (1,1) (0,2)
	if n != 6 {
		t.Fatalf("visited %d cells want 6", n)
	}
}
