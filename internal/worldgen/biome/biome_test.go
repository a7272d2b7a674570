package biome

import (
	"errors"
	"testing"

	"terraforge.ai/internal/worldgen/field"
	"terraforge.ai/internal/worldgen/issues"
)

func testCatalog(t *testing.T) *Catalog {
	t.Helper()
	c, err := NewCatalog([]Label{
		{Name: "OCEAN", Temperature: Range{0, 1}, Moisture: Range{0, 1}, Elevation: Range{0, 0.5}, Vegetation: Range{0, 1}, Rarity: 1},
		{Name: "DESERT", Temperature: Range{0.6, 1}, Moisture: Range{0, 0.3}, Elevation: Range{0.5, 1}, Vegetation: Range{0, 0.4}, Rarity: 1},
		{Name: "FOREST", Temperature: Range{0.2, 0.8}, Moisture: Range{0.4, 1}, Elevation: Range{0.5, 1}, Vegetation: Range{0.4, 1}, Rarity: 2},
		{Name: "PLAINS", Temperature: Range{0, 1}, Moisture: Range{0, 1}, Elevation: Range{0.5, 1}, Vegetation: Range{0, 1}, Rarity: 0.5},
	})
	if err != nil {
		t.Fatalf("NewCatalog: %v", err)
	}
	return c
}

func TestClassify_MidpointWins(t *testing.T) {
	c := testCatalog(t)
	forest, _ := c.Label(2)
	tm, mo, el, ve := forest.Temperature.Mid(), forest.Moisture.Mid(), forest.Elevation.Mid(), forest.Vegetation.Mid()
	if s := forest.Score(tm, mo, el, ve); s != 0 {
		t.Fatalf("midpoint score=%v want 0", s)
	}
	// PLAINS also accepts the cell but scores above zero.
	plains, _ := c.Label(3)
	if !plains.InRange(tm, mo, el, ve) || plains.Score(tm, mo, el, ve) == 0 {
		t.Fatalf("test setup: PLAINS should accept with non-zero score")
	}
	if got := c.Classify(tm, mo, el, ve); got != 2 {
		t.Fatalf("Classify=%d want FOREST(2)", got)
	}
}

func TestClassify_RejectsOutOfRange(t *testing.T) {
	c := testCatalog(t)
	// Desert ranges match, but elevation 0.3 only fits OCEAN.
	if got := c.Classify(0.9, 0.1, 0.3, 0.1); got != 0 {
		t.Fatalf("Classify=%d want OCEAN(0)", got)
	}
	if got := c.Classify(0.9, 0.1, 0.8, 0.1); got != 1 {
		t.Fatalf("Classify=%d want DESERT(1)", got)
	}
}

func TestClassify_Unclassified(t *testing.T) {
	c := testCatalog(t)
	if got := c.Classify(0.5, 0.5, 1.5, 0.5); got != Unclassified {
		t.Fatalf("Classify=%d want Unclassified", got)
	}
	if c.Color(Unclassified) != UnclassifiedColor {
		t.Fatalf("unclassified colour mismatch")
	}
	empty, _ := NewCatalog(nil)
	if empty.Classify(0, 0, 0, 0) != Unclassified {
		t.Fatalf("empty catalog must not default to a label")
	}
}

func TestScore_RarityWeighsAllButElevation(t *testing.T) {
	l := Label{Temperature: Range{0, 1}, Moisture: Range{0, 1}, Elevation: Range{0, 1}, Vegetation: Range{0, 1}, Rarity: 3}
	// deviations: t=0.1, m=0.2, v=0.1 weighted by 3, e=0.25 unweighted
	got := l.Score(0.6, 0.7, 0.75, 0.4)
	want := 3*(0.1+0.2+0.1) + 0.25
	if d := got - want; d > 1e-12 || d < -1e-12 {
		t.Fatalf("score=%v want %v", got, want)
	}
	l.Rarity = 0
	if got := l.Score(0.6, 0.5, 0.5, 0.5); got < 0.0999 || got > 0.1001 {
		t.Fatalf("rarity 0 should weigh as 1, score=%v", got)
	}
}

func TestClassifyField_MatchesPerCell(t *testing.T) {
	c := testCatalog(t)
	w, h := 37, 29
	tf, mf, ef, vf := field.NewScalar(w, h), field.NewScalar(w, h), field.NewScalar(w, h), field.NewScalar(w, h)
	for i := range tf.Data {
		tf.Data[i] = float64(i%7) / 6
		mf.Data[i] = float64(i%5) / 4
		ef.Data[i] = float64(i%11) / 10
		vf.Data[i] = float64(i%3) / 2
	}
	labels, err := c.ClassifyField(tf, mf, ef, vf)
	if err != nil {
		t.Fatalf("ClassifyField: %v", err)
	}
	for i := range labels.Data {
		if want := c.Classify(tf.Data[i], mf.Data[i], ef.Data[i], vf.Data[i]); labels.Data[i] != want {
			t.Fatalf("cell %d=%d want %d", i, labels.Data[i], want)
		}
	}
	if _, err := c.ClassifyField(tf, mf, field.NewScalar(3, 3), vf); !errors.Is(err, issues.ErrInvalidParameter) {
		t.Fatalf("mismatch err=%v", err)
	}
}

func TestNewCatalog_Rejects(t *testing.T) {
	cases := [][]Label{
		{{Name: ""}},
		{{Name: "A"}, {Name: "A"}},
		{{Name: "A", Moisture: Range{0.8, 0.2}}},
	}
	for i, labels := range cases {
		if _, err := NewCatalog(labels); !errors.Is(err, issues.ErrInvalidParameter) {
			t.Fatalf("case %d err=%v want ErrInvalidParameter", i, err)
		}
	}
	c := testCatalog(t)
	if id, ok := c.ID("FOREST"); !ok || id != 2 {
		t.Fatalf("ID(FOREST)=%d,%v", id, ok)
	}
}
