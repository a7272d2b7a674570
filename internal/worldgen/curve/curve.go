// Package curve evaluates piecewise-linear distribution curves used to turn a
// uniform draw into a river length, a river radius or a patch size.
package curve

import (
	"fmt"
	"sort"
)

type Key struct {
	T float64 `json:"t" yaml:"t"`
	V float64 `json:"v" yaml:"v"`
}

type Curve struct {
	Keys []Key `json:"keys" yaml:"keys"`
}

// Constant is a flat curve.
func Constant(v float64) Curve { return Curve{Keys: []Key{{T: 0, V: v}}} }

// Linear runs from a at t=0 to b at t=1.
func Linear(a, b float64) Curve { return Curve{Keys: []Key{{T: 0, V: a}, {T: 1, V: b}}} }

// Validate requires strictly increasing key times.
func (c Curve) Validate() error {
	for i := 1; i < len(c.Keys); i++ {
		if c.Keys[i].T <= c.Keys[i-1].T {
			return fmt.Errorf("curve keys must be strictly increasing in t (key %d)", i)
		}
	}
	return nil
}

// Evaluate clamps t to the key range. An empty curve evaluates to 0.
func (c Curve) Evaluate(t float64) float64 {
	n := len(c.Keys)
	switch {
	case n == 0:
		return 0
	case t <= c.Keys[0].T:
		return c.Keys[0].V
	case t >= c.Keys[n-1].T:
		return c.Keys[n-1].V
	}
	i := sort.Search(n, func(i int) bool { return c.Keys[i].T >= t })
	a, b := c.Keys[i-1], c.Keys[i]
	f := (t - a.T) / (b.T - a.T)
	return a.V + (b.V-a.V)*f
}
