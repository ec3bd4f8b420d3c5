package bnb

import (
	"errors"
	"math"
	"testing"

	"github.com/theirongolddev/cfplan/internal/mip"
)

// chain is a four-day cash flow: an opening balance, a bill on day 1 and one
// deposit spanning the whole chain, with the planner's big-M band rows.
func chain(opening float64) *mip.Model {
	const (
		bigM = 13e6
		band = 5e5
	)
	m := mip.NewModel("chain")
	x := m.AddContinuous("x_0_3")
	z := m.AddBinary("z_0_3")
	y01 := m.AddContinuous("y_0_1")
	y12 := m.AddContinuous("y_1_2")
	y23 := m.AddContinuous("y_2_3")
	m.AddConstraint("flow_0", []mip.Term{{Var: x, Coef: 1}, {Var: y01, Coef: 1}}, mip.EQ, opening)
	m.AddConstraint("flow_1", []mip.Term{{Var: y12, Coef: 1}, {Var: y01, Coef: -1}}, mip.EQ, -10_000)
	m.AddConstraint("flow_2", []mip.Term{{Var: y23, Coef: 1}, {Var: y12, Coef: -1}}, mip.EQ, 0)
	m.AddConstraint("inv_hi_0_3", []mip.Term{{Var: x, Coef: 1}, {Var: z, Coef: -bigM}}, mip.LE, 0)
	m.AddConstraint("inv_lo_0_3", []mip.Term{{Var: x, Coef: -1}, {Var: z, Coef: bigM}}, mip.LE, bigM-band)
	m.SetObjective([]mip.Term{{Var: x, Coef: 1.02}, {Var: y23, Coef: 1}}, true)
	return m
}

func TestSolve_BigMChain(t *testing.T) {
	tests := []struct {
		opening float64
		want    float64
	}{
		{600_000, 1.02 * 590_000},
		{400_000, 390_000}, // below the band nothing is deposited
	}
	for _, tt := range tests {
		m := chain(tt.opening)
		sol := solve(t, New(Options{}), m)
		if sol.Status != mip.Optimal {
			t.Fatalf("opening %v: Status = %s, want optimal", tt.opening, sol.Status)
		}
		if math.Abs(sol.Objective-tt.want) > 1e-6 {
			t.Fatalf("opening %v: Objective = %v, want %v", tt.opening, sol.Objective, tt.want)
		}
		if err := m.Check(sol.Values, 1e-6); err != nil {
			t.Fatalf("opening %v: solution fails Check: %v", tt.opening, err)
		}
	}
}

func TestRelaxation_RedundantEquality(t *testing.T) {
	m := mip.NewModel("redundant")
	x := m.AddContinuous("x")
	y := m.AddContinuous("y")
	m.AddConstraint("sum", []mip.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, mip.EQ, 10)
	m.AddConstraint("sum_twice", []mip.Term{{Var: x, Coef: 2}, {Var: y, Coef: 2}}, mip.EQ, 20)
	m.AddConstraint("cap", []mip.Term{{Var: x, Coef: 1}}, mip.LE, 4)
	m.SetObjective([]mip.Term{{Var: x, Coef: 3}, {Var: y, Coef: 1}}, true)

	obj, v, err := relaxation{model: m, tol: 1e-10}.solve([]float64{0, 0}, []float64{math.Inf(1), math.Inf(1)})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	if math.Abs(obj-18) > 1e-9 || math.Abs(v[x]-4) > 1e-9 || math.Abs(v[y]-6) > 1e-9 {
		t.Fatalf("solve = %v at %v, want 18 at [4 6]", obj, v)
	}
}

func TestRelaxation_CoverRow(t *testing.T) {
	m := mip.NewModel("cover")
	x := m.AddContinuous("x")
	y := m.AddContinuous("y")
	m.AddConstraint("cover", []mip.Term{{Var: x, Coef: 1}, {Var: y, Coef: 1}}, mip.GE, 5)
	m.SetObjective([]mip.Term{{Var: x, Coef: 2}, {Var: y, Coef: 3}}, false)

	obj, v, err := relaxation{model: m, tol: 1e-10}.solve([]float64{0, 1}, []float64{math.Inf(1), math.Inf(1)})
	if err != nil {
		t.Fatalf("solve: %v", err)
	}
	// y is held at its lower bound of 1.
	if math.Abs(obj-11) > 1e-9 || math.Abs(v[x]-4) > 1e-9 || math.Abs(v[y]-1) > 1e-9 {
		t.Fatalf("solve = %v at %v, want 11 at [4 1]", obj, v)
	}

	if _, _, err := (relaxation{model: m, tol: 1e-10}).solve([]float64{0, 0}, []float64{2, 2}); !errors.Is(err, errRelaxInfeasible) {
		t.Fatalf("solve with x, y <= 2 = %v, want errRelaxInfeasible", err)
	}
}
