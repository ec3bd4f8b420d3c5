package formulate

import (
	"errors"
	"math"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/cashflow"
	"github.com/theirongolddev/cfplan/internal/coefficient"
	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
	"github.com/theirongolddev/cfplan/internal/rates"
)

var ratesDate = civil.Date{Year: 2024, Month: 11, Day: 1}

func formulate(t *testing.T, end civil.Date, opening float64) *Formulation {
	t.Helper()
	cal, err := cashflow.Build(civil.Date{Year: 2024, Month: 11, Day: 6}, end, config.DefaultSchedule())
	if err != nil {
		t.Fatal(err)
	}
	amounts := config.DefaultAmounts()
	amounts.OpeningBalance = opening
	if err := cashflow.AssignNetFlows(cal, amounts, config.DefaultIncrements()); err != nil {
		t.Fatal(err)
	}
	g := network.Build(cal)

	src := rates.NewTable([]rates.Bucket{{MinDays: 30, MaxDays: 1799, Effective: ratesDate, Rate: 0.10}})
	coeffs, err := coefficient.Compute(g, ratesDate, src)
	if err != nil {
		t.Fatal(err)
	}
	f, err := Formulate(g, coeffs, DefaultParams())
	if err != nil {
		t.Fatalf("Formulate: %v", err)
	}
	return f
}

// carryOnly keeps every unit liquid and rolls it forward one day at a time.
func carryOnly(t *testing.T, f *Formulation) []float64 {
	t.Helper()
	values := make([]float64, f.Model.NumVars())
	balance := 0.0
	for i := 0; i < f.Graph.Terminal(); i++ {
		balance += f.Graph.Nodes()[i].NetFlow
		idx, ok := f.Var(model.Carry, model.Arc{From: i, To: i + 1})
		if !ok {
			t.Fatalf("no carry arc %d->%d", i, i+1)
		}
		values[idx] = balance
	}
	return values
}

func TestFormulate_Counts(t *testing.T) {
	f := formulate(t, civil.Date{Year: 2024, Month: 12, Day: 10}, 0)
	g := f.Graph
	m := f.Model

	inv := g.ArcCount(model.Investable)
	carry := g.ArcCount(model.Carry)
	if inv == 0 {
		t.Fatal("no investable arcs")
	}
	if got, want := f.FlowConstraints(), len(g.Nodes())-1; got != want {
		t.Fatalf("FlowConstraints() = %d, want %d", got, want)
	}
	if got, want := m.NumConstraints(), len(g.Nodes())-1+2*inv; got != want {
		t.Fatalf("NumConstraints() = %d, want %d", got, want)
	}
	if got, want := m.NumVars(), 2*inv+carry; got != want {
		t.Fatalf("NumVars() = %d, want %d", got, want)
	}
	if m.NumBinaries() != inv {
		t.Fatalf("NumBinaries() = %d, want %d", m.NumBinaries(), inv)
	}
	if !m.Maximize {
		t.Fatal("objective is not maximised")
	}
	term := g.Terminal()
	wantObj := len(g.Predecessors(model.Investable, term)) + len(g.Predecessors(model.Carry, term))
	if len(m.Objective) != wantObj {
		t.Fatalf("objective terms = %d, want %d", len(m.Objective), wantObj)
	}
	for _, name := range []string{"x_0_30", "z_4_34", "y_0_1", "y_33_34"} {
		if _, ok := m.VarIndex(name); !ok {
			t.Errorf("variable %s missing", name)
		}
	}
}

func TestFormulate_EitherOrRows(t *testing.T) {
	f := formulate(t, civil.Date{Year: 2024, Month: 12, Day: 10}, 0)
	m := f.Model

	var hi, lo *mip.Constraint
	for i := range m.Constraints {
		switch m.Constraints[i].Name {
		case "inv_hi_0_30":
			hi = &m.Constraints[i]
		case "inv_lo_0_30":
			lo = &m.Constraints[i]
		}
	}
	if hi == nil || lo == nil {
		t.Fatal("either/or rows for 0->30 missing")
	}
	if hi.Sense != mip.LE || hi.RHS != 0 || hi.Terms[1].Coef != -13_000_000 {
		t.Fatalf("inv_hi_0_30 = %+v", *hi)
	}
	if lo.Sense != mip.LE || lo.RHS != 12_500_000 || lo.Terms[0].Coef != -1 || lo.Terms[1].Coef != 13_000_000 {
		t.Fatalf("inv_lo_0_30 = %+v", *lo)
	}
}

func TestFormulate_CarryPlanIsFeasible(t *testing.T) {
	f := formulate(t, civil.Date{Year: 2024, Month: 12, Day: 10}, 12_000)

	values := carryOnly(t, f)
	if err := f.Model.Check(values, 1e-9); err != nil {
		t.Fatalf("carry-only plan fails Check: %v", err)
	}
	// 12,000 opening + 19,750 in - 10,185 out
	if got := f.Model.Evaluate(values); math.Abs(got-21_565) > 1e-6 {
		t.Fatalf("Evaluate = %v, want 21565", got)
	}
}

func TestFormulate_DepositPlanIsFeasible(t *testing.T) {
	f := formulate(t, civil.Date{Year: 2024, Month: 12, Day: 10}, 600_000)
	g := f.Graph

	// Deposit 550,000 on day 0 until the terminal day, carry the rest.
	dep := model.Arc{From: 0, To: g.Terminal()}
	factor, ok := f.Coefficients.Get(dep.From, dep.To)
	if !ok {
		t.Fatalf("no factor for %v", dep)
	}
	values := make([]float64, f.Model.NumVars())
	xi, _ := f.Var(model.Investable, dep)
	zi, _ := f.Indicator(dep)
	values[xi], values[zi] = 550_000, 1

	balance := -550_000.0
	for i := 0; i < g.Terminal(); i++ {
		balance += g.Nodes()[i].NetFlow
		yi, _ := f.Var(model.Carry, model.Arc{From: i, To: i + 1})
		values[yi] = balance
	}
	if err := f.Model.Check(values, 1e-9); err != nil {
		t.Fatalf("deposit plan fails Check: %v", err)
	}

	want := balance + 550_000*factor
	if got := f.Model.Evaluate(values); math.Abs(got-want) > 1e-6 {
		t.Fatalf("Evaluate = %v, want %v", got, want)
	}
}

func TestFormulate_Errors(t *testing.T) {
	cal, err := cashflow.Build(civil.Date{Year: 2024, Month: 11, Day: 6}, civil.Date{Year: 2024, Month: 12, Day: 10}, config.DefaultSchedule())
	if err != nil {
		t.Fatal(err)
	}
	g := network.Build(cal)

	if _, err := Formulate(g, coefficient.Table{}, DefaultParams()); !errors.Is(err, ErrMissingCoefficient) {
		t.Fatalf("Formulate without factors = %v, want ErrMissingCoefficient", err)
	}
	if _, err := Formulate(g, coefficient.Table{}, Params{BigM: 10, ToleranceBand: 20}); err == nil {
		t.Fatal("Formulate with band above M: want error")
	}
}
