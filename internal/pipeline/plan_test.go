package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/fincal"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/rates"
)

var (
	start     = civil.Date{Year: 2024, Month: 11, Day: 6}
	end       = civil.Date{Year: 2024, Month: 12, Day: 10}
	ratesDate = civil.Date{Year: 2024, Month: 11, Day: 1}
)

// fakeSolver returns a canned solution and records what it was asked.
type fakeSolver struct {
	sol   *mip.Solution
	err   error
	calls int
	seen  *mip.Model
}

func (f *fakeSolver) Solve(_ context.Context, m *mip.Model) (*mip.Solution, error) {
	f.calls++
	f.seen = m
	return f.sol, f.err
}

func flatTable() *rates.Table {
	return rates.NewTable([]rates.Bucket{{MinDays: 30, MaxDays: 1799, Effective: ratesDate, Rate: 0.10}})
}

func testConfig(opening float64) config.Config {
	cfg := config.DefaultConfig()
	cfg.Amounts.OpeningBalance = opening
	return cfg
}

// carryOnly keeps every unit liquid and rolls it forward one day at a time.
func carryOnly(t *testing.T, p *Plan) []float64 {
	t.Helper()
	f := p.Formulation()
	values := make([]float64, f.Model.NumVars())
	balance := 0.0
	for i := 0; i < p.Graph().Terminal(); i++ {
		balance += p.Graph().Nodes()[i].NetFlow
		idx, ok := f.Var(model.Carry, model.Arc{From: i, To: i + 1})
		if !ok {
			t.Fatalf("no carry arc %d->%d", i, i+1)
		}
		values[idx] = balance
	}
	return values
}

func TestPlan_StageOrder(t *testing.T) {
	p := New(testConfig(0), flatTable(), nil)

	if err := p.SetNetFlows(); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("SetNetFlows before BuildNetwork = %v, want ErrStageOrder", err)
	}
	if err := p.ComputeArcCoefficients(ratesDate); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("ComputeArcCoefficients before BuildNetwork = %v, want ErrStageOrder", err)
	}
	if _, err := p.Solve(context.Background(), &fakeSolver{}); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("Solve before FormulateModel = %v, want ErrStageOrder", err)
	}

	if err := p.BuildNetwork(start, end); err != nil {
		t.Fatalf("BuildNetwork: %v", err)
	}
	if _, err := p.FormulateModel(); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("FormulateModel before SetNetFlows = %v, want ErrStageOrder", err)
	}
	if err := p.SetNetFlows(); err != nil {
		t.Fatalf("SetNetFlows: %v", err)
	}
	if _, err := p.FormulateModel(); !errors.Is(err, ErrStageOrder) {
		t.Fatalf("FormulateModel before ComputeArcCoefficients = %v, want ErrStageOrder", err)
	}
	if err := p.ComputeArcCoefficients(ratesDate); err != nil {
		t.Fatalf("ComputeArcCoefficients: %v", err)
	}
	f, err := p.FormulateModel()
	if err != nil {
		t.Fatalf("FormulateModel: %v", err)
	}
	if f.Model.NumBinaries() != p.Graph().ArcCount(model.Investable) {
		t.Fatalf("binaries = %d, want one per investable arc", f.Model.NumBinaries())
	}

	// Rebuilding drops everything downstream.
	if err := p.BuildNetwork(start, end); err != nil {
		t.Fatal(err)
	}
	if p.Formulation() != nil || p.Coefficients() != nil {
		t.Fatal("BuildNetwork kept stale coefficients or model")
	}
}

func TestPlan_SolveCarryOnly(t *testing.T) {
	p, err := Prepare(testConfig(12_000), flatTable(), start, end, ratesDate, nil)
	if err != nil {
		t.Fatalf("Prepare: %v", err)
	}
	values := carryOnly(t, p)
	m := p.Formulation().Model
	fake := &fakeSolver{sol: &mip.Solution{Status: mip.Optimal, Values: values, Objective: m.Evaluate(values)}}

	res, err := p.Solve(context.Background(), fake)
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if fake.calls != 1 || fake.seen != m {
		t.Fatalf("solver called %d times with %p, want once with %p", fake.calls, fake.seen, m)
	}

	if math.Abs(res.Summary.Objective-21_565) > 1e-6 {
		t.Fatalf("Objective = %v, want 21565", res.Summary.Objective)
	}
	if res.Summary.Investments != 0 || res.Summary.Status != "optimal" {
		t.Fatalf("Summary = %+v", res.Summary)
	}
	if len(res.Positions) != 34 {
		t.Fatalf("positions = %d, want 34 daily balances", len(res.Positions))
	}
	for _, pos := range res.Positions {
		if pos.Kind != model.Balance {
			t.Fatalf("unexpected position %+v", pos)
		}
	}
	if len(res.Balances) != 34 || res.Balances[33].Liquid != 21_565 {
		t.Fatalf("balances = %d, last %+v", len(res.Balances), res.Balances[len(res.Balances)-1])
	}
}

func TestPlan_SolveInfeasible(t *testing.T) {
	p, err := Prepare(testConfig(0), flatTable(), start, end, ratesDate, nil)
	if err != nil {
		t.Fatal(err)
	}
	res, err := p.Solve(context.Background(), &fakeSolver{sol: &mip.Solution{Status: mip.Infeasible}})
	if err != nil {
		t.Fatalf("Solve: %v", err)
	}
	if res.Summary.Status != "infeasible" || res.Positions != nil || res.Balances != nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Summary.Nodes != 35 {
		t.Fatalf("Nodes = %d, want 35", res.Summary.Nodes)
	}
}

func TestRun_SolverError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), testConfig(0), flatTable(), &fakeSolver{err: boom}, start, end, ratesDate, nil)
	if !errors.Is(err, boom) {
		t.Fatalf("Run = %v, want wrapped solver error", err)
	}
}

func TestRun_MissingRate(t *testing.T) {
	// Rates only start in 2025.
	tbl := rates.NewTable([]rates.Bucket{{MinDays: 30, MaxDays: 1799, Effective: civil.Date{Year: 2025, Month: 1, Day: 1}, Rate: 0.1}})
	_, err := Run(context.Background(), testConfig(0), tbl, &fakeSolver{}, start, end, ratesDate, nil)
	if !errors.Is(err, rates.ErrNoRate) {
		t.Fatalf("Run = %v, want ErrNoRate", err)
	}
}

func TestPrepare_HorizonGuards(t *testing.T) {
	if _, err := Prepare(testConfig(0), flatTable(), start, civil.Date{Year: 2024, Month: 11, Day: 20}, ratesDate, nil); !errors.Is(err, ErrHorizonTooShort) {
		t.Fatalf("short horizon = %v, want ErrHorizonTooShort", err)
	}

	short := rates.NewTable([]rates.Bucket{{MinDays: 30, MaxDays: 89, Effective: ratesDate, Rate: 0.1}})
	_, err := Prepare(testConfig(0), short, start, civil.Date{Year: 2025, Month: 6, Day: 30}, ratesDate, nil)
	if !errors.Is(err, ErrHorizonTooLong) {
		t.Fatalf("long horizon = %v, want ErrHorizonTooLong", err)
	}
	var tooLong *HorizonTooLongError
	if !errors.As(err, &tooLong) {
		t.Fatalf("long horizon error %T is not *HorizonTooLongError", err)
	}
	if tooLong.Max != 89 || tooLong.Latest != fincal.AddDays(start, 89) {
		t.Fatalf("HorizonTooLongError = %+v", tooLong)
	}
}

func TestValidateHorizon(t *testing.T) {
	tests := []struct {
		name    string
		end     civil.Date
		max     int
		wantErr error
	}{
		{"end before start", civil.Date{Year: 2024, Month: 11, Day: 1}, 0, ErrHorizonTooShort},
		{"same day", start, 0, ErrHorizonTooShort},
		{"29 days", civil.Date{Year: 2024, Month: 12, Day: 5}, 0, ErrHorizonTooShort},
		{"exactly 30 days", civil.Date{Year: 2024, Month: 12, Day: 6}, 0, nil},
		{"no limit", civil.Date{Year: 2027, Month: 1, Day: 1}, 0, nil},
		{"within limit", end, 34, nil},
		{"over limit", end, 33, ErrHorizonTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateHorizon(start, tt.end, tt.max)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("ValidateHorizon = %v, want nil", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("ValidateHorizon = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
