package report

import (
	"bytes"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/cashflow"
	"github.com/theirongolddev/cfplan/internal/coefficient"
	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/formulate"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
	"github.com/theirongolddev/cfplan/internal/rates"
)

var (
	start     = civil.Date{Year: 2024, Month: 11, Day: 6}
	end       = civil.Date{Year: 2024, Month: 12, Day: 10}
	ratesDate = civil.Date{Year: 2024, Month: 11, Day: 1}
)

// depositPlan deposits 550,000 from the first to the last day and carries
// everything else forward one day at a time.
func depositPlan(t *testing.T) (*formulate.Formulation, *mip.Solution) {
	t.Helper()
	cal, err := cashflow.Build(start, end, config.DefaultSchedule())
	if err != nil {
		t.Fatal(err)
	}
	amounts := config.DefaultAmounts()
	amounts.OpeningBalance = 600_000
	if err := cashflow.AssignNetFlows(cal, amounts, config.DefaultIncrements()); err != nil {
		t.Fatal(err)
	}
	g := network.Build(cal)
	src := rates.NewTable([]rates.Bucket{{MinDays: 30, MaxDays: 1799, Effective: ratesDate, Rate: 0.10}})
	coeffs, err := coefficient.Compute(g, ratesDate, src)
	if err != nil {
		t.Fatal(err)
	}
	f, err := formulate.Formulate(g, coeffs, formulate.DefaultParams())
	if err != nil {
		t.Fatal(err)
	}

	values := make([]float64, f.Model.NumVars())
	dep := model.Arc{From: 0, To: g.Terminal()}
	xi, _ := f.Var(model.Investable, dep)
	zi, _ := f.Indicator(dep)
	values[xi], values[zi] = 550_000, 1
	balance := -550_000.0
	for i := 0; i < g.Terminal(); i++ {
		balance += g.Nodes()[i].NetFlow
		yi, _ := f.Var(model.Carry, model.Arc{From: i, To: i + 1})
		values[yi] = balance
	}

	sol := &mip.Solution{Status: mip.Optimal, Values: values, Objective: f.Model.Evaluate(values), Duration: time.Second}
	return f, sol
}

func TestExtract(t *testing.T) {
	f, sol := depositPlan(t)

	positions, err := Extract(f, sol, 1)
	if err != nil {
		t.Fatalf("Extract: %v", err)
	}
	if len(positions) != 35 {
		t.Fatalf("len(positions) = %d, want 35", len(positions))
	}

	dep := positions[0]
	if dep.Kind != model.Investment || dep.From != start || dep.To != end || dep.Days != 34 {
		t.Fatalf("first position = %+v, want 34-day deposit %s -> %s", dep, start, end)
	}
	wantInterest := (math.Pow(1.10, 34.0/360) - 1) * 550_000
	if math.Abs(dep.Interest-wantInterest) > 1e-6 {
		t.Fatalf("deposit interest = %v, want %v", dep.Interest, wantInterest)
	}

	prev := -1
	for _, p := range positions[1:] {
		if p.Kind != model.Balance {
			t.Fatalf("position %+v after deposits is not a balance", p)
		}
		if p.FromIndex <= prev {
			t.Fatalf("balances not ordered by start: %d after %d", p.FromIndex, prev)
		}
		prev = p.FromIndex
		if p.Interest != 0 || p.Factor != 1 {
			t.Fatalf("balance %+v earns interest, want factor 1 and no interest", p)
		}
	}
}

func TestExtract_NoPointNoPositions(t *testing.T) {
	f, _ := depositPlan(t)
	positions, err := Extract(f, &mip.Solution{Status: mip.Infeasible}, 1)
	if err != nil || positions != nil {
		t.Fatalf("Extract(infeasible) = %v, %v; want nil, nil", positions, err)
	}
}

func TestDailyBalances(t *testing.T) {
	f, sol := depositPlan(t)
	days := DailyBalances(f, sol)

	if len(days) != f.Graph.Terminal() {
		t.Fatalf("len = %d, want %d", len(days), f.Graph.Terminal())
	}
	if days[0].Liquid != 50_000 || days[0].Invested != 550_000 {
		t.Fatalf("day 0 = %+v, want liquid 50000 invested 550000", days[0])
	}
	last := days[len(days)-1]
	if last.Invested != 550_000 {
		t.Fatalf("last day invested = %v, want 550000", last.Invested)
	}
	// 50,000 + 19,750 - 10,185
	if last.Liquid != 59_565 {
		t.Fatalf("last day liquid = %v, want 59565", last.Liquid)
	}
}

func TestSummarize(t *testing.T) {
	f, sol := depositPlan(t)
	positions, err := Extract(f, sol, 1)
	if err != nil {
		t.Fatal(err)
	}

	s := Summarize(f, sol, positions, ratesDate)
	if s.Investments != 1 || s.LargestDeposit != 550_000 {
		t.Fatalf("Summarize = %+v", s)
	}
	if s.Status != "optimal" || s.Nodes != 35 || s.Objective != sol.Objective {
		t.Fatalf("Summarize = %+v", s)
	}
	if s.TotalInflow != 619_750 || s.TotalOutflow != 10_185 {
		t.Fatalf("inflow/outflow = %v/%v, want 619750/10185", s.TotalInflow, s.TotalOutflow)
	}
	if want := s.Objective - (s.TotalInflow - s.TotalOutflow); math.Abs(s.TotalInterest-want) > 1e-6 {
		t.Fatalf("TotalInterest = %v, want %v (objective less net flows)", s.TotalInterest, want)
	}
}

func TestWriteCSV(t *testing.T) {
	f, sol := depositPlan(t)
	positions, err := Extract(f, sol, 1)
	if err != nil {
		t.Fatal(err)
	}

	var buf bytes.Buffer
	if err := WriteCSV(&buf, positions); err != nil {
		t.Fatalf("WriteCSV: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 36 {
		t.Fatalf("lines = %d, want 36", len(lines))
	}
	if lines[0] != "start_date,days_between,end_date,value,interests,type" {
		t.Fatalf("header = %q", lines[0])
	}
	if !strings.HasPrefix(lines[1], "2024-11-06,34,2024-12-10,550000,") || !strings.HasSuffix(lines[1], ",investment") {
		t.Fatalf("deposit line = %q", lines[1])
	}
	if !strings.HasSuffix(lines[2], ",balance") {
		t.Fatalf("balance line = %q", lines[2])
	}
}

func TestWriteCSVFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	path, err := WriteCSVFile(dir, start, end, nil)
	if err != nil {
		t.Fatalf("WriteCSVFile: %v", err)
	}
	if filepath.Base(path) != "cfo_between_2024-11-06_and_2024-12-10.csv" {
		t.Fatalf("path = %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("stat: %v", err)
	}
}

func TestMoney(t *testing.T) {
	tests := map[float64]string{
		1234.567: "1234.57",
		12.5:     "12.5",
		-400:     "-400",
		0.004:    "0",
	}
	for in, want := range tests {
		if got := Money(in); got != want {
			t.Errorf("Money(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestAppendSweep(t *testing.T) {
	path := filepath.Join(t.TempDir(), "experiment_results.csv")
	row := SweepRow{Branch: "most-fractional", NodeSel: "best", Gap: 0.01, Status: "optimal", Objective: 10.5, Nodes: 3, Duration: time.Second}

	if err := AppendSweep(path, []SweepRow{row}); err != nil {
		t.Fatalf("AppendSweep: %v", err)
	}
	if err := AppendSweep(path, []SweepRow{row}); err != nil {
		t.Fatalf("AppendSweep: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 3 {
		t.Fatalf("lines = %d, want 3 (header once)", len(lines))
	}
	if lines[1] != "most-fractional,best,0.010000,optimal,10.5,3,1.000000" {
		t.Fatalf("row = %q", lines[1])
	}
}
