package tui

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/pipeline"
	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/tui/components"
)

var (
	nov6  = civil.Date{Year: 2024, Month: 11, Day: 6}
	dec10 = civil.Date{Year: 2024, Month: 12, Day: 10}
	nov1  = civil.Date{Year: 2024, Month: 11, Day: 1}
)

func fakeResult() *pipeline.Result {
	return &pipeline.Result{
		Positions: []model.Position{
			{Kind: model.Investment, From: nov6, To: dec10, Days: 34, Amount: 550000, Factor: 1.009, Interest: 4950},
			{Kind: model.Balance, From: nov6, To: civil.Date{Year: 2024, Month: 11, Day: 7}, Days: 1, Amount: 50000},
		},
		Balances: []model.DailyBalance{
			{Date: nov6, Liquid: 50000, Invested: 550000},
			{Date: dec10, Liquid: 59565, Invested: 0},
		},
		Summary: model.PlanSummary{
			Start: nov6, End: dec10, RatesDate: nov1,
			Status: "optimal", Objective: 614515, TotalInterest: 4950, Investments: 1, LargestDeposit: 550000,
			Nodes: 35, CarryArcs: 581, InvestableArcs: 15,
		},
	}
}

func testApp(solve SolveFunc) App {
	tbl := rates.NewTable([]rates.Bucket{
		{MinDays: 30, MaxDays: 59, Label: "1 month", Effective: nov1, Rate: 0.10},
		{MinDays: 60, MaxDays: 400, Label: "longer", Effective: nov1, Rate: 0.11},
	})
	a := NewApp(solve, Options{Start: nov6, End: dec10, RatesDate: nov1, Rates: tbl, Backend: "cbc"})
	m, _ := a.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	return m.(App)
}

func solveOK(context.Context) (*pipeline.Result, error) { return fakeResult(), nil }

func update(t *testing.T, a App, msg tea.Msg) (App, tea.Cmd) {
	t.Helper()
	m, cmd := a.Update(msg)
	return m.(App), cmd
}

func TestSolveLifecycle(t *testing.T) {
	a := testApp(solveOK)
	if !a.solving {
		t.Fatal("new app should start solving")
	}
	if !strings.Contains(a.View(), "Solving") {
		t.Fatal("loading view should mention solving")
	}

	msg := a.pending()
	a, _ = update(t, a, msg)
	if a.solving || a.result == nil {
		t.Fatalf("solving=%v result=%v after solvedMsg", a.solving, a.result)
	}
	if got := len(a.deposits.Rows()); got != 1 {
		t.Errorf("deposit rows = %d, want 1 (balances excluded)", got)
	}
	if got := len(a.days.Rows()); got != 2 {
		t.Errorf("day rows = %d, want 2", got)
	}
	view := a.View()
	for _, want := range []string{"Final cash", "614,515.00", "optimal"} {
		if !strings.Contains(view, want) {
			t.Errorf("overview missing %q", want)
		}
	}
}

func TestStaleSolveDropped(t *testing.T) {
	a := testApp(solveOK)
	first := a.pending()
	a, _ = update(t, a, first)

	a, cmd := update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd == nil || a.gen != 2 || !a.solving {
		t.Fatalf("pressing s should start solve #2, gen=%d solving=%v", a.gen, a.solving)
	}
	a, _ = update(t, a, first)
	if !a.solving {
		t.Fatal("result of a superseded solve was applied")
	}

	a, cmd = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'s'}})
	if cmd != nil || a.gen != 2 {
		t.Fatal("s while solving should be ignored")
	}
}

func TestSolveError(t *testing.T) {
	a := testApp(func(context.Context) (*pipeline.Result, error) {
		return nil, errors.New("cbc not found")
	})
	a, _ = update(t, a, a.pending())
	if !strings.Contains(a.View(), "cbc not found") {
		t.Fatal("error not shown")
	}
}

func TestTabKeys(t *testing.T) {
	a := testApp(solveOK)
	a, _ = update(t, a, a.pending())

	for key, want := range map[rune]int{'d': 1, 'c': 2, 'r': 3, 'o': 0} {
		a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{key}})
		if a.activeTab != want {
			t.Errorf("key %q -> tab %d, want %d", key, a.activeTab, want)
		}
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyLeft})
	if a.activeTab != len(components.Tabs)-1 {
		t.Errorf("left from first tab -> %d, want last", a.activeTab)
	}

	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'?'}})
	if !a.showHelp || !strings.Contains(a.View(), "Keyboard Shortcuts") {
		t.Fatal("? should open help")
	}
	a, _ = update(t, a, tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'x'}})
	if a.showHelp {
		t.Fatal("any key should close help")
	}
}

func TestRatesTabListsSheetInEffect(t *testing.T) {
	a := testApp(solveOK)
	if got := len(a.sheet.Rows()); got != 2 {
		t.Fatalf("sheet rows = %d, want 2", got)
	}
	if rows := sheetRows(nil, nov1); rows != nil {
		t.Fatal("nil table should give no rows")
	}
	if rows := sheetRows(a.opts.Rates, civil.Date{Year: 2024, Month: 1, Day: 1}); rows != nil {
		t.Fatal("date before every sheet should give no rows")
	}
}

func TestTabAtXMatchesTabWidths(t *testing.T) {
	for active := range components.Tabs {
		a := App{activeTab: active}
		pos := 0
		for i, tab := range components.Tabs {
			w := components.TabVisualWidth(tab, i == active)
			if got := a.tabAtX(pos + w/2); got != i {
				t.Fatalf("active=%d x=%d -> tab=%d, want %d", active, pos+w/2, got, i)
			}
			pos += w + 1
		}
		if got := a.tabAtX(pos + 50); got != -1 {
			t.Fatalf("x past the last tab -> %d, want -1", got)
		}
	}
}

func TestMouseClickSelectsTab(t *testing.T) {
	a := testApp(solveOK)
	x := components.TabVisualWidth(components.Tabs[0], true) + 1 + 2
	a, _ = update(t, a, tea.MouseMsg{X: x, Y: 0, Action: tea.MouseActionPress, Button: tea.MouseButtonLeft})
	if a.activeTab != 1 {
		t.Fatalf("click at x=%d -> tab %d, want 1", x, a.activeTab)
	}
}

func TestInvestedShare(t *testing.T) {
	if got := investedShare(model.DailyBalance{Liquid: 50000, Invested: 550000}); got < 0.9166 || got > 0.9167 {
		t.Errorf("share = %v", got)
	}
	if got := investedShare(model.DailyBalance{}); got != 0 {
		t.Errorf("empty share = %v", got)
	}
}
