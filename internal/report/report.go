// Package report reads a solved plan back into positions, daily balances and
// summary figures, and writes them out as CSV.
package report

import (
	"fmt"
	"sort"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/fincal"
	"github.com/theirongolddev/cfplan/internal/formulate"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
)

// Extract lists every arc carrying more than minPosition: deposits first,
// then liquid balances, each ordered by start date then end date.
//
// Deposit interest is (factor - 1) x amount. Liquid balances carry with
// factor 1 whatever their length, so they report no interest and the total
// interest reconciles with the objective.
func Extract(f *formulate.Formulation, sol *mip.Solution, minPosition float64) ([]model.Position, error) {
	if sol == nil || !sol.Status.HasValues() {
		return nil, nil
	}

	nodes := f.Graph.Nodes()
	var out []model.Position

	for _, a := range sortedArcs(f, model.Investable) {
		amount := f.Flow(sol, model.Investable, a)
		if amount <= minPosition {
			continue
		}
		factor, ok := f.Coefficients.Get(a.From, a.To)
		if !ok {
			return nil, fmt.Errorf("report: no factor for deposit %s", a)
		}
		out = append(out, position(model.Investment, nodes, a, amount, factor, (factor-1)*amount))
	}

	for _, a := range sortedArcs(f, model.Carry) {
		amount := f.Flow(sol, model.Carry, a)
		if amount <= minPosition {
			continue
		}
		out = append(out, position(model.Balance, nodes, a, amount, 1, 0))
	}
	return out, nil
}

func position(kind model.PositionKind, nodes []model.Node, a model.Arc, amount, factor, interest float64) model.Position {
	from, to := nodes[a.From].Date, nodes[a.To].Date
	return model.Position{
		Kind:      kind,
		From:      from,
		To:        to,
		Days:      fincal.DaysBetween(from, to),
		Amount:    amount,
		Interest:  interest,
		Factor:    factor,
		FromIndex: a.From,
		ToIndex:   a.To,
	}
}

func sortedArcs(f *formulate.Formulation, fam model.ArcFamily) []model.Arc {
	arcs := f.Graph.Arcs(fam)
	sort.SliceStable(arcs, func(i, j int) bool {
		if arcs[i].From != arcs[j].From {
			return arcs[i].From < arcs[j].From
		}
		return arcs[i].To < arcs[j].To
	})
	return arcs
}

// DailyBalances returns, for every day before the terminal, the money left
// liquid after the day's flows and the money tied up in open deposits.
func DailyBalances(f *formulate.Formulation, sol *mip.Solution) []model.DailyBalance {
	g := f.Graph
	nodes := g.Nodes()
	term := g.Terminal()
	out := make([]model.DailyBalance, term)

	// Deposits open on From and pay out on To.
	open := make([]float64, term+1)
	for _, a := range g.Arcs(model.Investable) {
		amount := f.Flow(sol, model.Investable, a)
		if amount == 0 {
			continue
		}
		open[a.From] += amount
		open[a.To] -= amount
	}

	invested := 0.0
	for i := 0; i < term; i++ {
		invested += open[i]
		liquid := 0.0
		for _, to := range g.Successors(model.Carry, i) {
			liquid += f.Flow(sol, model.Carry, model.Arc{From: i, To: to})
		}
		out[i] = model.DailyBalance{
			Date:     nodes[i].Date,
			NetFlow:  nodes[i].NetFlow,
			Liquid:   liquid,
			Invested: invested,
		}
	}
	return out
}

// Summarize computes the headline figures of a plan.
func Summarize(f *formulate.Formulation, sol *mip.Solution, positions []model.Position, ratesDate civil.Date) model.PlanSummary {
	cal := f.Graph.Calendar()
	s := model.PlanSummary{
		Start:          cal.Start,
		End:            cal.End,
		RatesDate:      ratesDate,
		Status:         sol.Status.String(),
		TotalInflow:    cal.TotalInflow(),
		TotalOutflow:   cal.TotalOutflow(),
		Nodes:          cal.Len(),
		CarryArcs:      f.Graph.ArcCount(model.Carry),
		InvestableArcs: f.Graph.ArcCount(model.Investable),
		SolveDuration:  sol.Duration,
	}
	if sol.Status.HasValues() {
		s.Objective = sol.Objective
	}
	for _, p := range positions {
		if p.Kind != model.Investment {
			continue
		}
		s.Investments++
		s.TotalInterest += p.Interest
		if p.Amount > s.LargestDeposit {
			s.LargestDeposit = p.Amount
		}
	}
	return s
}
