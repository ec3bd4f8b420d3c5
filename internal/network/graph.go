// Package network builds the arc structure over a cash-flow calendar: carry
// arcs that keep money liquid and investable arcs for fixed-term deposits.
package network

import (
	"github.com/theirongolddev/cfplan/internal/cashflow"
	"github.com/theirongolddev/cfplan/internal/fincal"
	"github.com/theirongolddev/cfplan/internal/model"
)

// adjacency is one arc family's predecessor and successor lists. Lists keep
// insertion order and never hold the same arc twice.
type adjacency struct {
	succ  [][]int
	pred  [][]int
	seen  map[model.Arc]struct{}
	count int
}

func newAdjacency(n int) *adjacency {
	return &adjacency{
		succ: make([][]int, n),
		pred: make([][]int, n),
		seen: make(map[model.Arc]struct{}),
	}
}

func (a *adjacency) add(from, to int) {
	arc := model.Arc{From: from, To: to}
	if _, ok := a.seen[arc]; ok {
		return
	}
	a.seen[arc] = struct{}{}
	a.succ[from] = append(a.succ[from], to)
	a.pred[to] = append(a.pred[to], from)
	a.count++
}

// Graph is the arc structure for one calendar. It is immutable once built.
type Graph struct {
	cal        *cashflow.Calendar
	families   map[model.ArcFamily]*adjacency
	lastInvest int // -1 when no deposit fits in the horizon
}

// Build lays both arc families over the calendar.
func Build(cal *cashflow.Calendar) *Graph {
	n := cal.Len()
	g := &Graph{
		cal: cal,
		families: map[model.ArcFamily]*adjacency{
			model.Carry:      newAdjacency(n),
			model.Investable: newAdjacency(n),
		},
		lastInvest: -1,
	}

	if idx, ok := cal.Index(fincal.LastDayToInvest(cal.End)); ok {
		g.lastInvest = idx
	}

	g.buildCarryWindows()
	g.buildTailBridge()
	g.buildInvestable()
	return g
}

// buildCarryWindows slides a 30-financial-day window over the horizon and
// connects every pair of days strictly inside it.
func (g *Graph) buildCarryWindows() {
	carry := g.families[model.Carry]
	end := g.cal.Terminal()

	t2, ok := g.cal.Index(fincal.AddDays(g.cal.Start, fincal.MinInvestmentDays))
	if !ok {
		return
	}

	for cycle := 0; t2 <= end; cycle++ {
		t1, to := cycle, cycle+1
		for t1 <= t2 {
			if to < t2 {
				for ; to < t2; to++ {
					carry.add(t1, to)
				}
				t1++
				to = t1 + 1
			} else {
				t1++
			}
		}
		t2++
	}
}

// buildTailBridge connects every day from the last investable day onward to
// every later day, terminal included.
func (g *Graph) buildTailBridge() {
	carry := g.families[model.Carry]
	end := g.cal.Terminal()

	for t1 := max(g.lastInvest, 0); t1 < end; t1++ {
		for to := t1 + 1; to <= end; to++ {
			carry.add(t1, to)
		}
	}
}

// buildInvestable adds a deposit arc from every day up to the last investable
// day to every day at least 30 financial days later.
func (g *Graph) buildInvestable() {
	inv := g.families[model.Investable]
	end := g.cal.Terminal()

	for t1 := 0; t1 <= g.lastInvest; t1++ {
		first, ok := g.cal.Index(fincal.AddDays(g.cal.Node(t1).Date, fincal.MinInvestmentDays))
		if !ok {
			continue
		}
		for to := first; to <= end; to++ {
			inv.add(t1, to)
		}
	}
}

// Calendar returns the calendar the graph was built over.
func (g *Graph) Calendar() *cashflow.Calendar { return g.cal }

// Nodes returns the calendar's node arena.
func (g *Graph) Nodes() []model.Node { return g.cal.Nodes() }

// Terminal returns the index of the terminal node.
func (g *Graph) Terminal() int { return g.cal.Terminal() }

// LastInvestIndex returns the index of the last day a deposit can start, or
// -1 when the horizon is too short for any deposit.
func (g *Graph) LastInvestIndex() int { return g.lastInvest }

// Successors returns the heads of arcs leaving node i, in insertion order.
func (g *Graph) Successors(f model.ArcFamily, i int) []int {
	return g.families[f].succ[i]
}

// Predecessors returns the tails of arcs entering node i, in insertion order.
func (g *Graph) Predecessors(f model.ArcFamily, i int) []int {
	return g.families[f].pred[i]
}

// HasArc reports whether the family contains from -> to.
func (g *Graph) HasArc(f model.ArcFamily, from, to int) bool {
	_, ok := g.families[f].seen[model.Arc{From: from, To: to}]
	return ok
}

// ArcCount returns the number of arcs in a family.
func (g *Graph) ArcCount(f model.ArcFamily) int {
	return g.families[f].count
}

// Arcs lists a family's arcs ordered by tail index, then by insertion order
// of the head.
func (g *Graph) Arcs(f model.ArcFamily) []model.Arc {
	adj := g.families[f]
	arcs := make([]model.Arc, 0, adj.count)
	for from, tos := range adj.succ {
		for _, to := range tos {
			arcs = append(arcs, model.Arc{From: from, To: to})
		}
	}
	return arcs
}
