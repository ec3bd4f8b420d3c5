// Package formulate turns a cash-flow network and its growth factors into a
// mixed-integer model that maximises the cash left at the end of the horizon.
package formulate

import (
	"errors"
	"fmt"

	"github.com/theirongolddev/cfplan/internal/coefficient"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
)

// ErrMissingCoefficient is returned when an investable arc has no factor.
var ErrMissingCoefficient = errors.New("formulate: investable arc without growth factor")

// Params hold the either/or constants. A deposit is either closed (z = 0,
// x = 0) or opened with BigM - (BigM - ToleranceBand) = ToleranceBand as its
// minimum amount and BigM as its maximum.
type Params struct {
	BigM          float64
	ToleranceBand float64
}

// DefaultParams returns M = 13,000,000 and a 500,000 minimum deposit.
func DefaultParams() Params {
	return Params{BigM: 13_000_000, ToleranceBand: 500_000}
}

// Formulation is the model plus the maps needed to read a solution back
// per arc.
type Formulation struct {
	Model        *mip.Model
	Graph        *network.Graph
	Coefficients coefficient.Table
	Params       Params

	x map[model.Arc]int
	z map[model.Arc]int
	y map[model.Arc]int
}

// Formulate builds the model. It never solves.
func Formulate(g *network.Graph, coeffs coefficient.Table, p Params) (*Formulation, error) {
	if p.ToleranceBand <= 0 || p.BigM <= p.ToleranceBand {
		return nil, fmt.Errorf("formulate: big M %g must exceed tolerance band %g > 0", p.BigM, p.ToleranceBand)
	}

	cal := g.Calendar()
	f := &Formulation{
		Model:        mip.NewModel(fmt.Sprintf("cfo_%s_%s", cal.Start, cal.End)),
		Graph:        g,
		Coefficients: coeffs,
		Params:       p,
		x:            make(map[model.Arc]int, g.ArcCount(model.Investable)),
		z:            make(map[model.Arc]int, g.ArcCount(model.Investable)),
		y:            make(map[model.Arc]int, g.ArcCount(model.Carry)),
	}
	m := f.Model

	invArcs := g.Arcs(model.Investable)
	for _, a := range invArcs {
		if _, ok := coeffs.Get(a.From, a.To); !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingCoefficient, a)
		}
		f.x[a] = m.AddContinuous(varName("x", a))
		f.z[a] = m.AddBinary(varName("z", a))
	}
	for _, a := range g.Arcs(model.Carry) {
		f.y[a] = m.AddContinuous(varName("y", a))
	}

	nodes := g.Nodes()
	term := g.Terminal()
	for i := 0; i < term; i++ {
		m.AddConstraint(fmt.Sprintf("flow_%d", i), f.flowTerms(i), mip.EQ, nodes[i].NetFlow)
	}

	for _, a := range invArcs {
		x, z := f.x[a], f.z[a]
		m.AddConstraint("inv_hi_"+arcSuffix(a), []mip.Term{
			{Var: x, Coef: 1},
			{Var: z, Coef: -p.BigM},
		}, mip.LE, 0)
		m.AddConstraint("inv_lo_"+arcSuffix(a), []mip.Term{
			{Var: x, Coef: -1},
			{Var: z, Coef: p.BigM},
		}, mip.LE, p.BigM-p.ToleranceBand)
	}

	var obj []mip.Term
	for _, from := range g.Predecessors(model.Investable, term) {
		a := model.Arc{From: from, To: term}
		c, _ := coeffs.Get(from, term)
		obj = append(obj, mip.Term{Var: f.x[a], Coef: c})
	}
	for _, from := range g.Predecessors(model.Carry, term) {
		obj = append(obj, mip.Term{Var: f.y[model.Arc{From: from, To: term}], Coef: 1})
	}
	m.SetObjective(obj, true)

	return f, nil
}

// flowTerms is outflow minus inflow at node i: carry arcs at face value,
// deposits leaving at face value and deposits arriving with their factor.
func (f *Formulation) flowTerms(i int) []mip.Term {
	g := f.Graph
	var terms []mip.Term
	for _, to := range g.Successors(model.Carry, i) {
		terms = append(terms, mip.Term{Var: f.y[model.Arc{From: i, To: to}], Coef: 1})
	}
	for _, from := range g.Predecessors(model.Carry, i) {
		terms = append(terms, mip.Term{Var: f.y[model.Arc{From: from, To: i}], Coef: -1})
	}
	for _, to := range g.Successors(model.Investable, i) {
		terms = append(terms, mip.Term{Var: f.x[model.Arc{From: i, To: to}], Coef: 1})
	}
	for _, from := range g.Predecessors(model.Investable, i) {
		c, _ := f.Coefficients.Get(from, i)
		terms = append(terms, mip.Term{Var: f.x[model.Arc{From: from, To: i}], Coef: -c})
	}
	return terms
}

// Var returns the model index of the flow variable on an arc: x for
// investable arcs, y for carry arcs.
func (f *Formulation) Var(fam model.ArcFamily, a model.Arc) (int, bool) {
	var idx int
	var ok bool
	if fam == model.Investable {
		idx, ok = f.x[a]
	} else {
		idx, ok = f.y[a]
	}
	return idx, ok
}

// Indicator returns the model index of the binary gating an investable arc.
func (f *Formulation) Indicator(a model.Arc) (int, bool) {
	idx, ok := f.z[a]
	return idx, ok
}

// Flow returns the solved amount on an arc, or 0 if the arc is unknown.
func (f *Formulation) Flow(sol *mip.Solution, fam model.ArcFamily, a model.Arc) float64 {
	idx, ok := f.Var(fam, a)
	if !ok {
		return 0
	}
	return sol.Value(idx)
}

// FlowConstraints returns the number of flow-conservation rows.
func (f *Formulation) FlowConstraints() int {
	return f.Graph.Terminal()
}

func varName(prefix string, a model.Arc) string {
	return prefix + "_" + arcSuffix(a)
}

func arcSuffix(a model.Arc) string {
	return fmt.Sprintf("%d_%d", a.From, a.To)
}
