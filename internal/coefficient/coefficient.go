// Package coefficient computes the growth factor earned by money moved along
// an arc of the cash-flow network.
package coefficient

import (
	"fmt"
	"math"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/fincal"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
	"github.com/theirongolddev/cfplan/internal/rates"
)

// savingsRate is the flat yearly rate paid on short liquid balances.
const savingsRate = 0.001

// daysPerYear is the financial-year length used for compounding.
const daysPerYear = 360.0

// GrowthFactor returns the factor applied to money moved from one date to
// another. Spans of 30 or more financial days compound the deposit rate in
// effect at ratesDate; shorter spans use the savings account formula
// 1.001^(d/360) - 1.
func GrowthFactor(from, to, ratesDate civil.Date, src rates.Source) (float64, error) {
	d := fincal.DaysBetween(from, to)
	if d > fincal.MinInvestmentDays-1 {
		r, err := src.Rate(ratesDate, d)
		if err != nil {
			return 0, fmt.Errorf("growth factor %s -> %s: %w", from, to, err)
		}
		return math.Pow(1+r, float64(d)/daysPerYear), nil
	}
	// Real division: d/360 is not truncated to zero for short spans.
	return math.Pow(1+savingsRate, float64(d)/daysPerYear) - 1, nil
}

// Table holds one growth factor per investable arc.
type Table struct {
	factors map[model.Arc]float64
}

// Get returns the factor for an arc.
func (t Table) Get(from, to int) (float64, bool) {
	f, ok := t.factors[model.Arc{From: from, To: to}]
	return f, ok
}

// Len returns the number of arcs with a factor.
func (t Table) Len() int { return len(t.factors) }

// Compute evaluates every investable arc of g and fails on the first rate
// lookup miss.
func Compute(g *network.Graph, ratesDate civil.Date, src rates.Source) (Table, error) {
	nodes := g.Nodes()
	arcs := g.Arcs(model.Investable)
	t := Table{factors: make(map[model.Arc]float64, len(arcs))}

	for _, a := range arcs {
		f, err := GrowthFactor(nodes[a.From].Date, nodes[a.To].Date, ratesDate, src)
		if err != nil {
			return Table{}, err
		}
		t.factors[a] = f
	}
	return t, nil
}
