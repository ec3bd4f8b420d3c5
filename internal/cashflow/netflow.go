package cashflow

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/cfplan/internal/config"
)

// Accumulator carries the running value of every recurring amount through one
// net-flow pass. Each item is multiplied by 1+inflation whenever a node of
// that item falls in its increment month.
type Accumulator struct {
	growth  decimal.Decimal
	months  map[config.Event]time.Month
	current map[config.Event]decimal.Decimal
}

// NewAccumulator seeds the running amounts with their base values.
func NewAccumulator(amounts config.Amounts, inc config.Increments) *Accumulator {
	acc := &Accumulator{
		growth:  decimal.NewFromInt(1).Add(decimal.NewFromFloat(inc.Inflation)),
		months:  make(map[config.Event]time.Month, 6),
		current: make(map[config.Event]decimal.Decimal, 6),
	}

	base := map[config.Event]float64{
		config.EventSalary:        amounts.Salary,
		config.EventPassiveIncome: amounts.PassiveIncome,
		config.EventAdmin:         amounts.Admin,
		config.EventCreditCard:    amounts.CreditCard,
		config.EventUtilities:     amounts.Utilities,
		config.EventMortgage:      amounts.Mortgage,
	}
	for e, v := range base {
		acc.current[e] = decimal.NewFromFloat(v)
		acc.months[e] = inc.MonthFor(e)
	}
	return acc
}

// Observe records a node of event e in the given month and returns the
// amount to use for it, ratcheting first if the month is the increment month.
func (a *Accumulator) Observe(e config.Event, month time.Month) decimal.Decimal {
	cur := a.current[e]
	if m := a.months[e]; m != 0 && m == month {
		cur = cur.Mul(a.growth)
		a.current[e] = cur
	}
	return cur
}

// Current returns the running amount without ratcheting.
func (a *Accumulator) Current(e config.Event) decimal.Decimal {
	return a.current[e]
}

// AssignNetFlows fills every node's net flow. Sources are processed before
// sinks, each in ascending date order, with a fresh accumulator. The opening
// balance is added to the first node.
func AssignNetFlows(c *Calendar, amounts config.Amounts, inc config.Increments) error {
	if err := amounts.Validate(); err != nil {
		return err
	}
	if err := inc.Validate(); err != nil {
		return err
	}

	for i := range c.nodes {
		c.nodes[i].NetFlow = 0
	}

	sched := c.schedule
	acc := NewAccumulator(amounts, inc)
	bonus := decimal.NewFromFloat(amounts.BonusFraction)

	for _, i := range c.sources {
		n := &c.nodes[i]
		month := n.Date.Month

		var v decimal.Decimal
		if n.Date.Day == sched.PassiveIncomeDay {
			v = acc.Observe(config.EventPassiveIncome, month)
		} else {
			salary := acc.Observe(config.EventSalary, month)
			v = salary
			if amounts.IsBonusMonth(month) {
				v = v.Add(salary.Mul(bonus))
			}
		}
		n.NetFlow = v.InexactFloat64()
	}

	for _, i := range c.sinks {
		n := &c.nodes[i]
		e, ok := sched.EventOn(n.Date.Day)
		if !ok {
			return fmt.Errorf("sink %s has no scheduled event", n.Date)
		}
		n.NetFlow = acc.Observe(e, n.Date.Month).Neg().InexactFloat64()
	}

	if len(c.nodes) > 0 && amounts.OpeningBalance != 0 {
		c.nodes[0].NetFlow += amounts.OpeningBalance
	}
	return nil
}
