// Package cashflow lays the planning horizon out as one node per day and
// attaches each day's scheduled inflows and outflows.
package cashflow

import (
	"errors"
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/model"
)

// ErrEmptyHorizon is returned when the end date does not follow the start.
var ErrEmptyHorizon = errors.New("horizon end must be after start")

// Calendar is the node arena for one horizon. Nodes are indexed 0..N-1 in
// ascending date order; the last node is the terminal node at the end date.
type Calendar struct {
	Start civil.Date
	End   civil.Date

	schedule config.Schedule
	nodes    []model.Node
	byDate   map[civil.Date]int
	sources  []int
	sinks    []int
}

// Build creates a node for every day in [start, end) and classifies it as a
// source or sink from its day of month. The terminal node at end is appended
// last and is never classified.
func Build(start, end civil.Date, sched config.Schedule) (*Calendar, error) {
	if err := sched.Validate(); err != nil {
		return nil, err
	}
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s .. %s", ErrEmptyHorizon, start, end)
	}

	n := end.DaysSince(start) + 1
	c := &Calendar{
		Start:    start,
		End:      end,
		schedule: sched,
		nodes:    make([]model.Node, 0, n),
		byDate:   make(map[civil.Date]int, n),
	}

	for d := start; d.Before(end); d = d.AddDays(1) {
		idx := c.add(d)
		if sched.IsSource(d.Day) {
			c.sources = append(c.sources, idx)
		}
		if sched.IsSink(d.Day) {
			c.sinks = append(c.sinks, idx)
		}
	}
	c.add(end)

	return c, nil
}

func (c *Calendar) add(d civil.Date) int {
	idx := len(c.nodes)
	c.nodes = append(c.nodes, model.Node{Index: idx, Date: d})
	c.byDate[d] = idx
	return idx
}

// Len returns the number of nodes, terminal included.
func (c *Calendar) Len() int { return len(c.nodes) }

// Nodes returns the node arena. Callers must not modify it.
func (c *Calendar) Nodes() []model.Node { return c.nodes }

// Node returns the node at index i.
func (c *Calendar) Node(i int) model.Node { return c.nodes[i] }

// Terminal returns the index of the node at the end date.
func (c *Calendar) Terminal() int { return len(c.nodes) - 1 }

// Index returns the node index for a date.
func (c *Calendar) Index(d civil.Date) (int, bool) {
	i, ok := c.byDate[d]
	return i, ok
}

// Sources returns the indices of income days in ascending date order.
func (c *Calendar) Sources() []int { return c.sources }

// Sinks returns the indices of bill days in ascending date order.
func (c *Calendar) Sinks() []int { return c.sinks }

// Schedule returns the schedule the calendar was classified with.
func (c *Calendar) Schedule() config.Schedule { return c.schedule }

// TotalInflow sums every positive net flow.
func (c *Calendar) TotalInflow() float64 {
	var sum float64
	for _, n := range c.nodes {
		if n.NetFlow > 0 {
			sum += n.NetFlow
		}
	}
	return sum
}

// TotalOutflow sums every negative net flow, returned as a positive number.
func (c *Calendar) TotalOutflow() float64 {
	var sum float64
	for _, n := range c.nodes {
		if n.NetFlow < 0 {
			sum -= n.NetFlow
		}
	}
	return sum
}
