// Package model defines the domain types shared by the cash-flow planner.
package model

import (
	"fmt"

	"cloud.google.com/go/civil"
)

// Node is one calendar day of the planning horizon.
type Node struct {
	Index   int
	Date    civil.Date
	NetFlow float64 // positive inflow, negative outflow
}

// Arc moves money from one day to a later one.
type Arc struct {
	From int
	To   int
}

func (a Arc) String() string {
	return fmt.Sprintf("%d->%d", a.From, a.To)
}

// ArcFamily separates liquid carry-over arcs from fixed-term deposits.
type ArcFamily int

const (
	// Carry arcs keep money liquid in the savings balance.
	Carry ArcFamily = iota
	// Investable arcs place money in a deposit of at least 30 financial days.
	Investable
)

func (f ArcFamily) String() string {
	switch f {
	case Carry:
		return "carry"
	case Investable:
		return "investable"
	default:
		return fmt.Sprintf("ArcFamily(%d)", int(f))
	}
}

// Families lists every arc family in a stable order.
var Families = []ArcFamily{Carry, Investable}
