package model

import (
	"time"

	"cloud.google.com/go/civil"
)

// PositionKind labels a reported position.
type PositionKind string

const (
	Investment PositionKind = "investment"
	Balance    PositionKind = "balance"
)

// Position is one non-trivial flow on an arc of the solved plan.
type Position struct {
	Kind      PositionKind
	From      civil.Date
	To        civil.Date
	Days      int // financial days between From and To
	Amount    float64
	Interest  float64
	Factor    float64
	FromIndex int
	ToIndex   int
}

// DailyBalance is the liquid balance left in the savings account at the end
// of a day, together with what is tied up in deposits.
type DailyBalance struct {
	Date     civil.Date
	NetFlow  float64
	Liquid   float64
	Invested float64
}

// PlanSummary holds the headline numbers of a solved plan.
type PlanSummary struct {
	Start          civil.Date
	End            civil.Date
	RatesDate      civil.Date
	Status         string
	Objective      float64
	TotalInflow    float64
	TotalOutflow   float64
	TotalInterest  float64
	Investments    int
	LargestDeposit float64
	Nodes          int
	CarryArcs      int
	InvestableArcs int
	SolveDuration  time.Duration
}

// PlanRun is a stored plan, as listed by the history command.
type PlanRun struct {
	ID        string
	CreatedAt time.Time
	Summary   PlanSummary
	Positions []Position
}
