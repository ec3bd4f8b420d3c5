package mip

import (
	"context"
	"time"
)

// Status is the outcome of a solve.
type Status int

const (
	NoSolution Status = iota
	Optimal
	Feasible
	Infeasible
	Unbounded
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Feasible:
		return "feasible"
	case Infeasible:
		return "infeasible"
	case Unbounded:
		return "unbounded"
	default:
		return "no solution"
	}
}

// HasValues reports whether a solution with this status carries a point.
func (s Status) HasValues() bool {
	return s == Optimal || s == Feasible
}

// Solution is what a Solver returns. Infeasibility is a status, not an error.
type Solution struct {
	Status    Status
	Objective float64
	Values    []float64 // indexed like Model.Vars; nil without a point
	Bound     float64   // best proven bound, when the backend reports one
	Nodes     int
	Duration  time.Duration
	Backend   string
}

// Value returns the value of variable i, or 0 without a point.
func (s *Solution) Value(i int) float64 {
	if s == nil || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Solver solves a model. Implementations honour ctx cancellation and their
// own time and node limits, returning the best point found so far.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Solution, error)
}
