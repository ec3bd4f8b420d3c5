// Package bnb is an in-process branch-and-bound MIP solver. Every node solves
// a scaled two-phase simplex over a dense gonum tableau; it is meant for
// short horizons, tests and solver-parameter sweeps, and long horizons belong
// to an external solver.
package bnb

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"sort"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/mip"
)

// NodeSelect picks the next open node.
type NodeSelect string

const (
	BestBound  NodeSelect = "best"
	DepthFirst NodeSelect = "depth"
)

// Branching picks the variable to branch on.
type Branching string

const (
	MostFractional  Branching = "most-fractional"
	FirstFractional Branching = "first"
)

// Options tune the search. Zero values fall back to defaults.
type Options struct {
	NodeSelect NodeSelect
	Branch     Branching
	Gap        float64 // relative optimality gap at which to stop
	NodeLimit  int
	TimeLimit  time.Duration
	Tol        float64 // integrality and simplex tolerance
	Logger     logrus.FieldLogger
}

// Solver implements mip.Solver.
type Solver struct {
	opts Options
}

// New returns a solver with the given options.
func New(opts Options) *Solver {
	if opts.NodeSelect == "" {
		opts.NodeSelect = BestBound
	}
	if opts.Branch == "" {
		opts.Branch = MostFractional
	}
	if opts.Tol <= 0 {
		opts.Tol = 1e-9
	}
	if opts.Logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		opts.Logger = l
	}
	return &Solver{opts: opts}
}

// Options returns the effective options.
func (s *Solver) Options() Options { return s.opts }

type node struct {
	lo, hi []float64
	bound  float64 // parent relaxation value, in maximisation sense
	depth  int
}

// Solve runs branch and bound. Limits and cancellation return the incumbent
// as Feasible, or NoSolution if none was found.
func (s *Solver) Solve(ctx context.Context, m *mip.Model) (*mip.Solution, error) {
	start := time.Now()
	log := s.opts.Logger.WithField("backend", "bnb")

	sense := 1.0
	if !m.Maximize {
		sense = -1
	}
	relax := relaxation{model: m, tol: s.opts.Tol * 1e-1}

	root := node{
		lo:    make([]float64, len(m.Vars)),
		hi:    make([]float64, len(m.Vars)),
		bound: math.Inf(1),
	}
	for i, v := range m.Vars {
		root.lo[i], root.hi[i] = v.Lower, v.Upper
	}

	open := []node{root}
	var (
		incumbent []float64
		best      = math.Inf(-1) // in maximisation sense
		explored  int
		stopped   bool
	)

	for len(open) > 0 {
		if err := ctx.Err(); err != nil {
			stopped = true
			break
		}
		if s.opts.NodeLimit > 0 && explored >= s.opts.NodeLimit {
			stopped = true
			break
		}
		if s.opts.TimeLimit > 0 && time.Since(start) > s.opts.TimeLimit {
			stopped = true
			break
		}
		if incumbent != nil && s.gapClosed(best, open) {
			break
		}

		var nd node
		nd, open = s.pop(open)
		explored++

		if nd.bound <= best+s.absTol(best) {
			continue
		}

		obj, x, err := relax.solve(nd.lo, nd.hi)
		switch {
		case errors.Is(err, errRelaxInfeasible):
			continue
		case errors.Is(err, errRelaxUnbounded):
			return &mip.Solution{Status: mip.Unbounded, Nodes: explored, Duration: time.Since(start), Backend: "bnb"}, nil
		case err != nil:
			return nil, err
		}

		score := sense * obj
		if score <= best+s.absTol(best) {
			continue
		}

		j := s.branchVar(m, x)
		if j < 0 {
			incumbent, best = x, score
			log.WithFields(logrus.Fields{"node": explored, "objective": obj}).Debug("new incumbent")
			continue
		}

		down, up := nd.child(), nd.child()
		down.hi[j] = math.Floor(x[j])
		up.lo[j] = math.Ceil(x[j])
		down.bound, up.bound = score, score
		// Depth-first explores the last pushed child first.
		open = append(open, down, up)
	}

	sol := &mip.Solution{Nodes: explored, Duration: time.Since(start), Backend: "bnb", Bound: sense * s.bestBound(best, open)}
	switch {
	case incumbent != nil && (stopped && !s.gapClosed(best, open)):
		sol.Status = mip.Feasible
	case incumbent != nil:
		sol.Status = mip.Optimal
	case stopped:
		sol.Status = mip.NoSolution
	default:
		sol.Status = mip.Infeasible
	}
	if incumbent != nil {
		sol.Values = incumbent
		sol.Objective = m.Evaluate(incumbent)
	}

	log.WithFields(logrus.Fields{
		"status":  sol.Status.String(),
		"nodes":   explored,
		"elapsed": sol.Duration.String(),
	}).Debug("branch and bound finished")
	return sol, nil
}

func (nd node) child() node {
	c := node{
		lo:    make([]float64, len(nd.lo)),
		hi:    make([]float64, len(nd.hi)),
		depth: nd.depth + 1,
	}
	copy(c.lo, nd.lo)
	copy(c.hi, nd.hi)
	return c
}

// pop removes the next node according to the selection rule.
func (s *Solver) pop(open []node) (node, []node) {
	if s.opts.NodeSelect == DepthFirst {
		last := len(open) - 1
		return open[last], open[:last]
	}
	// Highest parent bound first; ties go to the deeper node.
	sort.SliceStable(open, func(a, b int) bool {
		if open[a].bound != open[b].bound {
			return open[a].bound < open[b].bound
		}
		return open[a].depth < open[b].depth
	})
	last := len(open) - 1
	return open[last], open[:last]
}

// branchVar returns the binary variable to branch on, or -1 if x is integral.
func (s *Solver) branchVar(m *mip.Model, x []float64) int {
	pick, worst := -1, 0.0
	for j, v := range m.Vars {
		if v.Kind != mip.Binary {
			continue
		}
		frac := x[j] - math.Floor(x[j])
		dist := math.Min(frac, 1-frac)
		if dist <= s.opts.Tol {
			continue
		}
		if s.opts.Branch == FirstFractional {
			return j
		}
		if dist > worst {
			pick, worst = j, dist
		}
	}
	return pick
}

func (s *Solver) bestBound(best float64, open []node) float64 {
	bound := best
	for _, nd := range open {
		if nd.bound > bound {
			bound = nd.bound
		}
	}
	return bound
}

func (s *Solver) gapClosed(best float64, open []node) bool {
	if len(open) == 0 {
		return true
	}
	gap := s.bestBound(best, open) - best
	return gap <= s.opts.Gap*math.Max(1, math.Abs(best))+s.absTol(best)
}

func (s *Solver) absTol(v float64) float64 {
	if math.IsInf(v, 0) {
		return 0
	}
	return s.opts.Tol * math.Max(1, math.Abs(v))
}

// String describes the configuration, as recorded by solver sweeps.
func (s *Solver) String() string {
	return fmt.Sprintf("bnb(node=%s branch=%s gap=%g)", s.opts.NodeSelect, s.opts.Branch, s.opts.Gap)
}
