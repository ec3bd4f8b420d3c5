package pipeline

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/mip/bnb"
	"github.com/theirongolddev/cfplan/internal/report"
)

// ProgressFunc is called as sweep runs finish.
// current is the number of runs finished so far, total is the total count.
type ProgressFunc func(current, total int)

// SweepGrid is the set of branch-and-bound settings a sweep tries. Every
// combination of node selection, branching rule and gap is solved once.
type SweepGrid struct {
	NodeSelects []bnb.NodeSelect
	Branches    []bnb.Branching
	Gaps        []float64
	NodeLimit   int
	TimeLimit   time.Duration
	Workers     int // 0 means GOMAXPROCS
}

// DefaultSweepGrid covers both node selections, both branching rules and
// three gaps.
func DefaultSweepGrid() SweepGrid {
	return SweepGrid{
		NodeSelects: []bnb.NodeSelect{bnb.BestBound, bnb.DepthFirst},
		Branches:    []bnb.Branching{bnb.MostFractional, bnb.FirstFractional},
		Gaps:        []float64{0, 1e-4, 1e-2},
		NodeLimit:   20_000,
		TimeLimit:   5 * time.Minute,
	}
}

func (g SweepGrid) combinations() []bnb.Options {
	var out []bnb.Options
	for _, br := range g.Branches {
		for _, ns := range g.NodeSelects {
			for _, gap := range g.Gaps {
				out = append(out, bnb.Options{
					NodeSelect: ns,
					Branch:     br,
					Gap:        gap,
					NodeLimit:  g.NodeLimit,
					TimeLimit:  g.TimeLimit,
				})
			}
		}
	}
	return out
}

// Sweep solves m once per grid combination on a bounded worker pool. Rows
// come back in grid order. A run that fails is reported with status "error".
func Sweep(ctx context.Context, m *mip.Model, grid SweepGrid, log logrus.FieldLogger, progressFn ProgressFunc) []report.SweepRow {
	combos := grid.combinations()
	if len(combos) == 0 {
		return nil
	}

	numWorkers := grid.Workers
	if numWorkers < 1 {
		numWorkers = runtime.GOMAXPROCS(0)
	}
	if numWorkers > len(combos) {
		numWorkers = len(combos)
	}

	work := make(chan int, len(combos))
	rows := make([]report.SweepRow, len(combos))
	var wg sync.WaitGroup
	var processed atomic.Int64

	for i := range combos {
		work <- i
	}
	close(work)

	wg.Add(numWorkers)
	for w := 0; w < numWorkers; w++ {
		go func() {
			defer wg.Done()
			for idx := range work {
				opts := combos[idx]
				opts.Logger = log
				rows[idx] = sweepOne(ctx, m, opts, log)
				n := processed.Add(1)
				if progressFn != nil {
					progressFn(int(n), len(combos))
				}
			}
		}()
	}

	wg.Wait()
	return rows
}

func sweepOne(ctx context.Context, m *mip.Model, opts bnb.Options, log logrus.FieldLogger) report.SweepRow {
	row := report.SweepRow{
		Branch:  string(opts.Branch),
		NodeSel: string(opts.NodeSelect),
		Gap:     opts.Gap,
	}
	start := time.Now()
	sol, err := bnb.New(opts).Solve(ctx, m)
	row.Duration = time.Since(start)
	if err != nil {
		if log != nil {
			log.WithError(err).WithFields(logrus.Fields{"branch": row.Branch, "node_select": row.NodeSel}).Warn("sweep run failed")
		}
		row.Status = "error"
		return row
	}
	row.Status = sol.Status.String()
	row.Objective = sol.Objective
	row.Nodes = sol.Nodes
	return row
}
