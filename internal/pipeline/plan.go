// Package pipeline runs the planning stages in order: build the network,
// assign net flows, compute growth factors, formulate and solve.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"cloud.google.com/go/civil"
	"github.com/sirupsen/logrus"

	"github.com/theirongolddev/cfplan/internal/cashflow"
	"github.com/theirongolddev/cfplan/internal/coefficient"
	"github.com/theirongolddev/cfplan/internal/config"
	"github.com/theirongolddev/cfplan/internal/formulate"
	"github.com/theirongolddev/cfplan/internal/mip"
	"github.com/theirongolddev/cfplan/internal/model"
	"github.com/theirongolddev/cfplan/internal/network"
	"github.com/theirongolddev/cfplan/internal/rates"
	"github.com/theirongolddev/cfplan/internal/report"
)

// ErrStageOrder is returned when a stage runs before the one it depends on.
var ErrStageOrder = errors.New("pipeline: stage out of order")

// Plan holds the artefacts of one planning run. Each stage discards the
// output of every later stage, so a Plan can be rebuilt for a new horizon.
type Plan struct {
	cfg   config.Config
	rates rates.Source
	log   logrus.FieldLogger

	cal       *cashflow.Calendar
	graph     *network.Graph
	flowsSet  bool
	ratesDate civil.Date
	coeffs    *coefficient.Table
	form      *formulate.Formulation
}

// Result is a solved plan read back into reportable form.
type Result struct {
	Formulation *formulate.Formulation
	Solution    *mip.Solution
	Positions   []model.Position
	Balances    []model.DailyBalance
	Summary     model.PlanSummary
}

// New returns an empty plan. A nil logger discards output.
func New(cfg config.Config, src rates.Source, log logrus.FieldLogger) *Plan {
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	return &Plan{cfg: cfg, rates: src, log: log}
}

// BuildNetwork creates one node per day of [start, end], classifies them
// against the configured schedule and builds both arc families.
func (p *Plan) BuildNetwork(start, end civil.Date) error {
	cal, err := cashflow.Build(start, end, p.cfg.Schedule)
	if err != nil {
		return fmt.Errorf("building calendar: %w", err)
	}
	p.cal = cal
	p.graph = network.Build(cal)
	p.flowsSet, p.coeffs, p.form = false, nil, nil

	p.log.WithFields(logrus.Fields{
		"start":           start.String(),
		"end":             end.String(),
		"nodes":           cal.Len(),
		"sources":         len(cal.Sources()),
		"sinks":           len(cal.Sinks()),
		"carry_arcs":      p.graph.ArcCount(model.Carry),
		"investable_arcs": p.graph.ArcCount(model.Investable),
		"last_invest":     p.graph.LastInvestIndex(),
	}).Info("network built")
	return nil
}

// SetNetFlows assigns every node its net cash flow from the configured
// amounts and yearly increments.
func (p *Plan) SetNetFlows() error {
	if p.cal == nil {
		return fmt.Errorf("%w: SetNetFlows before BuildNetwork", ErrStageOrder)
	}
	if err := cashflow.AssignNetFlows(p.cal, p.cfg.Amounts, p.cfg.Increments); err != nil {
		return fmt.Errorf("assigning net flows: %w", err)
	}
	p.flowsSet = true
	p.coeffs, p.form = nil, nil

	p.log.WithFields(logrus.Fields{
		"inflow":  p.cal.TotalInflow(),
		"outflow": p.cal.TotalOutflow(),
	}).Info("net flows assigned")
	return nil
}

// ComputeArcCoefficients prices every investable arc under the rate sheet in
// effect at ratesDate.
func (p *Plan) ComputeArcCoefficients(ratesDate civil.Date) error {
	if p.graph == nil {
		return fmt.Errorf("%w: ComputeArcCoefficients before BuildNetwork", ErrStageOrder)
	}
	coeffs, err := coefficient.Compute(p.graph, ratesDate, p.rates)
	if err != nil {
		return fmt.Errorf("computing arc coefficients: %w", err)
	}
	p.ratesDate = ratesDate
	p.coeffs = &coeffs
	p.form = nil

	p.log.WithFields(logrus.Fields{
		"rates_date": ratesDate.String(),
		"factors":    coeffs.Len(),
	}).Info("arc coefficients computed")
	return nil
}

// FormulateModel builds the mixed-integer model.
func (p *Plan) FormulateModel() (*formulate.Formulation, error) {
	switch {
	case p.graph == nil:
		return nil, fmt.Errorf("%w: FormulateModel before BuildNetwork", ErrStageOrder)
	case !p.flowsSet:
		return nil, fmt.Errorf("%w: FormulateModel before SetNetFlows", ErrStageOrder)
	case p.coeffs == nil:
		return nil, fmt.Errorf("%w: FormulateModel before ComputeArcCoefficients", ErrStageOrder)
	}

	params := formulate.Params{BigM: p.cfg.Model.BigM, ToleranceBand: p.cfg.Model.ToleranceBand}
	f, err := formulate.Formulate(p.graph, *p.coeffs, params)
	if err != nil {
		return nil, fmt.Errorf("formulating model: %w", err)
	}
	p.form = f

	p.log.WithFields(logrus.Fields{
		"variables":   f.Model.NumVars(),
		"binaries":    f.Model.NumBinaries(),
		"constraints": f.Model.NumConstraints(),
	}).Info("model formulated")
	return f, nil
}

// Solve hands the formulated model to solver and reads the answer back.
// An infeasible model is a result, not an error.
func (p *Plan) Solve(ctx context.Context, solver mip.Solver) (*Result, error) {
	if p.form == nil {
		return nil, fmt.Errorf("%w: Solve before FormulateModel", ErrStageOrder)
	}

	start := time.Now()
	sol, err := solver.Solve(ctx, p.form.Model)
	if err != nil {
		return nil, fmt.Errorf("solving: %w", err)
	}
	if sol.Duration == 0 {
		sol.Duration = time.Since(start)
	}

	p.log.WithFields(logrus.Fields{
		"status":    sol.Status.String(),
		"objective": sol.Objective,
		"nodes":     sol.Nodes,
		"elapsed":   sol.Duration.String(),
	}).Info("model solved")

	positions, err := report.Extract(p.form, sol, p.cfg.Model.MinPosition)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Formulation: p.form,
		Solution:    sol,
		Positions:   positions,
		Summary:     report.Summarize(p.form, sol, positions, p.ratesDate),
	}
	if sol.Status.HasValues() {
		res.Balances = report.DailyBalances(p.form, sol)
	}
	return res, nil
}

// Graph returns the network built by BuildNetwork, or nil.
func (p *Plan) Graph() *network.Graph { return p.graph }

// Coefficients returns the factors computed by ComputeArcCoefficients, or
// nil.
func (p *Plan) Coefficients() *coefficient.Table { return p.coeffs }

// Formulation returns the model built by FormulateModel, or nil.
func (p *Plan) Formulation() *formulate.Formulation { return p.form }

// Prepare runs every stage up to and including FormulateModel after
// checking the horizon against the rate sheet.
func Prepare(cfg config.Config, tbl *rates.Table, start, end, ratesDate civil.Date, log logrus.FieldLogger) (*Plan, error) {
	if err := ValidateHorizon(start, end, tbl.MaxDuration()); err != nil {
		return nil, err
	}
	p := New(cfg, tbl, log)
	if err := p.BuildNetwork(start, end); err != nil {
		return nil, err
	}
	if err := p.SetNetFlows(); err != nil {
		return nil, err
	}
	if err := p.ComputeArcCoefficients(ratesDate); err != nil {
		return nil, err
	}
	if _, err := p.FormulateModel(); err != nil {
		return nil, err
	}
	return p, nil
}

// Run prepares and solves a plan.
func Run(ctx context.Context, cfg config.Config, tbl *rates.Table, solver mip.Solver, start, end, ratesDate civil.Date, log logrus.FieldLogger) (*Result, error) {
	p, err := Prepare(cfg, tbl, start, end, ratesDate, log)
	if err != nil {
		return nil, err
	}
	return p.Solve(ctx, solver)
}

// Shortfall returns how much more money the first day needs so that the
// liquid balance never goes negative when nothing is invested. Zero means
// the net flows already pay every bill.
func Shortfall(g *network.Graph) float64 {
	nodes := g.Nodes()
	balance, worst := 0.0, 0.0
	for i := 0; i < g.Terminal(); i++ {
		balance += nodes[i].NetFlow
		worst = math.Min(worst, balance)
	}
	return -worst
}
