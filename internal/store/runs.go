package store

import (
	"database/sql"
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"

	"github.com/theirongolddev/cfplan/internal/model"
)

// SavePlanRun stores a run and its positions. A missing ID or creation time
// is filled in and written back to run.
func (s *Store) SavePlanRun(run *model.PlanRun) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.CreatedAt.IsZero() {
		run.CreatedAt = time.Now()
	}

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	sum := run.Summary
	_, err = tx.Exec(`INSERT OR REPLACE INTO plan_runs
		(run_id, created_at, start_date, end_date, rates_date, status, objective,
		 total_inflow, total_outflow, total_interest, investments, largest_deposit,
		 nodes, carry_arcs, investable_arcs, solve_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.CreatedAt.UTC().Format(time.RFC3339Nano),
		sum.Start.String(), sum.End.String(), sum.RatesDate.String(), sum.Status, sum.Objective,
		sum.TotalInflow, sum.TotalOutflow, sum.TotalInterest, sum.Investments, sum.LargestDeposit,
		sum.Nodes, sum.CarryArcs, sum.InvestableArcs, sum.SolveDuration.Milliseconds(),
	)
	if err != nil {
		return err
	}

	if _, err := tx.Exec("DELETE FROM plan_positions WHERE run_id = ?", run.ID); err != nil {
		return err
	}
	for i, p := range run.Positions {
		_, err = tx.Exec(`INSERT INTO plan_positions
			(run_id, seq, kind, from_date, to_date, days, amount, interest, factor, from_index, to_index)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, i, string(p.Kind), p.From.String(), p.To.String(), p.Days,
			p.Amount, p.Interest, p.Factor, p.FromIndex, p.ToIndex,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

const runColumns = `run_id, created_at, start_date, end_date, rates_date, status, objective,
	total_inflow, total_outflow, total_interest, investments, largest_deposit,
	nodes, carry_arcs, investable_arcs, solve_ms`

// ListPlanRuns returns stored runs, newest first, without positions. A limit
// of 0 or less returns all runs.
func (s *Store) ListPlanRuns(limit int) ([]model.PlanRun, error) {
	q := "SELECT " + runColumns + " FROM plan_runs ORDER BY created_at DESC"
	var rows *sql.Rows
	var err error
	if limit > 0 {
		rows, err = s.db.Query(q+" LIMIT ?", limit)
	} else {
		rows, err = s.db.Query(q)
	}
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var runs []model.PlanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// LoadPlanRun returns a run and its positions. id may be any unique prefix
// of a stored run id.
func (s *Store) LoadPlanRun(id string) (*model.PlanRun, error) {
	rows, err := s.db.Query("SELECT "+runColumns+" FROM plan_runs WHERE run_id LIKE ? || '%' LIMIT 2", id)
	if err != nil {
		return nil, err
	}
	var matches []model.PlanRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			_ = rows.Close()
			return nil, err
		}
		matches = append(matches, run)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}
	_ = rows.Close()

	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	case 1:
	default:
		return nil, fmt.Errorf("%w: %s", ErrAmbiguousRun, id)
	}
	run := &matches[0]

	posRows, err := s.db.Query(`SELECT kind, from_date, to_date, days, amount, interest, factor, from_index, to_index
		FROM plan_positions WHERE run_id = ? ORDER BY seq`, run.ID)
	if err != nil {
		return nil, err
	}
	defer func() { _ = posRows.Close() }()

	for posRows.Next() {
		var p model.Position
		var kind, from, to string
		if err := posRows.Scan(&kind, &from, &to, &p.Days, &p.Amount, &p.Interest, &p.Factor, &p.FromIndex, &p.ToIndex); err != nil {
			return nil, err
		}
		p.Kind = model.PositionKind(kind)
		if p.From, err = civil.ParseDate(from); err != nil {
			return nil, err
		}
		if p.To, err = civil.ParseDate(to); err != nil {
			return nil, err
		}
		run.Positions = append(run.Positions, p)
	}
	return run, posRows.Err()
}

// DeletePlanRun removes a run and its positions.
func (s *Store) DeletePlanRun(id string) error {
	res, err := s.db.Exec("DELETE FROM plan_runs WHERE run_id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return nil
}

func scanRun(rows *sql.Rows) (model.PlanRun, error) {
	var run model.PlanRun
	var created, start, end, ratesDate string
	var solveMs int64
	sum := &run.Summary
	err := rows.Scan(
		&run.ID, &created, &start, &end, &ratesDate, &sum.Status, &sum.Objective,
		&sum.TotalInflow, &sum.TotalOutflow, &sum.TotalInterest, &sum.Investments, &sum.LargestDeposit,
		&sum.Nodes, &sum.CarryArcs, &sum.InvestableArcs, &solveMs,
	)
	if err != nil {
		return run, err
	}
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
	sum.SolveDuration = time.Duration(solveMs) * time.Millisecond
	if sum.Start, err = civil.ParseDate(start); err != nil {
		return run, err
	}
	if sum.End, err = civil.ParseDate(end); err != nil {
		return run, err
	}
	if sum.RatesDate, err = civil.ParseDate(ratesDate); err != nil {
		return run, err
	}
	return run, nil
}
