package bnb

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/theirongolddev/cfplan/internal/mip"
)

var (
	errRelaxInfeasible = errors.New("relaxation infeasible")
	errRelaxUnbounded  = errors.New("relaxation unbounded")
	errIterationLimit  = errors.New("bnb: simplex iteration limit reached")
)

const (
	pivotTol      = 1e-9 // smallest tableau entry accepted as a pivot
	feasTol       = 1e-9 // primal infeasibility the ratio test may accept
	dropTol       = 1e-7 // smallest entry used to pivot an artificial out
	degenerateRun = 50   // degenerate pivots before Bland's rule takes over
)

// relaxation is the LP relaxation of a model under per-variable bounds.
type relaxation struct {
	model *mip.Model
	tol   float64
}

// stdRow is one standard-form row before scaling: coef·x + slack·s = rhs.
type stdRow struct {
	coef  map[int]float64
	rhs   float64
	slack float64 // 0, +1 or -1
}

// solve returns the LP optimum, in the model's own objective sense, and the
// point in model variable space. Bounds lo/hi override the model's bounds.
//
// Each variable is shifted by its lower bound so the standard form
// min c'x, Ax = b, x >= 0 applies; finite upper bounds become rows with a
// slack, LE and GE rows get one slack each.
func (r relaxation) solve(lo, hi []float64) (float64, []float64, error) {
	m := r.model
	n := len(m.Vars)

	for j := 0; j < n; j++ {
		if math.IsInf(lo[j], -1) {
			return 0, nil, fmt.Errorf("bnb: variable %s has no lower bound", m.Vars[j].Name)
		}
		if hi[j] < lo[j]-r.tol {
			return 0, nil, errRelaxInfeasible
		}
	}

	sense := 1.0
	if m.Maximize {
		sense = -1
	}
	obj := make([]float64, n)
	for _, t := range m.Objective {
		obj[t.Var] += t.Coef
	}

	// Columns: used model variables first, then slacks.
	inRow := make([]bool, n)
	for _, c := range m.Constraints {
		for _, t := range c.Terms {
			if t.Coef != 0 {
				inRow[t.Var] = true
			}
		}
	}
	col := make([]int, n)
	cols := 0
	for j := 0; j < n; j++ {
		if inRow[j] || !math.IsInf(hi[j], 1) {
			col[j] = cols
			cols++
			continue
		}
		col[j] = -1
		if sense*obj[j] < 0 {
			return 0, nil, errRelaxUnbounded
		}
	}

	var rows []stdRow
	for _, c := range m.Constraints {
		rw := stdRow{coef: make(map[int]float64, len(c.Terms)), rhs: c.RHS}
		for _, t := range c.Terms {
			if t.Coef == 0 {
				continue
			}
			rw.coef[col[t.Var]] += t.Coef
			rw.rhs -= t.Coef * lo[t.Var]
		}
		switch c.Sense {
		case mip.LE:
			rw.slack = 1
		case mip.GE:
			rw.slack = -1
		}
		if rw.slack == 0 && allZero(rw.coef) {
			if math.Abs(rw.rhs) > r.tol*math.Max(1, math.Abs(c.RHS)) {
				return 0, nil, errRelaxInfeasible
			}
			continue
		}
		rows = append(rows, rw)
	}
	for j := 0; j < n; j++ {
		if col[j] < 0 || math.IsInf(hi[j], 1) {
			continue
		}
		rows = append(rows, stdRow{coef: map[int]float64{col[j]: 1}, rhs: math.Max(hi[j]-lo[j], 0), slack: 1})
	}

	if len(rows) == 0 {
		x := make([]float64, n)
		copy(x, lo)
		return m.Evaluate(x), x, nil
	}

	tb, scale := newTableau(rows, cols)

	cost := make([]float64, tb.w)
	for j := 0; j < n; j++ {
		if col[j] >= 0 {
			cost[col[j]] = sense * obj[j] / scale[col[j]]
		}
	}
	xs, err := tb.solve(cost)
	if err != nil {
		return 0, nil, err
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		x[j] = lo[j]
		if col[j] >= 0 {
			x[j] += xs[col[j]] / scale[col[j]]
		}
	}
	return m.Evaluate(x), x, nil
}

func allZero(coef map[int]float64) bool {
	for _, v := range coef {
		if v != 0 {
			return false
		}
	}
	return true
}

// tableau is a dense two-phase simplex tableau. Columns are the structural
// and slack columns, then one artificial per row that has no usable slack,
// then the right-hand side.
type tableau struct {
	t       *mat.Dense
	m, w    int // rows; columns including the right-hand side
	n       int // structural and slack columns
	basis   []int
	blocked []bool
	rhsSum  float64
	maxIter int
}

// newTableau scales every structural column and then every row to a largest
// entry of one, flips rows to a non-negative right-hand side and starts from
// an identity basis of slacks and artificials. It returns the column scales:
// a scaled column value divided by its scale is the unscaled value.
func newTableau(rows []stdRow, cols int) (*tableau, []float64) {
	scale := make([]float64, cols)
	for _, rw := range rows {
		for c, v := range rw.coef {
			scale[c] = math.Max(scale[c], math.Abs(v))
		}
	}
	for c := range scale {
		if scale[c] == 0 {
			scale[c] = 1
		}
	}

	slacks := 0
	for _, rw := range rows {
		if rw.slack != 0 {
			slacks++
		}
	}
	n := cols + slacks
	m := len(rows)

	dense := make([][]float64, m)
	rhs := make([]float64, m)
	slackCol := make([]int, m)
	artificials := 0
	next := cols
	for i, rw := range rows {
		a := make([]float64, n)
		for c, v := range rw.coef {
			a[c] = v / scale[c]
		}
		slackCol[i] = -1
		if rw.slack != 0 {
			a[next] = rw.slack
			slackCol[i] = next
			next++
		}
		b := rw.rhs
		rmax := floats.Norm(a, math.Inf(1))
		floats.Scale(1/rmax, a)
		b /= rmax
		if b < 0 {
			floats.Scale(-1, a)
			b = -b
		}
		dense[i], rhs[i] = a, b
		if slackCol[i] < 0 || a[slackCol[i]] <= 0 {
			artificials++
		}
	}

	w := n + artificials + 1
	tb := &tableau{
		t:       mat.NewDense(m, w, nil),
		m:       m,
		w:       w,
		n:       n,
		basis:   make([]int, m),
		blocked: make([]bool, w-1),
		rhsSum:  1 + floats.Sum(rhs),
		maxIter: 50 * (m + w),
	}
	art := n
	for i := range dense {
		row := tb.t.RawRowView(i)
		copy(row, dense[i])
		row[w-1] = rhs[i]
		if sc := slackCol[i]; sc >= 0 && row[sc] > 0 {
			floats.Scale(1/row[sc], row)
			tb.basis[i] = sc
			continue
		}
		row[art] = 1
		tb.basis[i] = art
		art++
	}
	return tb, scale
}

// solve minimises cost over the tableau's standard form and returns the
// values of the structural and slack columns.
func (tb *tableau) solve(cost []float64) ([]float64, error) {
	if tb.w-1 > tb.n {
		phase1 := make([]float64, tb.w)
		for j := tb.n; j < tb.w-1; j++ {
			phase1[j] = 1
		}
		if err := tb.run(phase1); err != nil {
			return nil, err
		}
		infeasibility := 0.0
		for i, b := range tb.basis {
			if b >= tb.n {
				infeasibility += tb.t.At(i, tb.w-1)
			}
		}
		if infeasibility > feasTol*tb.rhsSum {
			return nil, errRelaxInfeasible
		}
		for j := tb.n; j < tb.w-1; j++ {
			tb.blocked[j] = true
		}
		tb.dropArtificials()
	}

	if err := tb.run(cost); err != nil {
		return nil, err
	}

	xs := make([]float64, tb.n)
	for i, b := range tb.basis {
		if b < tb.n {
			xs[b] = math.Max(tb.t.At(i, tb.w-1), 0)
		}
	}
	return xs, nil
}

// dropArtificials pivots every artificial still basic at zero out of the
// basis. A row with no usable entry is redundant and is cleared.
func (tb *tableau) dropArtificials() {
	for i, b := range tb.basis {
		if b < tb.n {
			continue
		}
		row := tb.t.RawRowView(i)
		e, best := -1, dropTol
		for j := 0; j < tb.n; j++ {
			if v := math.Abs(row[j]); v > best {
				e, best = j, v
			}
		}
		if e < 0 {
			for j := range row {
				row[j] = 0
			}
			continue
		}
		tb.pivot(nil, i, e)
		tb.clampRHS()
	}
}

// run iterates the primal simplex from the current feasible basis until no
// column prices out. Dantzig's rule picks the entering column until a run of
// degenerate pivots switches to Bland's rule.
func (tb *tableau) run(cost []float64) error {
	rhs := tb.w - 1
	d := make([]float64, tb.w)
	copy(d, cost)
	for i, b := range tb.basis {
		if cb := cost[b]; cb != 0 {
			floats.AddScaled(d, -cb, tb.t.RawRowView(i))
		}
	}
	dtol := pivotTol * math.Max(1, floats.Norm(cost, math.Inf(1)))

	degenerate := 0
	for iter := 0; ; iter++ {
		if iter >= tb.maxIter {
			return errIterationLimit
		}
		bland := degenerate > degenerateRun

		e, best := -1, -dtol
		for j := 0; j < rhs; j++ {
			if tb.blocked[j] || d[j] >= best {
				continue
			}
			e, best = j, d[j]
			if bland {
				break
			}
		}
		if e < 0 {
			return nil
		}

		r := tb.ratioTest(e, bland)
		if r < 0 {
			return errRelaxUnbounded
		}
		row := tb.t.RawRowView(r)
		if math.Max(row[rhs], 0)/row[e] <= feasTol {
			degenerate++
		} else {
			degenerate = 0
		}
		tb.pivot(d, r, e)
		tb.clampRHS()
	}
}

// ratioTest picks the leaving row for entering column e with a two-pass
// Harris test: the step may overshoot a bound by feasTol, and among the rows
// within that step the largest pivot wins (the lowest basic column under
// Bland's rule). It returns -1 when the column is unbounded.
func (tb *tableau) ratioTest(e int, bland bool) int {
	rhs := tb.w - 1
	theta := math.Inf(1)
	for i := 0; i < tb.m; i++ {
		row := tb.t.RawRowView(i)
		if a := row[e]; a > pivotTol {
			theta = math.Min(theta, (math.Max(row[rhs], 0)+feasTol)/a)
		}
	}
	if math.IsInf(theta, 1) {
		return -1
	}

	r, best := -1, 0.0
	for i := 0; i < tb.m; i++ {
		row := tb.t.RawRowView(i)
		a := row[e]
		if a <= pivotTol || math.Max(row[rhs], 0)/a > theta {
			continue
		}
		switch {
		case bland:
			if r < 0 || tb.basis[i] < tb.basis[r] {
				r = i
			}
		case a > best:
			r, best = i, a
		}
	}
	return r
}

// pivot makes column e basic in row r. d, when non-nil, is the reduced cost
// row and is updated alongside.
func (tb *tableau) pivot(d []float64, r, e int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[e], pr)
	pr[e] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[e]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[e] = 0
		}
	}
	if d != nil {
		if f := d[e]; f != 0 {
			floats.AddScaled(d, -f, pr)
			d[e] = 0
		}
	}
	tb.basis[r] = e
}

func (tb *tableau) clampRHS() {
	rhs := tb.w - 1
	for i := 0; i < tb.m; i++ {
		if tb.t.At(i, rhs) < 0 {
			tb.t.Set(i, rhs, 0)
		}
	}
}
