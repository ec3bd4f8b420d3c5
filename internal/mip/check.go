package mip

import (
	"errors"
	"fmt"
	"math"
)

// ErrInfeasiblePoint is returned by Check for a point that violates the model.
var ErrInfeasiblePoint = errors.New("mip: point violates model")

// Check verifies bounds, integrality and every constraint at a point.
// Constraint slack is scaled by max(1, |rhs|).
func (m *Model) Check(values []float64, tol float64) error {
	if len(values) != len(m.Vars) {
		return fmt.Errorf("%w: %d values for %d variables", ErrInfeasiblePoint, len(values), len(m.Vars))
	}

	for i, v := range m.Vars {
		x := values[i]
		if x < v.Lower-tol || x > v.Upper+tol {
			return fmt.Errorf("%w: %s = %g outside [%g, %g]", ErrInfeasiblePoint, v.Name, x, v.Lower, v.Upper)
		}
		if v.Kind == Binary && math.Abs(x-math.Round(x)) > tol {
			return fmt.Errorf("%w: %s = %g is not integral", ErrInfeasiblePoint, v.Name, x)
		}
	}

	for _, c := range m.Constraints {
		lhs := dot(c.Terms, values)
		slack := tol * math.Max(1, math.Abs(c.RHS))
		var ok bool
		switch c.Sense {
		case LE:
			ok = lhs <= c.RHS+slack
		case GE:
			ok = lhs >= c.RHS-slack
		default:
			ok = math.Abs(lhs-c.RHS) <= slack
		}
		if !ok {
			return fmt.Errorf("%w: %s: %g %s %g", ErrInfeasiblePoint, c.Name, lhs, c.Sense, c.RHS)
		}
	}
	return nil
}
