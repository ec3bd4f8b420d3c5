// Package mip holds a solver-neutral mixed-integer linear model, the Solver
// contract backends implement, and helpers to write and check models.
package mip

import (
	"fmt"
	"math"
)

// VarKind is the domain of a variable.
type VarKind int

const (
	Continuous VarKind = iota
	Binary
)

func (k VarKind) String() string {
	if k == Binary {
		return "binary"
	}
	return "continuous"
}

// Var is one decision variable with bounds [Lower, Upper].
type Var struct {
	Name  string
	Kind  VarKind
	Lower float64
	Upper float64
}

// Term is Coef times variable Var (an index into Model.Vars).
type Term struct {
	Var  int
	Coef float64
}

// Sense is the relation of a constraint.
type Sense int

const (
	LE Sense = iota
	EQ
	GE
)

func (s Sense) String() string {
	switch s {
	case LE:
		return "<="
	case GE:
		return ">="
	default:
		return "="
	}
}

// Constraint is Σ Terms Sense RHS.
type Constraint struct {
	Name  string
	Terms []Term
	Sense Sense
	RHS   float64
}

// Model is a linear objective over variables subject to linear constraints.
type Model struct {
	Name        string
	Vars        []Var
	Constraints []Constraint
	Objective   []Term
	Maximize    bool

	index map[string]int
}

// NewModel returns an empty model.
func NewModel(name string) *Model {
	return &Model{Name: name, index: make(map[string]int)}
}

// AddContinuous adds a variable in [0, +inf) and returns its index.
func (m *Model) AddContinuous(name string) int {
	return m.AddVar(Var{Name: name, Kind: Continuous, Upper: math.Inf(1)})
}

// AddBinary adds a 0/1 variable and returns its index.
func (m *Model) AddBinary(name string) int {
	return m.AddVar(Var{Name: name, Kind: Binary, Upper: 1})
}

// AddVar adds a variable and returns its index. Names must be unique.
func (m *Model) AddVar(v Var) int {
	if _, dup := m.index[v.Name]; dup {
		panic(fmt.Sprintf("mip: duplicate variable %q", v.Name))
	}
	idx := len(m.Vars)
	m.Vars = append(m.Vars, v)
	m.index[v.Name] = idx
	return idx
}

// AddConstraint appends a constraint.
func (m *Model) AddConstraint(name string, terms []Term, sense Sense, rhs float64) {
	m.Constraints = append(m.Constraints, Constraint{Name: name, Terms: terms, Sense: sense, RHS: rhs})
}

// SetObjective replaces the objective.
func (m *Model) SetObjective(terms []Term, maximize bool) {
	m.Objective = terms
	m.Maximize = maximize
}

// VarIndex looks a variable up by name.
func (m *Model) VarIndex(name string) (int, bool) {
	i, ok := m.index[name]
	return i, ok
}

// NumVars returns the number of variables.
func (m *Model) NumVars() int { return len(m.Vars) }

// NumConstraints returns the number of constraints.
func (m *Model) NumConstraints() int { return len(m.Constraints) }

// NumBinaries returns the number of binary variables.
func (m *Model) NumBinaries() int {
	n := 0
	for _, v := range m.Vars {
		if v.Kind == Binary {
			n++
		}
	}
	return n
}

// Evaluate returns the objective value at a point.
func (m *Model) Evaluate(values []float64) float64 {
	return dot(m.Objective, values)
}

func dot(terms []Term, values []float64) float64 {
	var sum float64
	for _, t := range terms {
		sum += t.Coef * values[t.Var]
	}
	return sum
}
