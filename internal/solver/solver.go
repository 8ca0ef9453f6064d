// Package solver is the boundary to the linear-programming engine.
//
// A Solver takes an lp.Model and returns a Solution carrying the solve status, the
// objective value and one value per model variable. Callers must check Status
// before trusting Objective or Values.
package solver

import (
	"context"

	"github.com/andresuchdata/perishable-vss/internal/lp"
)

// Status indicates the outcome of a solve.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	StatusInfeasible
	StatusUnbounded
	StatusError
)

// String method for Status enum
func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusError:
		return "error"
	default:
		return "unknown"
	}
}

// Solution contains the results from solving a model.
type Solution struct {
	// Status indicates the outcome of the solve.
	Status Status

	// Objective is the value of the objective function at the solution,
	// in the model's own direction (maximized objectives are not negated).
	Objective float64

	// Values holds one primal value per model variable, indexed by lp.Var.Index.
	Values []float64
}

// IsOptimal returns true if the solution is optimal.
func (s *Solution) IsOptimal() bool {
	return s != nil && s.Status == StatusOptimal
}

// Value returns the solution value of a variable.
// Returns 0 if the index is out of range.
func (s *Solution) Value(v lp.Var) float64 {
	i := v.Index()
	if s == nil || i < 0 || i >= len(s.Values) {
		return 0
	}
	return s.Values[i]
}

// Solver solves linear programs.
//
// Infeasible and unbounded models are reported through Solution.Status with a nil
// error; a non-nil error means the solver itself failed or the model was malformed.
type Solver interface {
	Solve(ctx context.Context, m *lp.Model) (*Solution, error)
}
