package recourse

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/solver"
)

// WasteTolerance bounds how far optimal waste may sit from order − sales.
const WasteTolerance = 1e-6

// ErrLooseWaste means the optimizer left waste above the unsold surplus, which
// happens only with a wrong penalty sign or a non-maximizing solve.
var ErrLooseWaste = errors.New("waste is not tight at optimum")

// ErrConstraintViolated means the solver reported an optimum that breaks one of
// the model's constraints.
var ErrConstraintViolated = errors.New("solution violates a constraint")

// SolveError reports a model whose solve did not reach optimality.
type SolveError struct {
	Model  string
	Status solver.Status
	Err    error
}

func (e *SolveError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("model %s: solver status %s: %v", e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("model %s: solver status %s", e.Model, e.Status)
}

func (e *SolveError) Unwrap() error { return e.Err }

// Result is the immutable outcome of one solved model. Variables are discarded;
// only the extracted values remain.
type Result struct {
	name      string
	source    DemandSource
	objective float64
	orders    domain.Plan
	sales     map[Key]float64
	waste     map[Key]float64
}

// Name is the model name.
func (r *Result) Name() string { return r.name }

// Source is the demand source the model was built from.
func (r *Result) Source() DemandSource { return r.source }

// Objective is the optimal expected profit.
func (r *Result) Objective() float64 { return r.objective }

// Plan returns a copy of the optimal order quantities.
func (r *Result) Plan() domain.Plan { return r.orders.Clone() }

// Order returns the optimal order quantity of a cell.
func (r *Result) Order(c domain.Cell) float64 { return r.orders[c] }

// Sales returns optimal sales; scenario is empty for deterministic models.
func (r *Result) Sales(c domain.Cell, scenario string) float64 {
	return r.sales[Key{Cell: c, Scenario: scenario}]
}

// Waste returns optimal waste; scenario is empty for deterministic models.
func (r *Result) Waste(c domain.Cell, scenario string) float64 {
	return r.waste[Key{Cell: c, Scenario: scenario}]
}

// Solve runs the solver on a built instance and extracts its Result. Any status
// other than optimal is returned as a *SolveError.
func Solve(ctx context.Context, s solver.Solver, inst *Instance) (*Result, error) {
	sol, err := s.Solve(ctx, inst.Model)
	if err != nil {
		status := solver.StatusError
		if sol != nil {
			status = sol.Status
		}
		return nil, &SolveError{Model: inst.Name, Status: status, Err: err}
	}
	if !sol.IsOptimal() {
		return nil, &SolveError{Model: inst.Name, Status: sol.Status}
	}
	if err := checkFeasible(inst, sol.Values); err != nil {
		return nil, err
	}

	res := &Result{
		name:      inst.Name,
		source:    inst.Source,
		objective: sol.Objective,
		orders:    make(domain.Plan, len(inst.order)),
		sales:     make(map[Key]float64, len(inst.sales)),
		waste:     make(map[Key]float64, len(inst.waste)),
	}
	for c, v := range inst.order {
		res.orders[c] = sol.Value(v)
	}
	for k, v := range inst.sales {
		res.sales[k] = sol.Value(v)
	}
	for k, v := range inst.waste {
		res.waste[k] = sol.Value(v)
	}

	if err := res.checkWaste(); err != nil {
		return nil, err
	}
	return res, nil
}

// BuildAndSolve is Build followed by Solve.
func BuildAndSolve(ctx context.Context, s solver.Solver, ds *domain.Dataset, src DemandSource) (*Result, error) {
	inst, err := Build(ds, src)
	if err != nil {
		return nil, err
	}
	return Solve(ctx, s, inst)
}

func checkFeasible(inst *Instance, values []float64) error {
	if len(values) != inst.Model.NumVars() {
		return fmt.Errorf("model %s: %w: got %d values for %d variables",
			inst.Name, ErrConstraintViolated, len(values), inst.Model.NumVars())
	}
	for _, c := range inst.Model.Constraints() {
		if !c.Satisfied(values, WasteTolerance*math.Max(1, math.Abs(c.RHS))) {
			return fmt.Errorf("model %s: %w: %s", inst.Name, ErrConstraintViolated, c.Name)
		}
	}
	return nil
}

func (r *Result) checkWaste() error {
	for k, w := range r.waste {
		surplus := r.orders[k.Cell] - r.sales[k]
		if math.Abs(w-surplus) > WasteTolerance*math.Max(1, math.Abs(surplus)) {
			return fmt.Errorf("model %s: %w: %s/%s scenario %q waste %v, surplus %v",
				r.name, ErrLooseWaste, k.Cell.Product, k.Cell.Location, k.Scenario, w, surplus)
		}
	}
	return nil
}
