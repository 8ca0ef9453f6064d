// Package lp describes linear programs independently of any solver.
//
// A Model owns continuous, non-negative variables, linear constraints and one
// linear objective. Models are built once, handed to a solver and then discarded:
//
//	m := lp.NewModel("ev")
//	x := m.NewVar("x")
//	m.NewConstraint("cap", lp.LessEqual, 10).NewTerm(1, x)
//	m.Objective().SetMaximize().NewTerm(3, x)
package lp

import (
	"fmt"
)

// Sense is the relation between the left-hand side and the right-hand side of a constraint.
type Sense int

const (
	LessEqual Sense = iota
	GreaterEqual
	Equal
)

// String method for Sense enum
func (s Sense) String() string {
	switch s {
	case LessEqual:
		return "<="
	case GreaterEqual:
		return ">="
	case Equal:
		return "="
	default:
		return "?"
	}
}

// Var is a handle to a variable of one model. All variables are bounded below by zero.
type Var struct {
	model *Model
	index int
}

// Index is the position of the variable in its model.
func (v Var) Index() int { return v.index }

// Name returns the variable name given at creation.
func (v Var) Name() string {
	if v.model == nil || v.index < 0 || v.index >= len(v.model.vars) {
		return ""
	}
	return v.model.vars[v.index]
}

// Term is a coefficient applied to a variable.
type Term struct {
	Coef float64
	Var  Var
}

// Constraint is sum(terms) <sense> RHS.
type Constraint struct {
	Name  string
	Sense Sense
	RHS   float64
	Terms []Term
}

// NewTerm appends coef*v to the left-hand side.
func (c *Constraint) NewTerm(coef float64, v Var) *Constraint {
	c.Terms = append(c.Terms, Term{Coef: coef, Var: v})
	return c
}

// Objective is a linear expression to maximize or minimize.
type Objective struct {
	maximize bool
	Terms    []Term
}

// SetMaximize marks the objective for maximization.
func (o *Objective) SetMaximize() *Objective {
	o.maximize = true
	return o
}

// SetMinimize marks the objective for minimization (the default).
func (o *Objective) SetMinimize() *Objective {
	o.maximize = false
	return o
}

// IsMaximize reports the optimization direction.
func (o *Objective) IsMaximize() bool { return o.maximize }

// NewTerm appends coef*v. Repeated variables are summed.
func (o *Objective) NewTerm(coef float64, v Var) *Objective {
	o.Terms = append(o.Terms, Term{Coef: coef, Var: v})
	return o
}

// Value evaluates the objective at a full variable assignment.
func (o *Objective) Value(values []float64) float64 {
	var total float64
	for _, t := range o.Terms {
		if t.Var.index < len(values) {
			total += t.Coef * values[t.Var.index]
		}
	}
	return total
}

// Model is a linear program under construction.
type Model struct {
	name        string
	vars        []string
	constraints []*Constraint
	objective   Objective
}

// NewModel creates an empty model.
func NewModel(name string) *Model {
	return &Model{name: name}
}

// Name returns the model name.
func (m *Model) Name() string { return m.name }

// NewVar adds a continuous variable with lower bound 0.
func (m *Model) NewVar(name string) Var {
	m.vars = append(m.vars, name)
	return Var{model: m, index: len(m.vars) - 1}
}

// NewConstraint adds an empty constraint; terms are appended with NewTerm.
func (m *Model) NewConstraint(name string, sense Sense, rhs float64) *Constraint {
	c := &Constraint{Name: name, Sense: sense, RHS: rhs}
	m.constraints = append(m.constraints, c)
	return c
}

// Objective returns the model objective for editing.
func (m *Model) Objective() *Objective { return &m.objective }

// NumVars is the number of variables.
func (m *Model) NumVars() int { return len(m.vars) }

// Constraints returns the constraints in insertion order.
func (m *Model) Constraints() []*Constraint { return m.constraints }

// Validate checks that every term refers to a variable of this model.
func (m *Model) Validate() error {
	check := func(where string, t Term) error {
		if t.Var.model != m {
			return fmt.Errorf("model %s: %s references a variable of another model", m.name, where)
		}
		if t.Var.index < 0 || t.Var.index >= len(m.vars) {
			return fmt.Errorf("model %s: %s references unknown variable %d", m.name, where, t.Var.index)
		}
		return nil
	}
	for _, c := range m.constraints {
		for _, t := range c.Terms {
			if err := check("constraint "+c.Name, t); err != nil {
				return err
			}
		}
	}
	for _, t := range m.objective.Terms {
		if err := check("objective", t); err != nil {
			return err
		}
	}
	return nil
}

// Satisfied reports whether an assignment meets constraint c within tol.
func (c *Constraint) Satisfied(values []float64, tol float64) bool {
	var lhs float64
	for _, t := range c.Terms {
		lhs += t.Coef * values[t.Var.index]
	}
	switch c.Sense {
	case LessEqual:
		return lhs <= c.RHS+tol
	case GreaterEqual:
		return lhs >= c.RHS-tol
	default:
		return lhs >= c.RHS-tol && lhs <= c.RHS+tol
	}
}
