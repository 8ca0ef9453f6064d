package solver

import (
	"context"
	stderrors "errors"
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	gonumlp "gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/andresuchdata/perishable-vss/internal/lp"
)

// DefaultTolerance is the simplex pivot tolerance used when none is configured.
const DefaultTolerance = 1e-9

// Simplex solves models with gonum's dense simplex implementation.
type Simplex struct {
	Tolerance float64
}

// NewSimplex creates a simplex solver. A non-positive tolerance selects DefaultTolerance.
func NewSimplex(tol float64) *Simplex {
	if tol <= 0 {
		tol = DefaultTolerance
	}
	return &Simplex{Tolerance: tol}
}

var _ Solver = (*Simplex)(nil)

// standardForm is `minimize c·z subject to A z = b, z >= 0`, where the first
// len(columns) entries of z are model variables and the rest are slacks.
type standardForm struct {
	c       []float64
	a       *mat.Dense
	b       []float64
	columns []int // model variable index of each structural column
}

// Solve converts the model to standard form and runs the simplex method.
func (s *Simplex) Solve(ctx context.Context, m *lp.Model) (*Solution, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := m.Validate(); err != nil {
		return nil, errors.WithStack(err)
	}

	n := m.NumVars()
	obj := minimizationCoefficients(m)

	rows, used := collectRows(m, n)

	// A variable that appears in no constraint sits at its lower bound unless the
	// objective rewards increasing it without limit.
	for j := 0; j < n; j++ {
		if !used[j] && obj[j] < 0 {
			return &Solution{Status: StatusUnbounded}, nil
		}
	}

	values := make([]float64, n)
	live := rows[:0]
	for _, r := range rows {
		if len(r.coefs) == 0 {
			if !emptyRowFeasible(r, s.Tolerance) {
				return &Solution{Status: StatusInfeasible}, nil
			}
			continue
		}
		live = append(live, r)
	}

	if len(live) > 0 {
		sf := buildStandardForm(live, used, obj)
		if r, c := sf.a.Dims(); r > c {
			return &Solution{Status: StatusError}, errors.Errorf("model %s: %d rows exceed %d columns", m.Name(), r, c)
		}
		z, err := s.run(sf)
		switch {
		case stderrors.Is(err, gonumlp.ErrInfeasible):
			return &Solution{Status: StatusInfeasible}, nil
		case stderrors.Is(err, gonumlp.ErrUnbounded):
			return &Solution{Status: StatusUnbounded}, nil
		case err != nil:
			return &Solution{Status: StatusError}, errors.Wrapf(err, "simplex failed for model %s", m.Name())
		}
		for k, j := range sf.columns {
			values[j] = snap(z[k], s.Tolerance)
		}
	}

	return &Solution{
		Status:    StatusOptimal,
		Objective: m.Objective().Value(values),
		Values:    values,
	}, nil
}

// run calls gonum and turns its input panics into errors.
func (s *Simplex) run(sf standardForm) (z []float64, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("simplex panic: %v", r)
		}
	}()
	_, z, err = gonumlp.Simplex(sf.c, sf.a, sf.b, s.Tolerance, nil)
	return z, err
}

type row struct {
	coefs map[int]float64
	sense lp.Sense
	rhs   float64
}

// collectRows merges repeated terms per constraint and records which variables
// appear in at least one constraint with a non-zero coefficient.
func collectRows(m *lp.Model, n int) ([]row, []bool) {
	used := make([]bool, n)
	rows := make([]row, 0, len(m.Constraints()))
	for _, c := range m.Constraints() {
		coefs := make(map[int]float64, len(c.Terms))
		for _, t := range c.Terms {
			coefs[t.Var.Index()] += t.Coef
		}
		for j, v := range coefs {
			if v == 0 {
				delete(coefs, j)
				continue
			}
			used[j] = true
		}
		rows = append(rows, row{coefs: coefs, sense: c.Sense, rhs: c.RHS})
	}
	return rows, used
}

func minimizationCoefficients(m *lp.Model) []float64 {
	obj := make([]float64, m.NumVars())
	sign := 1.0
	if m.Objective().IsMaximize() {
		sign = -1
	}
	for _, t := range m.Objective().Terms {
		obj[t.Var.Index()] += sign * t.Coef
	}
	return obj
}

func emptyRowFeasible(r row, tol float64) bool {
	switch r.sense {
	case lp.LessEqual:
		return 0 <= r.rhs+tol
	case lp.GreaterEqual:
		return 0 >= r.rhs-tol
	default:
		return math.Abs(r.rhs) <= tol
	}
}

func buildStandardForm(rows []row, used []bool, obj []float64) standardForm {
	colOf := make(map[int]int, len(used))
	var columns []int
	for j, u := range used {
		if u {
			colOf[j] = len(columns)
			columns = append(columns, j)
		}
	}

	slacks := 0
	for _, r := range rows {
		if r.sense != lp.Equal {
			slacks++
		}
	}

	mRows := len(rows)
	nCols := len(columns) + slacks
	a := mat.NewDense(mRows, nCols, nil)
	b := make([]float64, mRows)
	c := make([]float64, nCols)
	for k, j := range columns {
		c[k] = obj[j]
	}

	slack := len(columns)
	for i, r := range rows {
		for j, v := range r.coefs {
			a.Set(i, colOf[j], v)
		}
		switch r.sense {
		case lp.LessEqual:
			a.Set(i, slack, 1)
			slack++
		case lp.GreaterEqual:
			a.Set(i, slack, -1)
			slack++
		}
		b[i] = r.rhs
		if b[i] < 0 {
			for k := 0; k < nCols; k++ {
				a.Set(i, k, -a.At(i, k))
			}
			b[i] = -b[i]
		}
	}

	return standardForm{c: c, a: a, b: b, columns: columns}
}

// snap clears floating-point residue around zero.
func snap(v, tol float64) float64 {
	if math.Abs(v) <= tol {
		return 0
	}
	return v
}
