// Package recourse builds and solves the ordering models of the analysis.
//
// Every model shares one structure. Order quantities are chosen per cell
// (product, location). Sales and waste follow them per demand branch, under
// three constraints:
//
//	sales <= order
//	sales <= demand
//	waste >= order - sales
//
// The DemandSource decides which branches exist:
//
//   - ExpectedDemand: one branch at the probability-weighted average demand (EV model)
//   - ScenarioDemand(id): one branch at that scenario's demand (perfect information)
//   - RecourseDemand: one branch per scenario, weighted by probability (stochastic model)
package recourse

import (
	"fmt"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/lp"
)

type sourceKind int

const (
	expectedSource sourceKind = iota
	scenarioSource
	recourseSource
)

// DemandSource selects the demand figures a model is built against.
type DemandSource struct {
	kind     sourceKind
	scenario string
	fixed    domain.Plan
}

// ExpectedDemand binds sales to the average demand of each cell.
func ExpectedDemand() DemandSource {
	return DemandSource{kind: expectedSource}
}

// ScenarioDemand binds sales to one scenario's demand, known in advance.
func ScenarioDemand(id string) DemandSource {
	return DemandSource{kind: scenarioSource, scenario: id}
}

// RecourseDemand decides orders once and sales/waste per scenario.
func RecourseDemand() DemandSource {
	return DemandSource{kind: recourseSource}
}

// WithFixedOrders pins every order quantity to the given plan. Cells missing from
// the plan are pinned to zero.
func (s DemandSource) WithFixedOrders(plan domain.Plan) DemandSource {
	s.fixed = plan.Clone()
	return s
}

// Stochastic reports whether sales and waste are indexed by scenario.
func (s DemandSource) Stochastic() bool { return s.kind == recourseSource }

// Scenario returns the scenario id of a ScenarioDemand source.
func (s DemandSource) Scenario() string { return s.scenario }

// String names the source, used as the default model name.
func (s DemandSource) String() string {
	var name string
	switch s.kind {
	case expectedSource:
		name = "expected-value"
	case scenarioSource:
		name = "perfect-info/" + s.scenario
	default:
		name = "stochastic"
	}
	if s.fixed != nil {
		name += "+fixed-orders"
	}
	return name
}

// branch is one demand realization in scope of a model.
type branch struct {
	scenario string // empty for deterministic models
	weight   float64
	demand   func(domain.Cell) float64
}

// Key indexes sales and waste: a cell, and the scenario for stochastic models.
type Key struct {
	Cell     domain.Cell
	Scenario string
}

// Instance is a built, unsolved model together with its variable index.
type Instance struct {
	Name   string
	Source DemandSource
	Model  *lp.Model

	cells []domain.Cell
	order map[domain.Cell]lp.Var
	sales map[Key]lp.Var
	waste map[Key]lp.Var
}

// Build constructs the variables, constraints and objective for a demand source.
// The dataset must already be validated.
func Build(ds *domain.Dataset, src DemandSource) (*Instance, error) {
	branches, err := branchesFor(ds, src)
	if err != nil {
		return nil, err
	}

	cells := ds.Cells()
	inst := &Instance{
		Name:   src.String(),
		Source: src,
		Model:  lp.NewModel(src.String()),
		cells:  cells,
		order:  make(map[domain.Cell]lp.Var, len(cells)),
		sales:  make(map[Key]lp.Var, len(cells)*len(branches)),
		waste:  make(map[Key]lp.Var, len(cells)*len(branches)),
	}
	m := inst.Model

	for _, c := range cells {
		x := m.NewVar(varName("order", c, ""))
		inst.order[c] = x
		if src.fixed != nil {
			m.NewConstraint(varName("fix", c, ""), lp.Equal, src.fixed[c]).NewTerm(1, x)
		}

		for _, b := range branches {
			k := Key{Cell: c, Scenario: b.scenario}
			sales := m.NewVar(varName("sales", c, b.scenario))
			waste := m.NewVar(varName("waste", c, b.scenario))
			inst.sales[k] = sales
			inst.waste[k] = waste

			m.NewConstraint(varName("stock", c, b.scenario), lp.LessEqual, 0).
				NewTerm(1, sales).
				NewTerm(-1, x)
			m.NewConstraint(varName("demand", c, b.scenario), lp.LessEqual, b.demand(c)).
				NewTerm(1, sales)
			m.NewConstraint(varName("surplus", c, b.scenario), lp.GreaterEqual, 0).
				NewTerm(1, waste).
				NewTerm(-1, x).
				NewTerm(1, sales)
		}
	}

	setObjective(ds, inst, branches)
	return inst, nil
}

func branchesFor(ds *domain.Dataset, src DemandSource) ([]branch, error) {
	switch src.kind {
	case expectedSource:
		avg := ds.AverageDemand()
		return []branch{{
			weight: 1,
			demand: func(c domain.Cell) float64 { return avg[c] },
		}}, nil

	case scenarioSource:
		if _, ok := ds.Scenario(src.scenario); !ok {
			return nil, fmt.Errorf("unknown scenario %q", src.scenario)
		}
		return []branch{{
			weight: 1,
			demand: scenarioDemand(ds, src.scenario),
		}}, nil

	default:
		branches := make([]branch, 0, len(ds.Scenarios))
		for _, s := range ds.Scenarios {
			branches = append(branches, branch{
				scenario: s.ID,
				weight:   s.Probability,
				demand:   scenarioDemand(ds, s.ID),
			})
		}
		return branches, nil
	}
}

func scenarioDemand(ds *domain.Dataset, id string) func(domain.Cell) float64 {
	return func(c domain.Cell) float64 {
		v, _ := ds.DemandFor(c, id)
		return v
	}
}

func varName(kind string, c domain.Cell, scenario string) string {
	if scenario == "" {
		return fmt.Sprintf("%s[%s,%s]", kind, c.Product, c.Location)
	}
	return fmt.Sprintf("%s[%s,%s,%s]", kind, c.Product, c.Location, scenario)
}
