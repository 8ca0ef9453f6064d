package metrics

import "github.com/andresuchdata/perishable-vss/internal/domain"

// PlanCalculator re-evaluates a fixed order plan against realized demand.
// It is a post-hoc evaluation, not an optimization: sales and waste are literal
// min/max of the plan and the demand.
type PlanCalculator struct {
	ds *domain.Dataset
}

// NewPlanCalculator creates a calculator over a validated dataset.
func NewPlanCalculator(ds *domain.Dataset) *PlanCalculator {
	return &PlanCalculator{ds: ds}
}

// CellOutcome is the realized result of one cell under one scenario.
type CellOutcome struct {
	Cell      domain.Cell
	Ordered   float64
	Demand    float64
	Sold      float64
	Wasted    float64
	LostSales float64
	Profit    float64
}

// ScenarioOutcome aggregates a plan's cells under one scenario.
type ScenarioOutcome struct {
	Scenario    string
	Probability float64
	Cells       []CellOutcome
	Wasted      float64
	LostSales   float64
	Profit      float64
}

// Calculate computes the realized outcome of a plan when a scenario's demand shows up.
func (pc *PlanCalculator) Calculate(plan domain.Plan, scenario domain.Scenario) ScenarioOutcome {
	out := ScenarioOutcome{
		Scenario:    scenario.ID,
		Probability: scenario.Probability,
	}
	for _, c := range pc.ds.Cells() {
		ordered := plan[c]
		demand, _ := pc.ds.DemandFor(c, scenario.ID)
		econ := pc.ds.EconomicsFor(c)

		// 1. Sold is capped by both stock and demand
		sold := min(ordered, demand)
		// 2. Unsold units spoil
		wasted := max(0, ordered-demand)
		// 3. Unmet demand is lost, not back-ordered
		lost := max(0, demand-ordered)

		profit := econ.Profit(ordered, demand)
		out.Cells = append(out.Cells, CellOutcome{
			Cell:      c,
			Ordered:   ordered,
			Demand:    demand,
			Sold:      sold,
			Wasted:    wasted,
			LostSales: lost,
			Profit:    profit,
		})
		out.Wasted += wasted
		out.LostSales += lost
		out.Profit += profit
	}
	return out
}

// Expected is the probability-weighted profit of a plan over all scenarios.
// Applied to the expected-value plan this is EEV.
func (pc *PlanCalculator) Expected(plan domain.Plan) (float64, []ScenarioOutcome) {
	var total float64
	outcomes := make([]ScenarioOutcome, 0, len(pc.ds.Scenarios))
	for _, s := range pc.ds.Scenarios {
		o := pc.Calculate(plan, s)
		total += s.Probability * o.Profit
		outcomes = append(outcomes, o)
	}
	return total, outcomes
}
