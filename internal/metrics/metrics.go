// Package metrics derives EEV, VSS and EVPI from solved models.
package metrics

import (
	"errors"
	"fmt"
	"math"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/recourse"
)

// DefaultTolerance is the relative slack allowed on VSS, EVPI and the EEV cross-check.
const DefaultTolerance = 1e-6

// ErrInconsistent means solved values contradict an invariant that holds for
// every valid input. It points at a solver or model defect, not a data problem.
var ErrInconsistent = errors.New("inconsistent metrics")

// Solved groups the model results the metrics depend on.
type Solved struct {
	Expected    *recourse.Result
	Stochastic  *recourse.Result
	PerfectInfo map[string]*recourse.Result
	// Pinned is the stochastic model with orders fixed to the expected-value plan.
	// Optional; when present its optimum must equal EEV.
	Pinned *recourse.Result
}

// ScenarioBreakdown shows how each plan fares in one scenario.
type ScenarioBreakdown struct {
	Scenario          string  `json:"scenario"`
	Probability       float64 `json:"probability"`
	EVPlanProfit      float64 `json:"ev_plan_profit"`
	StochasticProfit  float64 `json:"stochastic_plan_profit"`
	PerfectInfoProfit float64 `json:"perfect_info_profit"`

	// Units spoiled and demand left unmet by each plan.
	EVPlanWaste         float64 `json:"ev_plan_waste"`
	EVPlanLostSales     float64 `json:"ev_plan_lost_sales"`
	StochasticWaste     float64 `json:"stochastic_plan_waste"`
	StochasticLostSales float64 `json:"stochastic_plan_lost_sales"`
}

// Summary holds the six reported scalars and their supporting detail.
type Summary struct {
	EV                float64             `json:"ev"`
	EEV               float64             `json:"eev"`
	StochasticOptimal float64             `json:"stochastic_optimal"`
	PerfectInfo       float64             `json:"perfect_info"`
	VSS               float64             `json:"vss"`
	EVPI              float64             `json:"evpi"`
	Breakdown         []ScenarioBreakdown `json:"scenarios"`

	EVPlan         domain.Plan `json:"-"`
	StochasticPlan domain.Plan `json:"-"`
}

// Calculator turns solved models into a Summary.
type Calculator struct {
	ds        *domain.Dataset
	plans     *PlanCalculator
	Tolerance float64
}

// NewCalculator creates a calculator with DefaultTolerance.
func NewCalculator(ds *domain.Dataset) *Calculator {
	return &Calculator{
		ds:        ds,
		plans:     NewPlanCalculator(ds),
		Tolerance: DefaultTolerance,
	}
}

// Compute derives EEV, VSS and EVPI. No further optimization happens here.
func (c *Calculator) Compute(s Solved) (*Summary, error) {
	if s.Expected == nil {
		return nil, fmt.Errorf("expected-value result is required")
	}
	if s.Stochastic == nil {
		return nil, fmt.Errorf("stochastic result is required")
	}

	evPlan := s.Expected.Plan()
	spPlan := s.Stochastic.Plan()

	eev, evOutcomes := c.plans.Expected(evPlan)
	_, spOutcomes := c.plans.Expected(spPlan)

	var perfect float64
	breakdown := make([]ScenarioBreakdown, 0, len(c.ds.Scenarios))
	for i, sc := range c.ds.Scenarios {
		pi, ok := s.PerfectInfo[sc.ID]
		if !ok || pi == nil {
			return nil, fmt.Errorf("perfect-information result for scenario %q is required", sc.ID)
		}
		perfect += sc.Probability * pi.Objective()
		breakdown = append(breakdown, ScenarioBreakdown{
			Scenario:          sc.ID,
			Probability:       sc.Probability,
			EVPlanProfit:      evOutcomes[i].Profit,
			StochasticProfit:  spOutcomes[i].Profit,
			PerfectInfoProfit: pi.Objective(),

			EVPlanWaste:         evOutcomes[i].Wasted,
			EVPlanLostSales:     evOutcomes[i].LostSales,
			StochasticWaste:     spOutcomes[i].Wasted,
			StochasticLostSales: spOutcomes[i].LostSales,
		})
	}

	sum := &Summary{
		EV:                s.Expected.Objective(),
		EEV:               eev,
		StochasticOptimal: s.Stochastic.Objective(),
		PerfectInfo:       perfect,
		Breakdown:         breakdown,
		EVPlan:            evPlan,
		StochasticPlan:    spPlan,
	}
	sum.VSS = sum.StochasticOptimal - sum.EEV
	sum.EVPI = sum.PerfectInfo - sum.StochasticOptimal

	if err := c.check(sum, s.Pinned); err != nil {
		return nil, err
	}
	return sum, nil
}

func (c *Calculator) check(sum *Summary, pinned *recourse.Result) error {
	slack := c.Tolerance * math.Max(1, math.Abs(sum.StochasticOptimal))
	if sum.VSS < -slack {
		return fmt.Errorf("%w: VSS %v is negative", ErrInconsistent, sum.VSS)
	}
	if sum.EVPI < -slack {
		return fmt.Errorf("%w: EVPI %v is negative", ErrInconsistent, sum.EVPI)
	}
	if pinned != nil && math.Abs(pinned.Objective()-sum.EEV) > slack {
		return fmt.Errorf("%w: EEV %v from the closed form differs from %v by LP", ErrInconsistent, sum.EEV, pinned.Objective())
	}
	return nil
}
