package recourse

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/lp"
	"github.com/andresuchdata/perishable-vss/internal/solver"
)

var cake = domain.Cell{Product: "Cake", Location: "Donnybrook"}

// lowHigh is the hand-checkable instance: price 15, cost 5, waste penalty 2,
// emissions 1.0 * 0.5, demand 10 or 20 with equal odds.
func lowHigh() *domain.Dataset {
	return &domain.Dataset{
		Name:          "low-high",
		Products:      []domain.Product{{ID: "Cake", Price: 15, Cost: 5, WastePenalty: 2}},
		Locations:     []domain.Location{{ID: "Donnybrook", EmissionsFactor: 1.0}},
		Scenarios:     []domain.Scenario{{ID: "Low", Probability: 0.5}, {ID: "High", Probability: 0.5}},
		EmissionsCost: 0.5,
		Demand: domain.DemandTable{
			"Cake": {"Donnybrook": {"Low": 10, "High": 20}},
		},
	}
}

func TestBuild_ModelShape(t *testing.T) {
	tests := []struct {
		name            string
		src             DemandSource
		wantVars        int
		wantConstraints int
		wantName        string
	}{
		{name: "expected value", src: ExpectedDemand(), wantVars: 3, wantConstraints: 3, wantName: "expected-value"},
		{name: "perfect information", src: ScenarioDemand("Low"), wantVars: 3, wantConstraints: 3, wantName: "perfect-info/Low"},
		{name: "stochastic", src: RecourseDemand(), wantVars: 5, wantConstraints: 6, wantName: "stochastic"},
		{
			name:            "stochastic with pinned orders",
			src:             RecourseDemand().WithFixedOrders(domain.Plan{cake: 15}),
			wantVars:        5,
			wantConstraints: 7,
			wantName:        "stochastic+fixed-orders",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst, err := Build(lowHigh(), tt.src)
			require.NoError(t, err)
			assert.Equal(t, tt.wantVars, inst.Model.NumVars())
			assert.Len(t, inst.Model.Constraints(), tt.wantConstraints)
			assert.Equal(t, tt.wantName, inst.Name)
			assert.True(t, inst.Model.Objective().IsMaximize())
			require.NoError(t, inst.Model.Validate())
		})
	}
}

func TestBuild_OnlyStochasticModelsIndexByScenario(t *testing.T) {
	ev, err := Build(lowHigh(), ExpectedDemand())
	require.NoError(t, err)
	for k := range ev.sales {
		assert.Empty(t, k.Scenario)
	}

	sp, err := Build(lowHigh(), RecourseDemand())
	require.NoError(t, err)
	assert.Contains(t, sp.sales, Key{Cell: cake, Scenario: "Low"})
	assert.Contains(t, sp.sales, Key{Cell: cake, Scenario: "High"})
	assert.Len(t, sp.order, 1)
}

func TestBuild_ConstraintsCapSalesAndBoundWaste(t *testing.T) {
	inst, err := Build(lowHigh(), ScenarioDemand("High"))
	require.NoError(t, err)

	byName := map[string]*lp.Constraint{}
	for _, c := range inst.Model.Constraints() {
		byName[c.Name] = c
	}
	require.Contains(t, byName, "demand[Cake,Donnybrook]")
	assert.Equal(t, lp.LessEqual, byName["demand[Cake,Donnybrook]"].Sense)
	assert.Equal(t, 20.0, byName["demand[Cake,Donnybrook]"].RHS)
	assert.Equal(t, lp.LessEqual, byName["stock[Cake,Donnybrook]"].Sense)
	assert.Equal(t, lp.GreaterEqual, byName["surplus[Cake,Donnybrook]"].Sense)
}

func TestBuild_UnknownScenario(t *testing.T) {
	_, err := Build(lowHigh(), ScenarioDemand("Peak"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown scenario "Peak"`)
}

func TestSolve_ExpectedValueOrdersAverageDemand(t *testing.T) {
	res, err := BuildAndSolve(context.Background(), solver.NewSimplex(0), lowHigh(), ExpectedDemand())
	require.NoError(t, err)

	// 15 units at margin 15 - 5 - 0.5
	assert.InDelta(t, 142.5, res.Objective(), 1e-6)
	assert.InDelta(t, 15, res.Order(cake), 1e-6)
	assert.LessOrEqual(t, res.Order(cake), lowHigh().AverageDemand()[cake]+1e-6)
	assert.InDelta(t, 0, res.Waste(cake, ""), 1e-6)
}

func TestSolve_StochasticBalancesWasteAgainstLostSales(t *testing.T) {
	res, err := BuildAndSolve(context.Background(), solver.NewSimplex(0), lowHigh(), RecourseDemand())
	require.NoError(t, err)

	order := res.Order(cake)
	assert.GreaterOrEqual(t, order, 10-1e-6)
	assert.LessOrEqual(t, order, 20+1e-6)
	// Between 10 and 20 each extra unit earns 0.5*(15-5.5) - 0.5*(5.5+2) = 1, so
	// the optimum sits at 20 and profit is 85 + 20.
	assert.InDelta(t, 20, order, 1e-6)
	assert.InDelta(t, 105, res.Objective(), 1e-6)

	assert.InDelta(t, 10, res.Sales(cake, "Low"), 1e-6)
	assert.InDelta(t, 10, res.Waste(cake, "Low"), 1e-6)
	assert.InDelta(t, 20, res.Sales(cake, "High"), 1e-6)
	assert.InDelta(t, 0, res.Waste(cake, "High"), 1e-6)
}

func TestSolve_PerfectInformationOrdersExactDemand(t *testing.T) {
	tests := []struct {
		scenario string
		demand   float64
	}{
		{scenario: "Low", demand: 10},
		{scenario: "High", demand: 20},
	}
	for _, tt := range tests {
		t.Run(tt.scenario, func(t *testing.T) {
			res, err := BuildAndSolve(context.Background(), solver.NewSimplex(0), lowHigh(), ScenarioDemand(tt.scenario))
			require.NoError(t, err)
			assert.InDelta(t, tt.demand, res.Order(cake), 1e-6)
			assert.InDelta(t, 9.5*tt.demand, res.Objective(), 1e-6)
			assert.InDelta(t, 0, res.Waste(cake, ""), 1e-6)
		})
	}
}

func TestSolve_PinnedOrdersReproduceClosedFormProfit(t *testing.T) {
	src := RecourseDemand().WithFixedOrders(domain.Plan{cake: 15})
	res, err := BuildAndSolve(context.Background(), solver.NewSimplex(0), lowHigh(), src)
	require.NoError(t, err)

	econ := lowHigh().EconomicsFor(cake)
	want := 0.5*econ.Profit(15, 10) + 0.5*econ.Profit(15, 20)
	assert.InDelta(t, want, res.Objective(), 1e-6)
	assert.InDelta(t, 100, res.Objective(), 1e-6)
}

func TestResult_PlanIsACopy(t *testing.T) {
	res, err := BuildAndSolve(context.Background(), solver.NewSimplex(0), lowHigh(), ExpectedDemand())
	require.NoError(t, err)

	plan := res.Plan()
	plan[cake] = 999
	assert.InDelta(t, 15, res.Order(cake), 1e-6)
}

type stubSolver struct {
	sol *solver.Solution
	err error
}

func (s stubSolver) Solve(context.Context, *lp.Model) (*solver.Solution, error) {
	return s.sol, s.err
}

func TestSolve_NonOptimalStatusIsAnError(t *testing.T) {
	inst, err := Build(lowHigh(), ExpectedDemand())
	require.NoError(t, err)

	_, err = Solve(context.Background(), stubSolver{sol: &solver.Solution{Status: solver.StatusInfeasible}}, inst)

	var solveErr *SolveError
	require.True(t, errors.As(err, &solveErr))
	assert.Equal(t, "expected-value", solveErr.Model)
	assert.Equal(t, solver.StatusInfeasible, solveErr.Status)
	assert.Contains(t, err.Error(), "infeasible")
}

func TestSolve_SolverFailureKeepsCause(t *testing.T) {
	inst, err := Build(lowHigh(), RecourseDemand())
	require.NoError(t, err)
	cause := errors.New("singular basis")

	_, err = Solve(context.Background(), stubSolver{err: cause}, inst)

	assert.ErrorIs(t, err, cause)
	var solveErr *SolveError
	require.True(t, errors.As(err, &solveErr))
	assert.Equal(t, solver.StatusError, solveErr.Status)
}

func TestSolve_DetectsLooseWaste(t *testing.T) {
	inst, err := Build(lowHigh(), ExpectedDemand())
	require.NoError(t, err)

	// order 15, sales 15, waste 3: feasible but waste exceeds the zero surplus.
	values := make([]float64, inst.Model.NumVars())
	values[inst.order[cake].Index()] = 15
	values[inst.sales[Key{Cell: cake}].Index()] = 15
	values[inst.waste[Key{Cell: cake}].Index()] = 3
	stub := stubSolver{sol: &solver.Solution{Status: solver.StatusOptimal, Objective: 136.5, Values: values}}

	_, err = Solve(context.Background(), stub, inst)

	assert.ErrorIs(t, err, ErrLooseWaste)
}

func TestSolve_DetectsConstraintViolations(t *testing.T) {
	inst, err := Build(lowHigh(), ExpectedDemand())
	require.NoError(t, err)

	overSold := make([]float64, inst.Model.NumVars())
	overSold[inst.order[cake].Index()] = 10
	overSold[inst.sales[Key{Cell: cake}].Index()] = 15

	tests := []struct {
		name   string
		values []float64
		want   string
	}{
		{name: "sales above stock", values: overSold, want: "stock["},
		{name: "missing values", values: []float64{1}, want: "got 1 values"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stub := stubSolver{sol: &solver.Solution{Status: solver.StatusOptimal, Values: tt.values}}

			_, err := Solve(context.Background(), stub, inst)
			require.ErrorIs(t, err, ErrConstraintViolated)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
