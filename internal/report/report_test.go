package report

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/metrics"
)

var cake = domain.Cell{Product: "Cake", Location: "Donnybrook"}

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

func summary() *metrics.Summary {
	return &metrics.Summary{
		EV:                142.5,
		EEV:               100,
		StochasticOptimal: 105.00000000001,
		PerfectInfo:       142.5,
		VSS:               5,
		EVPI:              37.499999999,
		Breakdown: []metrics.ScenarioBreakdown{
			{Scenario: "Low", Probability: 0.5, EVPlanProfit: 57.5, StochasticProfit: 20, PerfectInfoProfit: 95, EVPlanWaste: 5, StochasticWaste: 10},
			{Scenario: "High", Probability: 0.5, EVPlanProfit: 142.5, StochasticProfit: 190, PerfectInfoProfit: 190, EVPlanLostSales: 5},
		},
		EVPlan:         domain.Plan{cake: 15},
		StochasticPlan: domain.Plan{cake: 20},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{in: "text", want: FormatText},
		{in: "JSON", want: FormatJSON},
		{in: "", want: FormatText},
		{in: "csv", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "142.50", Money(142.5))
	assert.Equal(t, "0.00", Money(-1e-9))
	assert.Equal(t, "37.50", Money(37.499999999))
	assert.Equal(t, "-3.12", Money(-3.125))
	assert.Equal(t, "0.12", Money(0.125))
	assert.Equal(t, "0.38", Money(0.375))
}

func TestWriteSummary_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, "low-high", summary(), FormatText))

	want := strings.Join([]string{
		"EV (Expected Value): 142.50",
		"EEV (Expected from EV plan): 100.00",
		"Stochastic Optimal Solution: 105.00",
		"Perfect Info Solution: 142.50",
		"VSS (Value of Stochastic Solution): 5.00",
		"EVPI (Expected Value of Perfect Info): 37.50",
	}, "\n") + "\n"
	assert.Equal(t, want, buf.String())
}

func TestWriteSummary_JSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteSummary(&buf, "low-high", summary(), FormatJSON))

	var got map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, "low-high", got["dataset"])
	assert.Equal(t, 105.0, got["stochastic_optimal"])
	assert.Equal(t, 37.5, got["evpi"])

	scenarios, ok := got["scenarios"].([]any)
	require.True(t, ok)
	require.Len(t, scenarios, 2)
	low := scenarios[0].(map[string]any)
	assert.Equal(t, "Low", low["scenario"])
	assert.Equal(t, 57.5, low["ev_plan_profit"])
	assert.Equal(t, 5.0, low["ev_plan_waste"])
	assert.Equal(t, 10.0, low["stochastic_plan_waste"])
	high := scenarios[1].(map[string]any)
	assert.Equal(t, 5.0, high["ev_plan_lost_sales"])
	assert.Equal(t, 0.0, high["stochastic_plan_lost_sales"])
	assert.Contains(t, buf.String(), `"ev": 142.50`)
}

func TestWritePlans(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePlans(&buf, lowHigh(), summary(), FormatText))

		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		require.Len(t, lines, 2)
		assert.Contains(t, lines[0], "STOCHASTIC ORDER")
		assert.Equal(t, []string{"Cake", "Donnybrook", "15.00", "15.00", "20.00"}, strings.Fields(lines[1]))
	})

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, WritePlans(&buf, lowHigh(), summary(), FormatJSON))

		var rows []map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &rows))
		require.Len(t, rows, 1)
		assert.Equal(t, "Cake", rows[0]["product"])
		assert.Equal(t, 15.0, rows[0]["ev_order"])
		assert.Equal(t, 20.0, rows[0]["stochastic_order"])
	})
}

func TestWriteDataset(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteDataset(&buf, lowHigh(), FormatText))
	assert.Equal(t, "dataset low-high is valid: 1 products x 1 locations x 2 scenarios (1 cells)\n", buf.String())

	buf.Reset()
	require.NoError(t, WriteDataset(&buf, lowHigh(), FormatJSON))
	var got datasetJSON
	require.NoError(t, json.Unmarshal(buf.Bytes(), &got))
	assert.Equal(t, []string{"Low", "High"}, got.Scenarios)
	assert.Equal(t, 1, got.Cells)
}
