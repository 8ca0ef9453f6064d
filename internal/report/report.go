// Package report renders evaluation results for people and for scripts.
package report

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/shopspring/decimal"

	"github.com/andresuchdata/perishable-vss/internal/domain"
	"github.com/andresuchdata/perishable-vss/internal/metrics"
)

// Format selects how results are written.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat accepts "text" or "json", case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatJSON:
		return f, nil
	case "":
		return FormatText, nil
	default:
		return "", fmt.Errorf("unknown output format %q (want text or json)", s)
	}
}

// Money renders a value rounded to two decimals, ties to even.
func Money(v float64) string {
	return decimal.NewFromFloat(v).RoundBank(2).StringFixed(2)
}

// money marshals as a bare JSON number with two decimals.
func money(v float64) json.Number {
	return json.Number(Money(v))
}

var summaryLines = []struct {
	label string
	value func(*metrics.Summary) float64
}{
	{"EV (Expected Value): ", func(s *metrics.Summary) float64 { return s.EV }},
	{"EEV (Expected from EV plan): ", func(s *metrics.Summary) float64 { return s.EEV }},
	{"Stochastic Optimal Solution: ", func(s *metrics.Summary) float64 { return s.StochasticOptimal }},
	{"Perfect Info Solution: ", func(s *metrics.Summary) float64 { return s.PerfectInfo }},
	{"VSS (Value of Stochastic Solution): ", func(s *metrics.Summary) float64 { return s.VSS }},
	{"EVPI (Expected Value of Perfect Info): ", func(s *metrics.Summary) float64 { return s.EVPI }},
}

type summaryJSON struct {
	Dataset           string          `json:"dataset"`
	EV                json.Number     `json:"ev"`
	EEV               json.Number     `json:"eev"`
	StochasticOptimal json.Number     `json:"stochastic_optimal"`
	PerfectInfo       json.Number     `json:"perfect_info"`
	VSS               json.Number     `json:"vss"`
	EVPI              json.Number     `json:"evpi"`
	Scenarios         []breakdownJSON `json:"scenarios"`
}

type breakdownJSON struct {
	Scenario          string      `json:"scenario"`
	Probability       float64     `json:"probability"`
	EVPlanProfit      json.Number `json:"ev_plan_profit"`
	StochasticProfit  json.Number `json:"stochastic_plan_profit"`
	PerfectInfoProfit json.Number `json:"perfect_info_profit"`

	EVPlanWaste         json.Number `json:"ev_plan_waste"`
	EVPlanLostSales     json.Number `json:"ev_plan_lost_sales"`
	StochasticWaste     json.Number `json:"stochastic_plan_waste"`
	StochasticLostSales json.Number `json:"stochastic_plan_lost_sales"`
}

// WriteSummary writes the six headline values. JSON output adds the
// per-scenario breakdown.
func WriteSummary(w io.Writer, dataset string, sum *metrics.Summary, format Format) error {
	if format == FormatJSON {
		out := summaryJSON{
			Dataset:           dataset,
			EV:                money(sum.EV),
			EEV:               money(sum.EEV),
			StochasticOptimal: money(sum.StochasticOptimal),
			PerfectInfo:       money(sum.PerfectInfo),
			VSS:               money(sum.VSS),
			EVPI:              money(sum.EVPI),
			Scenarios:         make([]breakdownJSON, 0, len(sum.Breakdown)),
		}
		for _, b := range sum.Breakdown {
			out.Scenarios = append(out.Scenarios, breakdownJSON{
				Scenario:          b.Scenario,
				Probability:       b.Probability,
				EVPlanProfit:      money(b.EVPlanProfit),
				StochasticProfit:  money(b.StochasticProfit),
				PerfectInfoProfit: money(b.PerfectInfoProfit),

				EVPlanWaste:         money(b.EVPlanWaste),
				EVPlanLostSales:     money(b.EVPlanLostSales),
				StochasticWaste:     money(b.StochasticWaste),
				StochasticLostSales: money(b.StochasticLostSales),
			})
		}
		return writeJSON(w, out)
	}

	for _, l := range summaryLines {
		if _, err := fmt.Fprintf(w, "%s%s\n", l.label, Money(l.value(sum))); err != nil {
			return err
		}
	}
	return nil
}

type planRowJSON struct {
	Product         string      `json:"product"`
	Location        string      `json:"location"`
	AverageDemand   json.Number `json:"average_demand"`
	EVOrder         json.Number `json:"ev_order"`
	StochasticOrder json.Number `json:"stochastic_order"`
}

// WritePlans lists the expected-value and stochastic order for every cell.
func WritePlans(w io.Writer, ds *domain.Dataset, sum *metrics.Summary, format Format) error {
	avg := ds.AverageDemand()
	cells := ds.Cells()

	if format == FormatJSON {
		rows := make([]planRowJSON, 0, len(cells))
		for _, c := range cells {
			rows = append(rows, planRowJSON{
				Product:         c.Product,
				Location:        c.Location,
				AverageDemand:   money(avg[c]),
				EVOrder:         money(sum.EVPlan[c]),
				StochasticOrder: money(sum.StochasticPlan[c]),
			})
		}
		return writeJSON(w, rows)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "PRODUCT\tLOCATION\tAVG DEMAND\tEV ORDER\tSTOCHASTIC ORDER\t")
	for _, c := range cells {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t\n",
			c.Product, c.Location, Money(avg[c]), Money(sum.EVPlan[c]), Money(sum.StochasticPlan[c]))
	}
	return tw.Flush()
}

type datasetJSON struct {
	Dataset   string   `json:"dataset"`
	Products  []string `json:"products"`
	Locations []string `json:"locations"`
	Scenarios []string `json:"scenarios"`
	Cells     int      `json:"cells"`
}

// WriteDataset describes a validated dataset's dimensions.
func WriteDataset(w io.Writer, ds *domain.Dataset, format Format) error {
	out := datasetJSON{
		Dataset: ds.Name,
		Cells:   len(ds.Cells()),
	}
	for _, p := range ds.Products {
		out.Products = append(out.Products, p.ID)
	}
	for _, l := range ds.Locations {
		out.Locations = append(out.Locations, l.ID)
	}
	for _, s := range ds.Scenarios {
		out.Scenarios = append(out.Scenarios, s.ID)
	}
	if format == FormatJSON {
		return writeJSON(w, out)
	}

	_, err := fmt.Fprintf(w, "dataset %s is valid: %d products x %d locations x %d scenarios (%d cells)\n",
		out.Dataset, len(out.Products), len(out.Locations), len(out.Scenarios), out.Cells)
	return err
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
