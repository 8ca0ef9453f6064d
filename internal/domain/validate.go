package domain

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ProbabilityTolerance bounds how far scenario probabilities may drift from 1.
const ProbabilityTolerance = 1e-9

// ErrInvalidDataset is wrapped by every validation failure.
var ErrInvalidDataset = errors.New("invalid dataset")

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidDataset, fmt.Sprintf(format, args...))
}

// Validate rejects datasets the models cannot be built from. It runs before any
// model construction.
func (d *Dataset) Validate() error {
	if d == nil {
		return invalid("dataset is nil")
	}
	if len(d.Products) == 0 {
		return invalid("no products")
	}
	if len(d.Locations) == 0 {
		return invalid("no locations")
	}
	if len(d.Scenarios) == 0 {
		return invalid("no scenarios")
	}
	if err := checkNonNegative("emissions_cost", d.EmissionsCost); err != nil {
		return err
	}

	products := make(map[string]bool, len(d.Products))
	for _, p := range d.Products {
		if p.ID == "" {
			return invalid("product with empty id")
		}
		if products[p.ID] {
			return invalid("duplicate product %q", p.ID)
		}
		products[p.ID] = true
		fields := []struct {
			name  string
			value float64
		}{{"price", p.Price}, {"cost", p.Cost}, {"waste_penalty", p.WastePenalty}}
		for _, f := range fields {
			if err := checkNonNegative(fmt.Sprintf("product %q %s", p.ID, f.name), f.value); err != nil {
				return err
			}
		}
	}

	locations := make(map[string]bool, len(d.Locations))
	for _, l := range d.Locations {
		if l.ID == "" {
			return invalid("location with empty id")
		}
		if locations[l.ID] {
			return invalid("duplicate location %q", l.ID)
		}
		locations[l.ID] = true
		if err := checkNonNegative(fmt.Sprintf("location %q emissions_factor", l.ID), l.EmissionsFactor); err != nil {
			return err
		}
	}

	scenarios := make(map[string]bool, len(d.Scenarios))
	var total float64
	for _, s := range d.Scenarios {
		if s.ID == "" {
			return invalid("scenario with empty id")
		}
		if scenarios[s.ID] {
			return invalid("duplicate scenario %q", s.ID)
		}
		scenarios[s.ID] = true
		if math.IsNaN(s.Probability) || s.Probability < 0 || s.Probability > 1 {
			return invalid("scenario %q probability %v outside [0, 1]", s.ID, s.Probability)
		}
		total += s.Probability
	}
	if math.Abs(total-1) > ProbabilityTolerance {
		return invalid("scenario probabilities sum to %v, want 1", total)
	}

	if err := d.validateDemand(products, locations, scenarios); err != nil {
		return err
	}
	return nil
}

func (d *Dataset) validateDemand(products, locations, scenarios map[string]bool) error {
	for _, p := range sortedKeys(d.Demand) {
		if !products[p] {
			return invalid("demand references unknown product %q", p)
		}
		for _, l := range sortedKeys(d.Demand[p]) {
			if !locations[l] {
				return invalid("demand references unknown location %q for product %q", l, p)
			}
			for _, s := range sortedKeys(d.Demand[p][l]) {
				if !scenarios[s] {
					return invalid("demand references unknown scenario %q for %s/%s", s, p, l)
				}
			}
		}
	}

	for _, c := range d.Cells() {
		for _, s := range d.Scenarios {
			v, ok := d.DemandFor(c, s.ID)
			if !ok {
				return invalid("missing demand for %s/%s in scenario %q", c.Product, c.Location, s.ID)
			}
			if err := checkNonNegative(fmt.Sprintf("demand %s/%s/%s", c.Product, c.Location, s.ID), v); err != nil {
				return err
			}
		}
	}
	return nil
}

func checkNonNegative(what string, v float64) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return invalid("%s is not finite", what)
	}
	if v < 0 {
		return invalid("%s must be >= 0, got %v", what, v)
	}
	return nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
