package recourse

import (
	"github.com/andresuchdata/perishable-vss/internal/domain"
)

// setObjective installs expected profit:
//
//	Σ_branch weight · Σ_cell (price·sales − cost·order − wastePenalty·waste − emissions·order)
//
// Deterministic models have a single branch of weight 1. Emissions are charged on
// the ordered quantity whether the units sell or spoil.
func setObjective(ds *domain.Dataset, inst *Instance, branches []branch) {
	obj := inst.Model.Objective().SetMaximize()
	for _, c := range inst.cells {
		econ := ds.EconomicsFor(c)
		x := inst.order[c]
		for _, b := range branches {
			k := Key{Cell: c, Scenario: b.scenario}
			obj.NewTerm(b.weight*econ.Price, inst.sales[k])
			obj.NewTerm(-b.weight*econ.Cost, x)
			obj.NewTerm(-b.weight*econ.WastePenalty, inst.waste[k])
			obj.NewTerm(-b.weight*econ.Emissions, x)
		}
	}
}
