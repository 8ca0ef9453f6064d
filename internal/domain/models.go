// internal/domain/models.go
package domain

// Product is a perishable good with location-independent economics.
type Product struct {
	ID           string  `json:"id" yaml:"id"`
	Price        float64 `json:"price" yaml:"price"`
	Cost         float64 `json:"cost" yaml:"cost"`
	WastePenalty float64 `json:"waste_penalty" yaml:"waste_penalty"`
}

// Location is a store or channel that receives orders.
type Location struct {
	ID              string  `json:"id" yaml:"id"`
	EmissionsFactor float64 `json:"emissions_factor" yaml:"emissions_factor"`
}

// Scenario is one possible demand realization.
type Scenario struct {
	ID          string  `json:"id" yaml:"id"`
	Probability float64 `json:"probability" yaml:"probability"`
}

// DemandTable maps product -> location -> scenario -> quantity.
type DemandTable map[string]map[string]map[string]float64

// Cell identifies a (product, location) pair, the index of every order quantity.
type Cell struct {
	Product  string `json:"product"`
	Location string `json:"location"`
}

// Plan holds order quantities per cell.
type Plan map[Cell]float64

// Clone returns an independent copy of the plan.
func (p Plan) Clone() Plan {
	out := make(Plan, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// Dataset is the complete, read-only input of one analysis run.
type Dataset struct {
	Name          string      `json:"name" yaml:"name"`
	Products      []Product   `json:"products" yaml:"products"`
	Locations     []Location  `json:"locations" yaml:"locations"`
	Scenarios     []Scenario  `json:"scenarios" yaml:"scenarios"`
	EmissionsCost float64     `json:"emissions_cost" yaml:"emissions_cost"`
	Demand        DemandTable `json:"demand" yaml:"demand"`
}

// Cells returns every (product, location) pair in dataset order.
func (d *Dataset) Cells() []Cell {
	cells := make([]Cell, 0, len(d.Products)*len(d.Locations))
	for _, p := range d.Products {
		for _, l := range d.Locations {
			cells = append(cells, Cell{Product: p.ID, Location: l.ID})
		}
	}
	return cells
}

// DemandFor returns the demand of a cell under a scenario.
func (d *Dataset) DemandFor(c Cell, scenario string) (float64, bool) {
	byLocation, ok := d.Demand[c.Product]
	if !ok {
		return 0, false
	}
	byScenario, ok := byLocation[c.Location]
	if !ok {
		return 0, false
	}
	v, ok := byScenario[scenario]
	return v, ok
}

// AverageDemand is the probability-weighted expectation of demand per cell.
func (d *Dataset) AverageDemand() map[Cell]float64 {
	avg := make(map[Cell]float64, len(d.Products)*len(d.Locations))
	for _, c := range d.Cells() {
		var sum float64
		for _, s := range d.Scenarios {
			v, _ := d.DemandFor(c, s.ID)
			sum += s.Probability * v
		}
		avg[c] = sum
	}
	return avg
}

// Product looks up a product by id.
func (d *Dataset) Product(id string) (Product, bool) {
	for _, p := range d.Products {
		if p.ID == id {
			return p, true
		}
	}
	return Product{}, false
}

// Location looks up a location by id.
func (d *Dataset) Location(id string) (Location, bool) {
	for _, l := range d.Locations {
		if l.ID == id {
			return l, true
		}
	}
	return Location{}, false
}

// Scenario looks up a scenario by id.
func (d *Dataset) Scenario(id string) (Scenario, bool) {
	for _, s := range d.Scenarios {
		if s.ID == id {
			return s, true
		}
	}
	return Scenario{}, false
}

// Economics are the per-unit coefficients of one cell.
type Economics struct {
	Price        float64
	Cost         float64
	WastePenalty float64
	// Emissions is the emissions charge per ordered unit: weight times location factor.
	Emissions float64
}

// UnitOrderCost is what one ordered unit costs before it sells or spoils.
func (e Economics) UnitOrderCost() float64 {
	return e.Cost + e.Emissions
}

// Profit is the realized profit of ordering `order` units when `demand` shows up.
// Sales and waste use literal min/max.
func (e Economics) Profit(order, demand float64) float64 {
	sold := min(order, demand)
	wasted := max(0, order-demand)
	return e.Price*sold - e.UnitOrderCost()*order - e.WastePenalty*wasted
}

// EconomicsFor resolves the coefficients of a cell. Unknown ids yield zero values.
func (d *Dataset) EconomicsFor(c Cell) Economics {
	p, _ := d.Product(c.Product)
	l, _ := d.Location(c.Location)
	return Economics{
		Price:        p.Price,
		Cost:         p.Cost,
		WastePenalty: p.WastePenalty,
		Emissions:    d.EmissionsCost * l.EmissionsFactor,
	}
}
