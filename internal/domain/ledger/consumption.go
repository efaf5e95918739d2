package ledger

import (
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Demand describes a consumption request: how much of which product
// bucket is needed, and for which target line.
type Demand struct {
	Key      ProductKey
	Quantity decimal.Decimal
	Target   TargetRef
	// LotID, when set, constrains consumption to layers of one specific
	// purchasing event instead of letting FIFO pick.
	LotID *int64
}

// Validate checks the demand before any row is touched.
func (d *Demand) Validate() error {
	if err := d.Key.Validate(); err != nil {
		return err
	}
	if d.Quantity.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	if err := d.Target.Validate(); err != nil {
		return err
	}
	if d.LotID != nil && *d.LotID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Lot id must be a positive integer")
	}
	return nil
}

// LayerDraw is one layer's contribution to a consumption plan.
type LayerDraw struct {
	Layer    *StockLayer
	Quantity decimal.Decimal
}

// Cost returns quantity * unit cost for this draw.
func (d LayerDraw) Cost() decimal.Decimal {
	return d.Quantity.Mul(d.Layer.UnitCost)
}

// ConsumptionPlan is the outcome of a greedy FIFO walk over candidate
// layers. The plan does not mutate layers; applying it (allocation insert
// plus paired layer decrement) is the repository's job.
type ConsumptionPlan struct {
	Draws         []LayerDraw
	TotalQuantity decimal.Decimal
	TotalCost     decimal.Decimal
}

// AverageUnitCost returns the weighted average unit cost of the consumed
// quantity, rounded to cent precision.
func (p *ConsumptionPlan) AverageUnitCost() decimal.Decimal {
	if p.TotalQuantity.IsZero() {
		return decimal.Zero
	}
	return p.TotalCost.Div(p.TotalQuantity).Round(2)
}

// LayersUsed returns how many distinct layers the plan draws from.
func (p *ConsumptionPlan) LayersUsed() int {
	return len(p.Draws)
}

// SingleLotID returns the lot id of the layer drawn from if and only if
// exactly one layer was used. When several layers are blended the
// attribution is ambiguous and nil is returned.
func (p *ConsumptionPlan) SingleLotID() *int64 {
	if len(p.Draws) != 1 {
		return nil
	}
	return p.Draws[0].Layer.LotID
}

// PlanConsumption walks candidates in the order given and satisfies
// quantity greedily, taking min(remaining, still needed) from each.
// Callers must supply candidates in (layer_date, id) ascending order;
// that ordering is what makes the ledger genuinely FIFO. Unusable layers
// (non-positive cost or quantity, cancelled) are skipped rather than
// failing the whole operation. Returns ErrInsufficientStock if the
// demand cannot be fully satisfied; in that case no plan is returned and
// nothing must be persisted.
func PlanConsumption(candidates []*StockLayer, quantity decimal.Decimal) (*ConsumptionPlan, error) {
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}

	plan := &ConsumptionPlan{
		TotalQuantity: decimal.Zero,
		TotalCost:     decimal.Zero,
	}

	needed := quantity
	for _, layer := range candidates {
		if needed.IsZero() {
			break
		}
		if !layer.Usable() {
			continue
		}

		drawn := decimal.Min(layer.RemainingQty, needed)
		plan.Draws = append(plan.Draws, LayerDraw{Layer: layer, Quantity: drawn})
		plan.TotalQuantity = plan.TotalQuantity.Add(drawn)
		plan.TotalCost = plan.TotalCost.Add(drawn.Mul(layer.UnitCost))
		needed = needed.Sub(drawn)
	}

	if needed.GreaterThan(decimal.Zero) {
		return nil, ErrInsufficientStock
	}

	return plan, nil
}
