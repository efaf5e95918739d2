package ledger

import (
	"time"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/shopspring/decimal"
)

// CreateLayerRequest describes a new stock layer to register.
type CreateLayerRequest struct {
	ProductID     int64
	VariantID     *int64
	LotID         *int64
	SourceTable   string
	SourceID      *int64
	SourceItemID  *int64
	LayerDate     time.Time // zero value defaults to today
	UnitCost      decimal.Decimal
	UnitSalePrice *decimal.Decimal
	Qty           decimal.Decimal
}

func (r CreateLayerRequest) spec() ledger.LayerSpec {
	return ledger.LayerSpec{
		Key:   ledger.KeyFor(r.ProductID, r.VariantID),
		LotID: r.LotID,
		Source: ledger.SourceRef{
			Table:  r.SourceTable,
			ID:     r.SourceID,
			ItemID: r.SourceItemID,
		},
		LayerDate:     r.LayerDate,
		UnitCost:      r.UnitCost,
		UnitSalePrice: r.UnitSalePrice,
		Qty:           r.Qty,
	}
}

// LayerResponse is the read model of one stock layer.
type LayerResponse struct {
	ID            int64            `json:"id"`
	ProductID     int64            `json:"product_id"`
	VariantID     *int64           `json:"variant_id,omitempty"`
	LotID         *int64           `json:"lot_id,omitempty"`
	SourceTable   string           `json:"source_table"`
	SourceID      *int64           `json:"source_id,omitempty"`
	SourceItemID  *int64           `json:"source_item_id,omitempty"`
	LayerDate     string           `json:"layer_date"`
	UnitCost      decimal.Decimal  `json:"unit_cost"`
	UnitSalePrice *decimal.Decimal `json:"unit_sale_price,omitempty"`
	OriginalQty   decimal.Decimal  `json:"original_qty"`
	RemainingQty  decimal.Decimal  `json:"remaining_qty"`
	Cancelled     bool             `json:"cancelled"`
}

func toLayerResponse(l *ledger.StockLayer) *LayerResponse {
	return &LayerResponse{
		ID:            l.ID,
		ProductID:     l.ProductID,
		VariantID:     l.VariantID,
		LotID:         l.LotID,
		SourceTable:   l.SourceTable,
		SourceID:      l.SourceID,
		SourceItemID:  l.SourceItemID,
		LayerDate:     l.LayerDate.Format("2006-01-02"),
		UnitCost:      l.UnitCost,
		UnitSalePrice: l.UnitSalePrice,
		OriginalQty:   l.OriginalQty,
		RemainingQty:  l.RemainingQty,
		Cancelled:     l.Cancelled,
	}
}

// ConsumeRequest describes a consumption demand.
type ConsumeRequest struct {
	ProductID    int64
	VariantID    *int64
	Quantity     decimal.Decimal
	TargetTable  string
	TargetItemID int64
	LotID        *int64
}

func (r ConsumeRequest) demand() ledger.Demand {
	return ledger.Demand{
		Key:      ledger.KeyFor(r.ProductID, r.VariantID),
		Quantity: r.Quantity,
		Target:   ledger.TargetRef{Table: r.TargetTable, ItemID: r.TargetItemID},
		LotID:    r.LotID,
	}
}

// ConsumptionResult summarizes a successful consumption, or carries the
// Disabled marker when the ledger tables are not present in this
// deployment and the caller must fall back to legacy costing.
type ConsumptionResult struct {
	Disabled        bool            `json:"fifo_disabled,omitempty"`
	TotalQuantity   decimal.Decimal `json:"total_quantity"`
	AverageUnitCost decimal.Decimal `json:"average_unit_cost"`
	// LotID is set only when exactly one layer was drawn from; blended
	// consumptions have no unambiguous lot attribution.
	LotID      *int64 `json:"lot_id,omitempty"`
	LayersUsed int    `json:"layers_used"`
}

// RestoreResult summarizes a reversal.
type RestoreResult struct {
	RestoredQty        decimal.Decimal `json:"restored_qty"`
	AllocationsRemoved int             `json:"allocations_removed"`
}

// LotMutationResult reports how many layers a lot lifecycle operation
// touched, or that the ledger is disabled in this deployment.
type LotMutationResult struct {
	Disabled bool  `json:"fifo_disabled,omitempty"`
	Affected int64 `json:"affected"`
}

// ReplaceLotItem is one line of a lot's regenerated layer set. Items with
// invalid product id, variant id, cost or quantity are skipped, not fatal.
type ReplaceLotItem struct {
	ProductID     int64
	VariantID     *int64
	SourceItemID  *int64
	UnitCost      decimal.Decimal
	UnitSalePrice *decimal.Decimal
	Qty           decimal.Decimal
}

// ReplaceLotLayersRequest regenerates all layers of one lot from scratch.
type ReplaceLotLayersRequest struct {
	LotID       int64
	SourceTable string
	LayerDate   time.Time
	Items       []ReplaceLotItem
}

// ReplaceLotResult reports the outcome of a lot layer replacement.
type ReplaceLotResult struct {
	Disabled bool `json:"fifo_disabled,omitempty"`
	Deleted  int64 `json:"deleted"`
	Created  int  `json:"created"`
	Skipped  int  `json:"skipped"`
}

// ValuationResponse is the inventory-value summary of one bucket.
type ValuationResponse struct {
	ProductID     int64           `json:"product_id"`
	VariantID     *int64          `json:"variant_id,omitempty"`
	RemainingQty  decimal.Decimal `json:"remaining_qty"`
	InventoryCost decimal.Decimal `json:"inventory_cost"`
	LayerCount    int64           `json:"layer_count"`
}
