package ledger

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// StockLayer is one discrete batch of inventory recorded at its own unit
// cost and original quantity. Layers are never merged: every purchasing
// event produces its own layer even when cost and date coincide, so cost
// traceability is exact.
//
// RemainingQty decreases only through allocation creation and increases
// only through allocation reversal or an explicit lot-level restore.
// Cancellation forces it to zero (and sets Cancelled) without deleting
// the row, preserving audit history.
type StockLayer struct {
	ID            int64 `gorm:"primaryKey"`
	ProductID     int64
	VariantID     *int64
	LotID         *int64
	SourceTable   string
	SourceID      *int64
	SourceItemID  *int64
	LayerDate     time.Time `gorm:"type:date"`
	UnitCost      decimal.Decimal
	UnitSalePrice *decimal.Decimal
	OriginalQty   decimal.Decimal
	RemainingQty  decimal.Decimal
	Cancelled     bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// TableName returns the physical table name.
func (StockLayer) TableName() string {
	return "stock_layers"
}

// LayerSpec describes a layer to be created.
type LayerSpec struct {
	Key           ProductKey
	LotID         *int64
	Source        SourceRef
	LayerDate     time.Time // zero value defaults to today
	UnitCost      decimal.Decimal
	UnitSalePrice *decimal.Decimal
	Qty           decimal.Decimal
}

// Validate checks the spec before any row is touched.
func (s *LayerSpec) Validate() error {
	if err := s.Key.Validate(); err != nil {
		return err
	}
	if err := s.Source.Validate(); err != nil {
		return err
	}
	if s.LotID != nil && *s.LotID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Lot id must be a positive integer")
	}
	if s.UnitCost.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Unit cost must be positive")
	}
	if s.UnitSalePrice != nil && s.UnitSalePrice.IsNegative() {
		return shared.NewDomainError("INVALID_INPUT", "Unit sale price cannot be negative")
	}
	if s.Qty.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_INPUT", "Quantity must be positive")
	}
	return nil
}

// NewStockLayer builds a layer from a validated spec. RemainingQty starts
// equal to OriginalQty.
func NewStockLayer(spec LayerSpec) (*StockLayer, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	layerDate := spec.LayerDate
	if layerDate.IsZero() {
		layerDate = truncateToDate(time.Now())
	} else {
		layerDate = truncateToDate(layerDate)
	}

	return &StockLayer{
		ProductID:     spec.Key.ProductID(),
		VariantID:     spec.Key.VariantID(),
		LotID:         spec.LotID,
		SourceTable:   spec.Source.Table,
		SourceID:      spec.Source.ID,
		SourceItemID:  spec.Source.ItemID,
		LayerDate:     layerDate,
		UnitCost:      spec.UnitCost,
		UnitSalePrice: spec.UnitSalePrice,
		OriginalQty:   spec.Qty,
		RemainingQty:  spec.Qty,
	}, nil
}

// Key returns the product/variant bucket this layer belongs to.
func (l *StockLayer) Key() ProductKey {
	return KeyFor(l.ProductID, l.VariantID)
}

// Usable reports whether the layer can satisfy demand. Layers with
// non-positive cost or quantity are treated as corrupt and skipped rather
// than failing the whole consumption.
func (l *StockLayer) Usable() bool {
	return !l.Cancelled &&
		l.RemainingQty.GreaterThan(decimal.Zero) &&
		l.UnitCost.GreaterThan(decimal.Zero)
}

// Draw takes up to qty from the layer and returns the quantity actually
// drawn (min of remaining and requested).
func (l *StockLayer) Draw(qty decimal.Decimal) decimal.Decimal {
	drawn := decimal.Min(l.RemainingQty, qty)
	l.RemainingQty = l.RemainingQty.Sub(drawn)
	return drawn
}

// Credit returns previously consumed quantity to the layer.
func (l *StockLayer) Credit(qty decimal.Decimal) {
	l.RemainingQty = l.RemainingQty.Add(qty)
}

// RemainingValue returns remaining_qty * unit_cost.
func (l *StockLayer) RemainingValue() decimal.Decimal {
	return l.RemainingQty.Mul(l.UnitCost)
}

func truncateToDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
