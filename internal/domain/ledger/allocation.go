package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// LayerAllocation records a single act of consuming a given layer by a
// given target line. Allocations are owned by the layer they reference
// and are never partially modified: a correction is a reversal followed
// by a fresh consumption. Reversal deletes the row rather than marking it
// void, so the rows currently persisted are exactly the active ones.
type LayerAllocation struct {
	ID           int64 `gorm:"primaryKey"`
	LayerID      int64
	TargetTable  string
	TargetItemID int64
	Quantity     decimal.Decimal
	CreatedAt    time.Time
}

// TableName returns the physical table name.
func (LayerAllocation) TableName() string {
	return "stock_layer_allocations"
}

// Target returns the consuming line reference.
func (a *LayerAllocation) Target() TargetRef {
	return TargetRef{Table: a.TargetTable, ItemID: a.TargetItemID}
}
