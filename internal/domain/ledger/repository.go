package ledger

import (
	"context"

	"github.com/shopspring/decimal"
)

// LayerRepository is the durable store of stock layers.
//
// Implementations run inside the caller's ambient transaction: every
// method operates on whatever transaction handle the repository was
// constructed with, and none of them commit or roll back.
type LayerRepository interface {
	// Create inserts one layer row.
	Create(ctx context.Context, layer *StockLayer) error

	// FindByID fetches a single layer.
	FindByID(ctx context.Context, id int64) (*StockLayer, error)

	// FindCandidatesForUpdate selects the layers eligible to satisfy a
	// demand for the given bucket, optionally constrained to one lot,
	// ordered by (layer_date, id) ascending, and acquires exclusive row
	// locks on exactly that set for the duration of the enclosing
	// transaction. The lock serializes concurrent consumption against
	// the same bucket; it is the core oversell-prevention mechanism.
	FindCandidatesForUpdate(ctx context.Context, key ProductKey, lotID *int64) ([]*StockLayer, error)

	// LockByLot acquires exclusive row locks on every layer of the lot
	// for the duration of the enclosing transaction. Taken before a
	// guard count so a concurrent consumption, which holds locks on the
	// layers it draws from, cannot commit a fresh allocation between the
	// count and the mutation the guard protects.
	LockByLot(ctx context.Context, lotID int64) error

	// LockBySource is LockByLot scoped by provenance.
	LockBySource(ctx context.Context, source SourceScope) error

	// ApplyDraw decrements a layer's remaining quantity by qty.
	ApplyDraw(ctx context.Context, layerID int64, qty decimal.Decimal) error

	// Credit increments a layer's remaining quantity by qty.
	Credit(ctx context.Context, layerID int64, qty decimal.Decimal) error

	// DeleteBySource hard-deletes every layer created by one document.
	// Deliberately unguarded; callers run the consumption guard first
	// when deletion safety matters in their call path.
	DeleteBySource(ctx context.Context, source SourceScope) (int64, error)

	// DeleteByLot hard-deletes every layer belonging to one lot.
	DeleteByLot(ctx context.Context, lotID int64) (int64, error)

	// SetCancelledByLot toggles the cancelled state for all layers of a
	// lot. Cancelling zeroes remaining_qty; restoring resets it to
	// original_qty.
	SetCancelledByLot(ctx context.Context, lotID int64, cancelled bool) (int64, error)

	// SetCancelledBySource is SetCancelledByLot scoped by provenance.
	SetCancelledBySource(ctx context.Context, source SourceScope, cancelled bool) (int64, error)

	// ListByKey returns all layers of a bucket in FIFO order.
	ListByKey(ctx context.Context, key ProductKey) ([]*StockLayer, error)

	// ListByLot returns all layers of one lot in FIFO order.
	ListByLot(ctx context.Context, lotID int64) ([]*StockLayer, error)

	// ValuationByKey sums remaining quantity and remaining value for a
	// bucket.
	ValuationByKey(ctx context.Context, key ProductKey) (ValuationSummary, error)
}

// AllocationRepository is the durable store of consumption records.
type AllocationRepository interface {
	// Create inserts one allocation row.
	Create(ctx context.Context, alloc *LayerAllocation) error

	// FindByTargetForUpdate selects and locks all allocations with
	// positive quantity for the exact target.
	FindByTargetForUpdate(ctx context.Context, target TargetRef) ([]*LayerAllocation, error)

	// Delete removes one allocation row.
	Delete(ctx context.Context, id int64) error

	// CountActiveForLot counts allocations with positive quantity that
	// reference a layer belonging to the lot.
	CountActiveForLot(ctx context.Context, lotID int64) (int64, error)

	// CountActiveForSource is CountActiveForLot scoped by provenance.
	CountActiveForSource(ctx context.Context, source SourceScope) (int64, error)
}

// CapabilityDetector reports whether the ledger's physical structures
// exist in the current deployment. Implementations must check within the
// active connection on every call instead of caching process-wide: the
// tables may be introduced by a migration while the process is running.
type CapabilityDetector interface {
	FifoEnabled(ctx context.Context) bool
}

// ValuationSummary is the denormalized inventory-value view of a bucket.
type ValuationSummary struct {
	Key           ProductKey
	RemainingQty  decimal.Decimal
	InventoryCost decimal.Decimal
	LayerCount    int64
}
