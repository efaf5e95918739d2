package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormLayerRepository implements LayerRepository using GORM
type GormLayerRepository struct {
	db *gorm.DB
}

// NewGormLayerRepository creates a new GormLayerRepository
func NewGormLayerRepository(db *gorm.DB) *GormLayerRepository {
	return &GormLayerRepository{db: db}
}

// Create inserts one layer row
func (r *GormLayerRepository) Create(ctx context.Context, layer *ledger.StockLayer) error {
	return r.db.WithContext(ctx).Create(layer).Error
}

// FindByID finds a stock layer by its ID
func (r *GormLayerRepository) FindByID(ctx context.Context, id int64) (*ledger.StockLayer, error) {
	var layer ledger.StockLayer
	if err := r.db.WithContext(ctx).First(&layer, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return &layer, nil
}

// FindCandidatesForUpdate selects and locks the layers eligible to
// satisfy a demand, ordered oldest first. The SELECT FOR UPDATE over the
// full ordered candidate set is what serializes concurrent consumption
// against the same bucket.
func (r *GormLayerRepository) FindCandidatesForUpdate(ctx context.Context, key ledger.ProductKey, lotID *int64) ([]*ledger.StockLayer, error) {
	query := forUpdate(r.db.WithContext(ctx)).
		Where("product_id = ?", key.ProductID()).
		Where("cancelled = FALSE AND remaining_qty > 0 AND unit_cost > 0")

	// A product-level bucket only covers layers without a variant; the
	// absence of a variant is its own equality class.
	if variantID, ok := key.Variant(); ok {
		query = query.Where("variant_id = ?", variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}
	if lotID != nil {
		query = query.Where("lot_id = ?", *lotID)
	}

	var layers []*ledger.StockLayer
	if err := query.Order("layer_date ASC, id ASC").Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// LockByLot acquires exclusive row locks on every layer of the lot. A
// concurrent consumption must lock the same rows before it can
// allocate, so a guard count taken after this stays accurate for the
// rest of the transaction.
func (r *GormLayerRepository) LockByLot(ctx context.Context, lotID int64) error {
	var ids []int64
	return forUpdate(r.db.WithContext(ctx)).
		Model(&ledger.StockLayer{}).
		Where("lot_id = ?", lotID).
		Pluck("id", &ids).Error
}

// LockBySource is LockByLot scoped by provenance
func (r *GormLayerRepository) LockBySource(ctx context.Context, source ledger.SourceScope) error {
	var ids []int64
	return forUpdate(r.db.WithContext(ctx)).
		Model(&ledger.StockLayer{}).
		Where("source_table = ? AND source_id = ?", source.Table, source.ID).
		Pluck("id", &ids).Error
}

// ApplyDraw decrements a layer's remaining quantity
func (r *GormLayerRepository) ApplyDraw(ctx context.Context, layerID int64, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.StockLayer{}).
		Where("id = ?", layerID).
		Updates(map[string]interface{}{
			"remaining_qty": gorm.Expr("remaining_qty - ?", qty),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Credit increments a layer's remaining quantity
func (r *GormLayerRepository) Credit(ctx context.Context, layerID int64, qty decimal.Decimal) error {
	result := r.db.WithContext(ctx).
		Model(&ledger.StockLayer{}).
		Where("id = ?", layerID).
		Updates(map[string]interface{}{
			"remaining_qty": gorm.Expr("remaining_qty + ?", qty),
			"updated_at":    time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// DeleteBySource hard-deletes every layer created by one document
func (r *GormLayerRepository) DeleteBySource(ctx context.Context, source ledger.SourceScope) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("source_table = ? AND source_id = ?", source.Table, source.ID).
		Delete(&ledger.StockLayer{})
	return result.RowsAffected, result.Error
}

// DeleteByLot hard-deletes every layer belonging to one lot
func (r *GormLayerRepository) DeleteByLot(ctx context.Context, lotID int64) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Delete(&ledger.StockLayer{})
	return result.RowsAffected, result.Error
}

// SetCancelledByLot toggles the cancelled state for all layers of a lot.
// Cancelling zeroes the remaining quantity while keeping the rows for
// audit; restoring resets it to the original quantity.
func (r *GormLayerRepository) SetCancelledByLot(ctx context.Context, lotID int64, cancelled bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ledger.StockLayer{}).
		Where("lot_id = ?", lotID).
		Updates(cancellationValues(cancelled))
	return result.RowsAffected, result.Error
}

// SetCancelledBySource is SetCancelledByLot scoped by provenance
func (r *GormLayerRepository) SetCancelledBySource(ctx context.Context, source ledger.SourceScope, cancelled bool) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&ledger.StockLayer{}).
		Where("source_table = ? AND source_id = ?", source.Table, source.ID).
		Updates(cancellationValues(cancelled))
	return result.RowsAffected, result.Error
}

func cancellationValues(cancelled bool) map[string]interface{} {
	values := map[string]interface{}{
		"cancelled":  cancelled,
		"updated_at": time.Now(),
	}
	if cancelled {
		values["remaining_qty"] = decimal.Zero
	} else {
		values["remaining_qty"] = gorm.Expr("original_qty")
	}
	return values
}

// ListByKey returns all layers of a bucket in FIFO order
func (r *GormLayerRepository) ListByKey(ctx context.Context, key ledger.ProductKey) ([]*ledger.StockLayer, error) {
	query := r.db.WithContext(ctx).Where("product_id = ?", key.ProductID())
	if variantID, ok := key.Variant(); ok {
		query = query.Where("variant_id = ?", variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	var layers []*ledger.StockLayer
	if err := query.Order("layer_date ASC, id ASC").Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// ListByLot returns all layers of one lot in FIFO order
func (r *GormLayerRepository) ListByLot(ctx context.Context, lotID int64) ([]*ledger.StockLayer, error) {
	var layers []*ledger.StockLayer
	if err := r.db.WithContext(ctx).
		Where("lot_id = ?", lotID).
		Order("layer_date ASC, id ASC").
		Find(&layers).Error; err != nil {
		return nil, err
	}
	return layers, nil
}

// ValuationByKey sums remaining quantity and remaining value over the
// usable layers of a bucket
func (r *GormLayerRepository) ValuationByKey(ctx context.Context, key ledger.ProductKey) (ledger.ValuationSummary, error) {
	query := r.db.WithContext(ctx).
		Model(&ledger.StockLayer{}).
		Where("product_id = ?", key.ProductID()).
		Where("cancelled = FALSE AND remaining_qty > 0")
	if variantID, ok := key.Variant(); ok {
		query = query.Where("variant_id = ?", variantID)
	} else {
		query = query.Where("variant_id IS NULL")
	}

	var row struct {
		RemainingQty  decimal.Decimal
		InventoryCost decimal.Decimal
		LayerCount    int64
	}
	if err := query.Select(
		"COALESCE(SUM(remaining_qty), 0) AS remaining_qty, " +
			"COALESCE(SUM(remaining_qty * unit_cost), 0) AS inventory_cost, " +
			"COUNT(*) AS layer_count",
	).Scan(&row).Error; err != nil {
		return ledger.ValuationSummary{}, err
	}

	return ledger.ValuationSummary{
		Key:           key,
		RemainingQty:  row.RemainingQty,
		InventoryCost: row.InventoryCost,
		LayerCount:    row.LayerCount,
	}, nil
}

// Ensure GormLayerRepository implements LayerRepository
var _ ledger.LayerRepository = (*GormLayerRepository)(nil)
