package persistence

import (
	"context"

	"github.com/backoffice/backend/internal/domain/ledger"
	"github.com/backoffice/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormAllocationRepository implements AllocationRepository using GORM
type GormAllocationRepository struct {
	db *gorm.DB
}

// NewGormAllocationRepository creates a new GormAllocationRepository
func NewGormAllocationRepository(db *gorm.DB) *GormAllocationRepository {
	return &GormAllocationRepository{db: db}
}

// Create inserts one allocation row
func (r *GormAllocationRepository) Create(ctx context.Context, alloc *ledger.LayerAllocation) error {
	return r.db.WithContext(ctx).Create(alloc).Error
}

// FindByTargetForUpdate selects and locks all active allocations of the
// exact target, oldest first, so a restore cannot race a concurrent
// restore of the same target.
func (r *GormAllocationRepository) FindByTargetForUpdate(ctx context.Context, target ledger.TargetRef) ([]*ledger.LayerAllocation, error) {
	var allocs []*ledger.LayerAllocation
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("target_table = ? AND target_item_id = ? AND quantity > 0", target.Table, target.ItemID).
		Order("id ASC").
		Find(&allocs).Error; err != nil {
		return nil, err
	}
	return allocs, nil
}

// Delete removes one allocation row
func (r *GormAllocationRepository) Delete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).Delete(&ledger.LayerAllocation{}, "id = ?", id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// CountActiveForLot counts active allocations referencing any layer of
// the lot
func (r *GormAllocationRepository) CountActiveForLot(ctx context.Context, lotID int64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ledger.LayerAllocation{}).
		Joins("JOIN stock_layers ON stock_layers.id = stock_layer_allocations.layer_id").
		Where("stock_layer_allocations.quantity > 0").
		Where("stock_layers.lot_id = ?", lotID).
		Count(&count).Error
	return count, err
}

// CountActiveForSource is CountActiveForLot scoped by provenance
func (r *GormAllocationRepository) CountActiveForSource(ctx context.Context, source ledger.SourceScope) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&ledger.LayerAllocation{}).
		Joins("JOIN stock_layers ON stock_layers.id = stock_layer_allocations.layer_id").
		Where("stock_layer_allocations.quantity > 0").
		Where("stock_layers.source_table = ? AND stock_layers.source_id = ?", source.Table, source.ID).
		Count(&count).Error
	return count, err
}

// Ensure GormAllocationRepository implements AllocationRepository
var _ ledger.AllocationRepository = (*GormAllocationRepository)(nil)
