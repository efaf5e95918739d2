package persistence

import (
	"context"
	"errors"
	"time"

	appstock "github.com/backoffice/backend/internal/application/stock"
	"github.com/backoffice/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormStockRepository implements the stock counter Repository using GORM
type GormStockRepository struct {
	db *gorm.DB
}

// NewGormStockRepository creates a new GormStockRepository
func NewGormStockRepository(db *gorm.DB) *GormStockRepository {
	return &GormStockRepository{db: db}
}

// EnsureProduct inserts a zero-quantity product counter if none exists.
// ON CONFLICT DO NOTHING keeps concurrent first deltas to the same key
// from racing their inserts.
func (r *GormStockRepository) EnsureProduct(ctx context.Context, productID int64) error {
	row := &stock.ProductStock{
		ProductID: productID,
		Quantity:  decimal.Zero,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

// EnsureVariant inserts a zero-quantity variant counter if none exists
func (r *GormStockRepository) EnsureVariant(ctx context.Context, variantID int64) error {
	row := &stock.VariantStock{
		VariantID: variantID,
		Quantity:  decimal.Zero,
		UpdatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(row).Error
}

// ProductForUpdate fetches one product counter under an exclusive row lock
func (r *GormStockRepository) ProductForUpdate(ctx context.Context, productID int64) (*stock.ProductStock, error) {
	var row stock.ProductStock
	err := forUpdate(r.db.WithContext(ctx)).
		First(&row, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// VariantForUpdate fetches one variant counter under an exclusive row lock
func (r *GormStockRepository) VariantForUpdate(ctx context.Context, variantID int64) (*stock.VariantStock, error) {
	var row stock.VariantStock
	err := forUpdate(r.db.WithContext(ctx)).
		First(&row, "variant_id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// SaveProduct upserts one product counter
func (r *GormStockRepository) SaveProduct(ctx context.Context, s *stock.ProductStock) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// SaveVariant upserts one variant counter
func (r *GormStockRepository) SaveVariant(ctx context.Context, s *stock.VariantStock) error {
	return r.db.WithContext(ctx).Save(s).Error
}

// FindProduct fetches one product counter without locking
func (r *GormStockRepository) FindProduct(ctx context.Context, productID int64) (*stock.ProductStock, error) {
	var row stock.ProductStock
	err := r.db.WithContext(ctx).First(&row, "product_id = ?", productID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// FindVariant fetches one variant counter without locking
func (r *GormStockRepository) FindVariant(ctx context.Context, variantID int64) (*stock.VariantStock, error) {
	var row stock.VariantStock
	err := r.db.WithContext(ctx).First(&row, "variant_id = ?", variantID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &row, nil
}

// GormStockTransactionScope implements the stock TransactionScope using
// GORM transactions.
type GormStockTransactionScope struct {
	db *gorm.DB
}

// NewGormStockTransactionScope creates a new GormStockTransactionScope.
func NewGormStockTransactionScope(db *gorm.DB) *GormStockTransactionScope {
	return &GormStockTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
func (s *GormStockTransactionScope) Execute(ctx context.Context, fn func(repo stock.Repository) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewGormStockRepository(tx))
	})
}

// Ensure interface compliance
var _ stock.Repository = (*GormStockRepository)(nil)
var _ appstock.TransactionScope = (*GormStockTransactionScope)(nil)
