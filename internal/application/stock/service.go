package stock

import (
	"context"
	"sort"
	"time"

	"github.com/backoffice/backend/internal/domain/stock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// StockService applies signed quantity deltas to the denormalized
// product and variant counters. The counters are a convenience read
// model next to the FIFO ledger; negative resulting quantities are
// allowed and surface as a business signal, never as an engine error.
type StockService struct {
	scope  TransactionScope
	logger *zap.Logger
}

// NewStockService creates a new StockService.
func NewStockService(scope TransactionScope, logger *zap.Logger) *StockService {
	return &StockService{
		scope:  scope,
		logger: logger,
	}
}

// ApplyDeltas applies one delta set atomically.
func (s *StockService) ApplyDeltas(ctx context.Context, deltas stock.DeltaSet) error {
	return s.scope.Execute(ctx, func(repo stock.Repository) error {
		return s.ApplyDeltasInTx(ctx, repo, deltas)
	})
}

// ApplyDeltasInTx applies the deltas inside the caller's transaction.
// Every touched row is locked before mutation; rows are locked in
// ascending id order, products before variants, so two concurrent delta
// sets over overlapping keys cannot deadlock. A missing counter row is
// materialized at zero before the locking read, so first deltas to the
// same key serialize on the row instead of racing their inserts.
func (s *StockService) ApplyDeltasInTx(ctx context.Context, repo stock.Repository, deltas stock.DeltaSet) error {
	if err := deltas.Validate(); err != nil {
		return err
	}

	now := time.Now()

	for _, productID := range sortedKeys(deltas.Products) {
		delta := deltas.Products[productID]
		if err := repo.EnsureProduct(ctx, productID); err != nil {
			return err
		}
		row, err := repo.ProductForUpdate(ctx, productID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &stock.ProductStock{ProductID: productID, Quantity: decimal.Zero}
		}
		row.Quantity = row.Quantity.Add(delta)
		row.UpdatedAt = now
		if err := repo.SaveProduct(ctx, row); err != nil {
			return err
		}
		if row.Quantity.IsNegative() {
			s.logger.Warn("product stock went negative",
				zap.Int64("product_id", productID),
				zap.String("quantity", row.Quantity.String()),
			)
		}
	}

	for _, variantID := range sortedKeys(deltas.Variants) {
		delta := deltas.Variants[variantID]
		if err := repo.EnsureVariant(ctx, variantID); err != nil {
			return err
		}
		row, err := repo.VariantForUpdate(ctx, variantID)
		if err != nil {
			return err
		}
		if row == nil {
			row = &stock.VariantStock{VariantID: variantID, Quantity: decimal.Zero}
		}
		row.Quantity = row.Quantity.Add(delta)
		row.UpdatedAt = now
		if err := repo.SaveVariant(ctx, row); err != nil {
			return err
		}
		if row.Quantity.IsNegative() {
			s.logger.Warn("variant stock went negative",
				zap.Int64("variant_id", variantID),
				zap.String("quantity", row.Quantity.String()),
			)
		}
	}

	s.logger.Debug("stock deltas applied",
		zap.Int("products", len(deltas.Products)),
		zap.Int("variants", len(deltas.Variants)),
	)
	return nil
}

// ProductQuantity returns the current counter for a product, zero when
// no row exists yet.
func (s *StockService) ProductQuantity(ctx context.Context, productID int64) (decimal.Decimal, error) {
	qty := decimal.Zero
	err := s.scope.Execute(ctx, func(repo stock.Repository) error {
		row, err := repo.FindProduct(ctx, productID)
		if err != nil {
			return err
		}
		if row != nil {
			qty = row.Quantity
		}
		return nil
	})
	return qty, err
}

// VariantQuantity returns the current counter for a variant, zero when
// no row exists yet.
func (s *StockService) VariantQuantity(ctx context.Context, variantID int64) (decimal.Decimal, error) {
	qty := decimal.Zero
	err := s.scope.Execute(ctx, func(repo stock.Repository) error {
		row, err := repo.FindVariant(ctx, variantID)
		if err != nil {
			return err
		}
		if row != nil {
			qty = row.Quantity
		}
		return nil
	})
	return qty, err
}

func sortedKeys(m map[int64]decimal.Decimal) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
