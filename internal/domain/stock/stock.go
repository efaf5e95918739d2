// Package stock holds the denormalized running-quantity records kept in
// sync next to the FIFO ledger. These counters carry no cost information
// and no ordering requirement; they exist so list screens and the
// non-FIFO degradation path can read a current quantity without walking
// layers.
package stock

import (
	"time"

	"github.com/backoffice/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// ProductStock is the running quantity for a product.
type ProductStock struct {
	ProductID int64 `gorm:"primaryKey"`
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// TableName returns the physical table name.
func (ProductStock) TableName() string {
	return "product_stocks"
}

// VariantStock is the running quantity for a product variant.
type VariantStock struct {
	VariantID int64 `gorm:"primaryKey"`
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// TableName returns the physical table name.
func (VariantStock) TableName() string {
	return "variant_stocks"
}

// DeltaSet batches signed quantity deltas per product and per variant.
// Negative resulting quantities are allowed: they are a business signal,
// not an engine-level error.
type DeltaSet struct {
	Products map[int64]decimal.Decimal
	Variants map[int64]decimal.Decimal
}

// Validate checks identifiers; zero deltas are permitted and applied as
// no-ops so callers can build the map mechanically.
func (d *DeltaSet) Validate() error {
	if len(d.Products) == 0 && len(d.Variants) == 0 {
		return shared.NewDomainError("INVALID_INPUT", "At least one delta is required")
	}
	for id := range d.Products {
		if id <= 0 {
			return shared.NewDomainError("INVALID_INPUT", "Product id must be a positive integer")
		}
	}
	for id := range d.Variants {
		if id <= 0 {
			return shared.NewDomainError("INVALID_INPUT", "Variant id must be a positive integer")
		}
	}
	return nil
}
