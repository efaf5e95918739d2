package stock

import "context"

// Repository is the durable store of the running-quantity records.
// Implementations operate on the caller's ambient transaction and never
// commit or roll back.
type Repository interface {
	// EnsureProduct inserts a zero-quantity product counter if none
	// exists, doing nothing otherwise. A locking read on an absent row
	// locks nothing, so concurrent first deltas to the same key must
	// materialize the row before locking it.
	EnsureProduct(ctx context.Context, productID int64) error

	// EnsureVariant inserts a zero-quantity variant counter if none
	// exists, doing nothing otherwise.
	EnsureVariant(ctx context.Context, variantID int64) error

	// ProductForUpdate fetches one product counter under an exclusive row
	// lock. Returns (nil, nil) when no row exists yet.
	ProductForUpdate(ctx context.Context, productID int64) (*ProductStock, error)

	// VariantForUpdate fetches one variant counter under an exclusive row
	// lock. Returns (nil, nil) when no row exists yet.
	VariantForUpdate(ctx context.Context, variantID int64) (*VariantStock, error)

	// SaveProduct upserts one product counter.
	SaveProduct(ctx context.Context, s *ProductStock) error

	// SaveVariant upserts one variant counter.
	SaveVariant(ctx context.Context, s *VariantStock) error

	// FindProduct fetches one product counter without locking. Returns
	// (nil, nil) when no row exists.
	FindProduct(ctx context.Context, productID int64) (*ProductStock, error)

	// FindVariant fetches one variant counter without locking. Returns
	// (nil, nil) when no row exists.
	FindVariant(ctx context.Context, variantID int64) (*VariantStock, error)
}
