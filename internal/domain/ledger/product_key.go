package ledger

import (
	"fmt"

	"github.com/backoffice/backend/internal/domain/shared"
)

// ProductKey identifies the stock bucket a layer belongs to. A key targets
// either the bare product or one specific variant of it; "no variant" is
// its own equality class, never a wildcard that matches variant layers.
type ProductKey struct {
	productID  int64
	variantID  int64
	hasVariant bool
}

// NewProductKey creates a key for product-level stock (no variant).
func NewProductKey(productID int64) ProductKey {
	return ProductKey{productID: productID}
}

// NewVariantKey creates a key for one specific product variant.
func NewVariantKey(productID, variantID int64) ProductKey {
	return ProductKey{productID: productID, variantID: variantID, hasVariant: true}
}

// KeyFor builds a ProductKey from a product id and an optional variant id.
func KeyFor(productID int64, variantID *int64) ProductKey {
	if variantID != nil {
		return NewVariantKey(productID, *variantID)
	}
	return NewProductKey(productID)
}

// ProductID returns the product identifier.
func (k ProductKey) ProductID() int64 {
	return k.productID
}

// Variant returns the variant identifier and whether the key has one.
func (k ProductKey) Variant() (int64, bool) {
	return k.variantID, k.hasVariant
}

// VariantID returns the variant id as a nullable value for persistence.
func (k ProductKey) VariantID() *int64 {
	if !k.hasVariant {
		return nil
	}
	v := k.variantID
	return &v
}

// Equal reports whether two keys address the same stock bucket.
func (k ProductKey) Equal(other ProductKey) bool {
	return k == other
}

// Validate checks that the key's identifiers are positive.
func (k ProductKey) Validate() error {
	if k.productID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Product id must be a positive integer")
	}
	if k.hasVariant && k.variantID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Variant id must be a positive integer")
	}
	return nil
}

// String renders the key for logs.
func (k ProductKey) String() string {
	if k.hasVariant {
		return fmt.Sprintf("product:%d/variant:%d", k.productID, k.variantID)
	}
	return fmt.Sprintf("product:%d", k.productID)
}
