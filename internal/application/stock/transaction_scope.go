package stock

import (
	"context"

	"github.com/backoffice/backend/internal/domain/stock"
)

// TransactionScope provides transactional access to the stock counters.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repo stock.Repository) error) error
}

// NoOpTransactionScope runs the function directly against one repository
// without a real transaction. Useful for tests.
type NoOpTransactionScope struct {
	repo stock.Repository
}

// NewNoOpTransactionScope creates a NoOpTransactionScope.
func NewNoOpTransactionScope(repo stock.Repository) *NoOpTransactionScope {
	return &NoOpTransactionScope{repo: repo}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repo stock.Repository) error) error {
	return fn(s.repo)
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
