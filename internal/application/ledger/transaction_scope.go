package ledger

import (
	"context"

	"github.com/backoffice/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger stores.
// The ledger never opens or commits transactions on its own: every public
// operation runs inside a scope supplied by the caller, and in-process
// callers compose the *InTx service methods inside their own Execute to
// share one transaction with their surrounding document write.
type TransactionScope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides access to the ledger repositories
// within a transaction. All repositories returned share the same
// underlying database transaction.
type TransactionalRepositories interface {
	// Layers returns the layer repository scoped to the current transaction.
	Layers() ledger.LayerRepository
	// Allocations returns the allocation repository scoped to the current transaction.
	Allocations() ledger.AllocationRepository
	// Capability returns the detector bound to the current transaction.
	// It is consulted on every entry, never cached, so the ledger keeps
	// working correctly across a rolling schema migration.
	Capability() ledger.CapabilityDetector
}

// NoOpTransactionScope is a transaction scope that doesn't actually use
// transactions. Useful for tests or callers that manage atomicity
// themselves.
type NoOpTransactionScope struct {
	layers      ledger.LayerRepository
	allocations ledger.AllocationRepository
	capability  ledger.CapabilityDetector
}

// NewNoOpTransactionScope creates a NoOpTransactionScope over the given
// repositories.
func NewNoOpTransactionScope(
	layers ledger.LayerRepository,
	allocations ledger.AllocationRepository,
	capability ledger.CapabilityDetector,
) *NoOpTransactionScope {
	return &NoOpTransactionScope{
		layers:      layers,
		allocations: allocations,
		capability:  capability,
	}
}

// Execute runs the function without a real transaction.
func (s *NoOpTransactionScope) Execute(_ context.Context, fn func(repos TransactionalRepositories) error) error {
	return fn(s)
}

// Layers returns the layer repository.
func (s *NoOpTransactionScope) Layers() ledger.LayerRepository {
	return s.layers
}

// Allocations returns the allocation repository.
func (s *NoOpTransactionScope) Allocations() ledger.AllocationRepository {
	return s.allocations
}

// Capability returns the capability detector.
func (s *NoOpTransactionScope) Capability() ledger.CapabilityDetector {
	return s.capability
}

var _ TransactionScope = (*NoOpTransactionScope)(nil)
var _ TransactionalRepositories = (*NoOpTransactionScope)(nil)
