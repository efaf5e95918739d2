package persistence

import (
	"context"

	appledger "github.com/backoffice/backend/internal/application/ledger"
	"github.com/backoffice/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormLedgerTransactionScope implements the ledger TransactionScope using
// GORM transactions. It provides atomic execution of multiple repository
// operations.
type GormLedgerTransactionScope struct {
	db *gorm.DB
}

// NewGormLedgerTransactionScope creates a new GormLedgerTransactionScope.
func NewGormLedgerTransactionScope(db *gorm.DB) *GormLedgerTransactionScope {
	return &GormLedgerTransactionScope{db: db}
}

// Execute runs the given function within a database transaction.
// If the function returns an error, the transaction is rolled back.
// If the function succeeds, the transaction is committed.
func (s *GormLedgerTransactionScope) Execute(ctx context.Context, fn func(repos appledger.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		repos := &gormLedgerRepositories{tx: tx}
		return fn(repos)
	})
}

// gormLedgerRepositories provides access to the ledger repositories within a transaction.
type gormLedgerRepositories struct {
	tx *gorm.DB
}

// Layers returns the layer repository scoped to the current transaction.
func (r *gormLedgerRepositories) Layers() ledger.LayerRepository {
	return NewGormLayerRepository(r.tx)
}

// Allocations returns the allocation repository scoped to the current transaction.
func (r *gormLedgerRepositories) Allocations() ledger.AllocationRepository {
	return NewGormAllocationRepository(r.tx)
}

// Capability returns the capability detector bound to the current transaction.
func (r *gormLedgerRepositories) Capability() ledger.CapabilityDetector {
	return NewGormCapabilityDetector(r.tx)
}

// Ensure GormLedgerTransactionScope implements TransactionScope
var _ appledger.TransactionScope = (*GormLedgerTransactionScope)(nil)

// Ensure gormLedgerRepositories implements TransactionalRepositories
var _ appledger.TransactionalRepositories = (*gormLedgerRepositories)(nil)
