package persistence

import (
	"context"

	"github.com/backoffice/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormCapabilityDetector reports whether the ledger tables physically
// exist. The check runs against the live connection on every call and
// is never cached: a deployment can gain the tables through a migration
// while the process is running, and the very next operation must see
// them.
type GormCapabilityDetector struct {
	db *gorm.DB
}

// NewGormCapabilityDetector creates a new GormCapabilityDetector
func NewGormCapabilityDetector(db *gorm.DB) *GormCapabilityDetector {
	return &GormCapabilityDetector{db: db}
}

// FifoEnabled returns true when both ledger tables exist
func (d *GormCapabilityDetector) FifoEnabled(ctx context.Context) bool {
	migrator := d.db.WithContext(ctx).Migrator()
	return migrator.HasTable(&ledger.StockLayer{}) &&
		migrator.HasTable(&ledger.LayerAllocation{})
}

// Ensure GormCapabilityDetector implements CapabilityDetector
var _ ledger.CapabilityDetector = (*GormCapabilityDetector)(nil)
