package ledger

import (
	"fmt"

	"github.com/backoffice/backend/internal/domain/shared"
)

// SourceRef records why a layer exists: the purchasing event, adjustment
// or other document row that registered the stock.
type SourceRef struct {
	Table  string
	ID     *int64
	ItemID *int64
}

// Validate checks the provenance reference.
func (s SourceRef) Validate() error {
	if s.Table == "" {
		return shared.NewDomainError("INVALID_INPUT", "Source table is required")
	}
	if s.ID != nil && *s.ID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Source id must be a positive integer")
	}
	if s.ItemID != nil && *s.ItemID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Source item id must be a positive integer")
	}
	return nil
}

// SourceScope addresses every layer created by one document (table + row id).
// Unlike SourceRef it always carries a concrete id, since it is used to
// select existing layers rather than describe a new one.
type SourceScope struct {
	Table string
	ID    int64
}

// Validate checks the scope.
func (s SourceScope) Validate() error {
	if s.Table == "" {
		return shared.NewDomainError("INVALID_INPUT", "Source table is required")
	}
	if s.ID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Source id must be a positive integer")
	}
	return nil
}

func (s SourceScope) String() string {
	return fmt.Sprintf("%s#%d", s.Table, s.ID)
}

// TargetRef identifies the sale/transfer line that consumed stock.
type TargetRef struct {
	Table  string
	ItemID int64
}

// Validate checks the target reference.
func (t TargetRef) Validate() error {
	if t.Table == "" {
		return shared.NewDomainError("INVALID_INPUT", "Target table is required")
	}
	if t.ItemID <= 0 {
		return shared.NewDomainError("INVALID_INPUT", "Target item id must be a positive integer")
	}
	return nil
}

func (t TargetRef) String() string {
	return fmt.Sprintf("%s#%d", t.Table, t.ItemID)
}
