package ledger

import "github.com/backoffice/backend/internal/domain/shared"

// Ledger-specific errors
var (
	// ErrInsufficientStock is raised when the ordered candidate layers
	// cannot fully satisfy a demand. It is a conflict, not a validation
	// error: the stock may simply be committed elsewhere.
	ErrInsufficientStock = shared.ErrInsufficientStock

	// ErrConsumptionActive guards destructive structural changes to a
	// lot's or source's layers while any allocation against them is
	// still active. Deleting or nullifying such a layer would silently
	// corrupt cost history already recorded on downstream sales.
	ErrConsumptionActive = shared.NewDomainError("LAYER_CONSUMPTION_ACTIVE",
		"Layers still have active consumption and cannot be structurally modified")
)
