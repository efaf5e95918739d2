package shared

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound          = NewDomainError("NOT_FOUND", "Resource not found")
	ErrInvalidInput      = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrInvalidState      = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
)

// Conflict-class error codes. A conflict reflects a legitimate concurrent
// business state rather than caller misuse; callers surface these to the
// end user instead of treating them as internal faults.
var conflictCodes = map[string]bool{
	"INSUFFICIENT_STOCK":       true,
	"LAYER_CONSUMPTION_ACTIVE": true,
	"INVALID_STATE":            true,
}

// IsConflict reports whether err is a conflict-class domain error.
func IsConflict(err error) bool {
	de, ok := err.(*DomainError)
	return ok && conflictCodes[de.Code]
}

// IsValidation reports whether err is a local validation error raised
// before any row was touched.
func IsValidation(err error) bool {
	de, ok := err.(*DomainError)
	return ok && de.Code == "INVALID_INPUT"
}
