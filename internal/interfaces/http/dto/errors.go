package dto

import "net/http"

// Error codes surfaced by the API. Domain error codes pass through
// unchanged so clients can match on them; the codes below cover the
// transport-level cases the domain never raises.
const (
	// ErrCodeInternal is used for internal server errors
	ErrCodeInternal = "INTERNAL_ERROR"
	// ErrCodeBadRequest is used for malformed requests
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeValidation is used for request binding failures
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeNotFound is used when a resource is not found
	ErrCodeNotFound = "NOT_FOUND"
	// ErrCodeRequestTooLarge is used when the request body exceeds the
	// configured size limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	// ErrCodeFifoDisabled signals the ledger tables are absent in this
	// deployment and the operation was not attempted
	ErrCodeFifoDisabled = "FIFO_DISABLED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes.
//
// Conflict-class codes map to 409: they reflect a legitimate concurrent
// business state (stock committed elsewhere, consumption still active),
// not caller misuse.
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeInternal:   http.StatusInternalServerError,
	ErrCodeBadRequest: http.StatusBadRequest,
	ErrCodeValidation: http.StatusBadRequest,
	ErrCodeNotFound:   http.StatusNotFound,

	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	// Domain validation errors -> 400 Bad Request
	"INVALID_INPUT": http.StatusBadRequest,

	// Conflict-class errors -> 409 Conflict
	"INSUFFICIENT_STOCK":       http.StatusConflict,
	"LAYER_CONSUMPTION_ACTIVE": http.StatusConflict,
	"INVALID_STATE":            http.StatusConflict,

	// Disabled ledger -> 409 Conflict (capability missing, retryable
	// only after migration)
	ErrCodeFifoDisabled: http.StatusConflict,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
