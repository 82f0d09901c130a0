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

// Is allows errors.Is to match two domain errors by code, so callers can
// compare a wrapped instance against the sentinel values below.
func (e *DomainError) Is(target error) bool {
	t, ok := target.(*DomainError)
	if !ok {
		return false
	}
	return e.Code == t.Code
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
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")

	// ErrInsufficientStock is returned when a reserve, issue, or batch
	// selection asks for more than the free/available quantity. Recoverable;
	// never retried automatically.
	ErrInsufficientStock = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")

	// ErrInvalidRelease is returned when a caller releases or fulfills more
	// than is currently held by a reservation.
	ErrInvalidRelease = NewDomainError("INVALID_RELEASE", "Release exceeds held quantity")

	// ErrInvalidStateTransition is returned when an operation is attempted
	// against a document in a state that does not permit it.
	ErrInvalidStateTransition = NewDomainError("INVALID_STATE_TRANSITION", "Operation not allowed in current state")

	// ErrBusy is surfaced after bounded internal retries on a contended
	// record have been exhausted. Callers may retry with backoff.
	ErrBusy = NewDomainError("BUSY", "Record is contended, retry later")

	// ErrLedgerIntegrity indicates the movement ledger no longer replays to
	// the live record balance. Fatal for the affected record: all further
	// mutation is halted until manual reconciliation.
	ErrLedgerIntegrity = NewDomainError("LEDGER_INTEGRITY_FAULT", "Ledger replay diverges from live balance")
)
