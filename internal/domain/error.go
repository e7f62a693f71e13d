package domain

import (
	"errors"
	"fmt"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrAlreadyExists      = errors.New("entity already exists")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidState       = errors.New("operation not allowed in current state")
	ErrPlanInactive       = errors.New("plan is not active")
	ErrNoSubscription     = errors.New("store has no remote subscription")
	ErrOperationFailed    = errors.New("operation failed")
	ErrInvalidExecContext = errors.New("invalid executor context")
	ErrLockNotAcquired    = errors.New("lock not acquired")

	// Provider call classification
	ErrProviderUnavailable = errors.New("payment provider unavailable")
	ErrProviderRejected    = errors.New("payment provider rejected request")
)

// ProviderError carries the provider HTTP status alongside the raw message,
// so synchronous callers (subscription creation) can surface the provider
// text verbatim while reconciliation paths only branch on the class.
type ProviderError struct {
	StatusCode int
	Message    string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error (status %d): %s", e.StatusCode, e.Message)
}

// Unwrap maps 4xx to ErrProviderRejected and everything else (network
// failures reported as 0, 5xx) to ErrProviderUnavailable.
func (e *ProviderError) Unwrap() error {
	if e.StatusCode >= 400 && e.StatusCode < 500 {
		return ErrProviderRejected
	}
	return ErrProviderUnavailable
}
