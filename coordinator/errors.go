package coordinator

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means Bazarr rejected the configured API key. Polling
	// stays stopped until ReplaceAPIKey succeeds.
	ErrAuthFailed = errors.New("bazarr authentication failed")

	// ErrNotReady means Bazarr could not be reached during the startup check
	// and setup should be retried later.
	ErrNotReady = errors.New("bazarr not ready")

	// ErrClosed is returned once Shutdown has been called
	ErrClosed = errors.New("coordinator is shut down")
)

// UpdateFailedError wraps the cause of a failed refresh cycle
type UpdateFailedError struct {
	Err error
}

func (e *UpdateFailedError) Error() string {
	return fmt.Sprintf("error communicating with Bazarr API: %v", e.Err)
}

func (e *UpdateFailedError) Unwrap() error {
	return e.Err
}
