package approval

import (
	"fmt"
	"time"

	"github.com/localbridge-dev/localbridge/pkg/types"
)

// NotFoundError is returned when an approval id is unknown.
type NotFoundError struct {
	ID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("approval %s not found", e.ID)
}

// IsNotFound checks if an error is an unknown-approval failure.
func IsNotFound(err error) bool {
	_, ok := err.(*NotFoundError)
	return ok
}

// InvalidStateError is returned when a decision is recorded against a record
// that is no longer pending. A late duplicate decision must not flip a grant
// the caller may already have acted on.
type InvalidStateError struct {
	ID     string
	Status types.Status
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("approval %s already %s", e.ID, e.Status)
}

// IsInvalidState checks if an error is a decision-on-terminal-record failure.
func IsInvalidState(err error) bool {
	_, ok := err.(*InvalidStateError)
	return ok
}

// TimeoutError is returned when a waiter's deadline elapses before the
// operator decides. The record itself is untouched; a later decision still
// succeeds and is simply unobserved by this waiter.
type TimeoutError struct {
	ID      string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("no decision on approval %s within %s", e.ID, e.Timeout)
}

// IsTimeout checks if an error is a wait deadline failure.
func IsTimeout(err error) bool {
	_, ok := err.(*TimeoutError)
	return ok
}
