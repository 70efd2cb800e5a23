package report

import (
	"errors"
	"fmt"
)

// Sentinel errors for expected failure modes. Callers should match these with
// errors.Is; store implementations wrap them with context.
var (
	// ErrDuplicateReport means the reporter already reported this content.
	// This is a user-facing condition, not a system fault.
	ErrDuplicateReport = errors.New("duplicate report")

	// ErrReportNotFound means the referenced report id does not exist.
	ErrReportNotFound = errors.New("report not found")

	// ErrStoreUnavailable means the persistence layer timed out or failed.
	// The operation left no partial state and is safe to retry.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationError represents bad or missing input on a public operation.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return "invalid " + e.Field + ": " + e.Message
}

// StatusTransitionError is returned by stores when a status change would
// leave a terminal state.
type StatusTransitionError struct {
	From Status
	To   Status
}

func (e *StatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition report from %s to %s", e.From, e.To)
}
