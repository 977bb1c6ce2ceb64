package scheduling

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	// ErrProviderUnavailable covers both an unknown provider id and a
	// provider who exists but cannot take bookings.
	ErrProviderUnavailable = errors.New("provider not found or not available")

	ErrNotOwner        = errors.New("appointment does not belong to requester")
	ErrReasonRequired  = errors.New("reason is required")
	ErrNotYetStarted   = errors.New("appointment has not started yet")
	ErrProviderBusy    = errors.New("provider is being booked, please retry")
	ErrNotCompleted    = errors.New("only completed appointments can be reviewed")
	ErrAlreadyReviewed = errors.New("appointment has already been reviewed")
)

// StatusConflictError reports a transition attempted against the wrong
// current status; the caller needs the status to react.
type StatusConflictError struct {
	Current Status
}

func (e *StatusConflictError) Error() string {
	return fmt.Sprintf("appointment is already %s", e.Current)
}

// ValidationError collects field-level input problems found before any
// mutation.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for f := range e.Fields {
		names = append(names, f)
	}
	sort.Strings(names)
	return "invalid input: " + strings.Join(names, ", ")
}
