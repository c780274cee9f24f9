package services

import (
	"errors"
	"fmt"
)

var (
	// ErrSessionEnded is returned when an attempt has already ended and may
	// not be re-entered or acted upon.
	ErrSessionEnded = errors.New("contest session has ended")

	// ErrSessionNotRunning is returned when an operation needs a running
	// attempt and none was started.
	ErrSessionNotRunning = errors.New("contest session is not running")
)

// ValidationError reports a request rejected before any write.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
