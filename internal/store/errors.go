package store

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write is refused by the record's current state.
var ErrConflict = errors.New("conflict")
