package persist

import (
	"errors"
	"fmt"
)

// ErrNoSnapshot is returned by a Backend when no snapshot has been saved yet.
var ErrNoSnapshot = errors.New("persist: no snapshot")

// PersistenceError wraps a snapshot read, write or decode failure.
type PersistenceError struct {
	Op  string // load, decode, save or quarantine.
	Err error
}

// Error implements error.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *PersistenceError) Unwrap() error {
	return e.Err
}
