package sync

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the referenced conversation or integration
	// does not exist or is not visible to the caller.
	ErrNotFound = errors.New("not found")

	// ErrDeliveryFailed indicates the platform rejected an outbound message
	ErrDeliveryFailed = errors.New("message delivery failed")
)

// StorageError wraps a database failure so callers can distinguish
// infrastructure faults from domain outcomes.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

func storageErr(op string, err error) error {
	return &StorageError{Op: op, Err: err}
}
