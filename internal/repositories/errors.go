package repositories

import (
	"errors"
	"fmt"
)

// Journal store errors
var (
	ErrNotFound       = errors.New("invocation not found")
	ErrDuplicateEntry = errors.New("invocation already journaled")
	ErrInvalidID      = errors.New("invalid invocation ID")
	ErrValidation     = errors.New("invalid invocation")
)

// StoreError records which journal operation failed and for which record.
type StoreError struct {
	Op  string
	ID  string
	Err error
}

func (e *StoreError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("journal %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("journal %s %s: %v", e.Op, e.ID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

// NewStoreError wraps err as the failure of op on the record id. id may be
// empty for operations over many records.
func NewStoreError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, ID: id, Err: err}
}

// NotFound reports a missing invocation
func NotFound(id string) *StoreError {
	return NewStoreError("get", id, ErrNotFound)
}

// Duplicate reports an invocation ID that is already stored
func Duplicate(id string) *StoreError {
	return NewStoreError("create", id, ErrDuplicateEntry)
}

// Invalid reports an invocation that failed validation
func Invalid(id string, err error) *StoreError {
	return NewStoreError("validate", id, fmt.Errorf("%w: %v", ErrValidation, err))
}

// IsNotFound reports whether err is a not-found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
