package invoker

import (
	"errors"
	"fmt"
)

var (
	// ErrModuleNotFound is returned when no handler unit exists at a module path.
	ErrModuleNotFound = errors.New("cannot find module")
	// ErrExportNotFound is returned when the unit exists but lacks the export.
	ErrExportNotFound = errors.New("export not found")
	// ErrNotCallable is returned when the export is not a handler function.
	ErrNotCallable = errors.New("export is not a function")
)

// ResolutionError reports a handler that could not be located or loaded.
type ResolutionError struct {
	Ref HandlerRef
	Err error
}

func (e *ResolutionError) Error() string {
	return fmt.Sprintf("cannot resolve handler %s: %v", e.Ref, e.Err)
}

func (e *ResolutionError) Unwrap() error {
	return e.Err
}

// CrashError reports a handler that failed synchronously instead of
// completing through its result channel.
type CrashError struct {
	Ref HandlerRef
	Err error
}

func (e *CrashError) Error() string {
	return e.Err.Error()
}

func (e *CrashError) Unwrap() error {
	return e.Err
}

// HandlerError is a failure reported by a handler through its result
// channel. Type carries the error type name when the unit reported one.
type HandlerError struct {
	Message string
	Type    string
}

func (e *HandlerError) Error() string {
	return e.Message
}

// IsSyncFailure reports whether err means the handler never produced an
// outcome through its result channel.
func IsSyncFailure(err error) bool {
	var re *ResolutionError
	var ce *CrashError
	return errors.As(err, &re) || errors.As(err, &ce)
}
