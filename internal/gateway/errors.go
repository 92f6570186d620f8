package gateway

import (
	"errors"
	"fmt"
)

var (
	// ErrNoIdentity is returned when the identity header is absent.
	ErrNoIdentity = errors.New("identity header missing")
	// ErrAuthorizerFailed wraps failures reported by the authorizer handler.
	ErrAuthorizerFailed = errors.New("authorizer failed")
	// ErrInvalidAuthorizerOutput is returned when the authorizer result does
	// not have the expected shape.
	ErrInvalidAuthorizerOutput = errors.New("invalid authorizer output")
)

// ConfigError reports a route or authorizer declaration that cannot be
// served. It is raised while the router is built, never per request.
type ConfigError struct {
	Function string
	Msg      string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func configErrorf(function, format string, args ...any) *ConfigError {
	return &ConfigError{
		Function: function,
		Msg:      fmt.Sprintf(format, args...),
	}
}
