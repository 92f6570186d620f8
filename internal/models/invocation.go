package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

var validate = validator.New()

// Invocation is one journaled request handled by the gateway
type Invocation struct {
	ID          string    `json:"id" db:"id" validate:"required,uuid"`
	RequestID   string    `json:"request_id" db:"request_id"`
	Function    string    `json:"function" db:"function_name" validate:"required"`
	Method      string    `json:"method" db:"method" validate:"required"`
	Path        string    `json:"path" db:"path" validate:"required,startswith=/"`
	StatusCode  int       `json:"status_code" db:"status_code" validate:"gte=100,lte=999"`
	Outcome     string    `json:"outcome" db:"outcome" validate:"required,oneof=success handler_error malformed_result crashed unauthorized"`
	PrincipalID string    `json:"principal_id,omitempty" db:"principal_id"`
	Error       string    `json:"error,omitempty" db:"error_message"`
	DurationMS  int64     `json:"duration_ms" db:"duration_ms" validate:"gte=0"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewInvocation returns an invocation with a fresh ID and timestamp
func NewInvocation() *Invocation {
	return &Invocation{
		ID:        uuid.NewString(),
		CreatedAt: time.Now().UTC(),
	}
}

// Validate checks the invocation before it is stored
func (i *Invocation) Validate() error {
	return validate.Struct(i)
}

// InvocationFilter narrows invocation listings
type InvocationFilter struct {
	Function string
	Outcome  string
	Since    time.Time
	Limit    int
}
