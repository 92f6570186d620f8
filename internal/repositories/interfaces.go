package repositories

import (
	"context"
	"time"

	"apigw-local/internal/models"
)

// InvocationRepository stores the invocation journal
type InvocationRepository interface {
	// Create stores a new invocation
	Create(ctx context.Context, invocation *models.Invocation) error

	// GetByID retrieves an invocation by its ID
	GetByID(ctx context.Context, id string) (*models.Invocation, error)

	// List retrieves invocations, newest first
	List(ctx context.Context, filter models.InvocationFilter) ([]*models.Invocation, error)

	// Count returns the number of invocations matching the filter
	Count(ctx context.Context, filter models.InvocationFilter) (int64, error)

	// Purge deletes invocations older than the cutoff
	Purge(ctx context.Context, before time.Time) (int64, error)
}
