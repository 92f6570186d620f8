package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"apigw-local/internal/database"
	"apigw-local/internal/models"
	"apigw-local/internal/repositories"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupRepository(t *testing.T) repositories.InvocationRepository {
	t.Helper()
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)

	cm := database.NewConnectionManager(&database.ConnectionConfig{
		DatabasePath:    filepath.Join(t.TempDir(), "journal.db"),
		MaxOpenConns:    1,
		MaxIdleConns:    1,
		ConnMaxLifetime: time.Hour,
		Logger:          logger,
	})
	require.NoError(t, cm.Connect())
	t.Cleanup(func() { cm.Close() })

	return NewInvocationRepository(cm.GetDB(), logger)
}

func newInvocation(function, outcome string, status int, at time.Time) *models.Invocation {
	inv := models.NewInvocation()
	inv.RequestID = "req-" + function
	inv.Function = function
	inv.Method = "GET"
	inv.Path = "/" + function
	inv.StatusCode = status
	inv.Outcome = outcome
	inv.DurationMS = 3
	inv.CreatedAt = at.UTC()
	return inv
}

func TestInvocationRepository_CreateAndGet(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	inv := newInvocation("hello", "success", 200, time.Now())
	inv.PrincipalID = "user-1"
	require.NoError(t, repo.Create(ctx, inv))

	got, err := repo.GetByID(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Function, got.Function)
	assert.Equal(t, inv.StatusCode, got.StatusCode)
	assert.Equal(t, "user-1", got.PrincipalID)
	assert.WithinDuration(t, inv.CreatedAt, got.CreatedAt, time.Second)

	err = repo.Create(ctx, inv)
	assert.ErrorIs(t, err, repositories.ErrDuplicateEntry)

	_, err = repo.GetByID(ctx, "00000000-0000-0000-0000-000000000000")
	assert.True(t, repositories.IsNotFound(err))

	_, err = repo.GetByID(ctx, " ")
	assert.ErrorIs(t, err, repositories.ErrInvalidID)
}

func TestInvocationRepository_Validation(t *testing.T) {
	repo := setupRepository(t)

	tests := []struct {
		name   string
		mutate func(*models.Invocation)
	}{
		{name: "missing function", mutate: func(i *models.Invocation) { i.Function = "" }},
		{name: "relative path", mutate: func(i *models.Invocation) { i.Path = "hello" }},
		{name: "unknown outcome", mutate: func(i *models.Invocation) { i.Outcome = "maybe" }},
		{name: "bad status", mutate: func(i *models.Invocation) { i.StatusCode = 0 }},
		{name: "bad id", mutate: func(i *models.Invocation) { i.ID = "x" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inv := newInvocation("hello", "success", 200, time.Now())
			tt.mutate(inv)
			err := repo.Create(context.Background(), inv)
			assert.ErrorIs(t, err, repositories.ErrValidation)
		})
	}
}

func TestInvocationRepository_ListCountPurge(t *testing.T) {
	repo := setupRepository(t)
	ctx := context.Background()

	old := time.Now().Add(-48 * time.Hour)
	recent := time.Now().Add(-time.Minute)

	for _, inv := range []*models.Invocation{
		newInvocation("hello", "success", 200, old),
		newInvocation("hello", "handler_error", 500, recent),
		newInvocation("guarded", "unauthorized", 403, recent.Add(time.Second)),
	} {
		require.NoError(t, repo.Create(ctx, inv))
	}

	all, err := repo.List(ctx, models.InvocationFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "guarded", all[0].Function, "newest first")

	hello, err := repo.List(ctx, models.InvocationFilter{Function: "hello"})
	require.NoError(t, err)
	assert.Len(t, hello, 2)

	limited, err := repo.List(ctx, models.InvocationFilter{Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	count, err := repo.Count(ctx, models.InvocationFilter{Outcome: "unauthorized"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	count, err = repo.Count(ctx, models.InvocationFilter{Since: time.Now().Add(-time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	purged, err := repo.Purge(ctx, time.Now().Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), purged)

	count, err = repo.Count(ctx, models.InvocationFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
