package services

import (
	"context"
	"time"

	"apigw-local/internal/gateway"
	"apigw-local/internal/models"
	"apigw-local/internal/repositories"

	"github.com/sirupsen/logrus"
)

const defaultListLimit = 50

// JournalService records processed requests and serves them back to the
// admin surface.
type JournalService struct {
	repo   repositories.InvocationRepository
	logger *logrus.Logger
}

// NewJournalService creates a new journal service
func NewJournalService(repo repositories.InvocationRepository, logger *logrus.Logger) *JournalService {
	if logger == nil {
		logger = logrus.New()
	}
	return &JournalService{
		repo:   repo,
		logger: logger,
	}
}

// Observe implements gateway.Observer. Storage failures are logged and
// never affect the response already sent.
func (s *JournalService) Observe(ctx context.Context, inv *gateway.Invocation) {
	record := models.NewInvocation()
	record.RequestID = inv.RequestID
	record.Function = inv.Function
	record.Method = inv.Method
	record.Path = inv.Path
	record.StatusCode = inv.StatusCode
	record.Outcome = string(inv.Outcome)
	record.PrincipalID = inv.PrincipalID
	record.Error = inv.Error
	record.DurationMS = inv.Duration.Milliseconds()
	if !inv.StartedAt.IsZero() {
		record.CreatedAt = inv.StartedAt.UTC()
	}

	if err := s.repo.Create(context.WithoutCancel(ctx), record); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"function":   inv.Function,
			"request_id": inv.RequestID,
		}).Warn("Failed to journal invocation")
	}
}

// List returns journaled invocations, newest first
func (s *JournalService) List(ctx context.Context, filter models.InvocationFilter) ([]*models.Invocation, int64, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultListLimit
	}

	invocations, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	total, err := s.repo.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	return invocations, total, nil
}

// Get returns a single invocation
func (s *JournalService) Get(ctx context.Context, id string) (*models.Invocation, error) {
	return s.repo.GetByID(ctx, id)
}

// Prune removes invocations older than the retention window
func (s *JournalService) Prune(ctx context.Context, retention time.Duration) (int64, error) {
	removed, err := s.repo.Purge(ctx, time.Now().Add(-retention))
	if err != nil {
		return 0, err
	}
	if removed > 0 {
		s.logger.WithField("removed", removed).Info("Pruned journal")
	}
	return removed, nil
}
