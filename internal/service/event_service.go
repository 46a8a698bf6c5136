package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jobops/jobops-api/internal/models"
	"github.com/jobops/jobops-api/internal/repository"
)

// maxEventDetailChars caps stored error text so one giant upstream message
// cannot bloat the events table.
const maxEventDetailChars = 300

// EventService writes the append-only operational log. Every method is
// best-effort: pipeline stages must never fail because the log write did.
type EventService struct {
	repos    *repository.Repositories
	features repository.Features
	logger   *slog.Logger
}

// NewEventService creates a new event service.
func NewEventService(repos *repository.Repositories, features repository.Features, logger *slog.Logger) *EventService {
	return &EventService{
		repos:    repos,
		features: features,
		logger:   logger,
	}
}

// Record stores one event. On older schemas without the events table the
// event is logged and dropped.
func (s *EventService) Record(ctx context.Context, kind, jobKey, detail string) {
	detail = models.TruncateChars(detail, maxEventDetailChars)
	if !s.features.Events {
		s.logger.Info("event (schema disabled)", "kind", kind, "job_key", jobKey, "detail", detail)
		return
	}
	event := &models.Event{Kind: kind, JobKey: jobKey, Detail: detail}
	if _, err := s.repos.Event.Insert(ctx, event); err != nil {
		s.logger.Warn("failed to record event", "kind", kind, "job_key", jobKey, "error", err)
	}
}

// RecordMessage stores an event deduplicated on messageID and reports whether
// it was stored (false means a duplicate was dropped).
func (s *EventService) RecordMessage(ctx context.Context, kind, jobKey, detail, messageID string) (bool, error) {
	if !s.features.Events {
		return false, fmt.Errorf("events: %w", ErrSchemaDisabled)
	}
	event := &models.Event{
		Kind:      kind,
		JobKey:    jobKey,
		Detail:    models.TruncateChars(detail, maxEventDetailChars),
		MessageID: messageID,
	}
	stored, err := s.repos.Event.Insert(ctx, event)
	if err != nil {
		return false, fmt.Errorf("failed to record message event: %w", err)
	}
	return stored, nil
}

// SeenMessage reports whether an inbound message id was already processed.
func (s *EventService) SeenMessage(ctx context.Context, messageID string) (bool, error) {
	if !s.features.Events || messageID == "" {
		return false, nil
	}
	return s.repos.Event.HasMessageID(ctx, messageID)
}

// AIFailed records a truncated LLM failure for one pipeline stage.
func (s *EventService) AIFailed(ctx context.Context, jobKey, stage string, err error) {
	s.logger.Warn("ai call failed", "job_key", jobKey, "stage", stage, "error", err)
	s.Record(ctx, models.EventAIFailed, jobKey, stage+": "+err.Error())
}

// ListRecent returns recent events, optionally filtered by kind.
func (s *EventService) ListRecent(ctx context.Context, kind string, limit int) ([]*models.Event, error) {
	if !s.features.Events {
		return nil, fmt.Errorf("events: %w", ErrSchemaDisabled)
	}
	return s.repos.Event.ListRecent(ctx, kind, limit)
}
