package auditsvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/ihistoryrepo"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// AuditService records order lifecycle events as status history.
type AuditService struct {
	historyRepo ihistoryrepo.IHistoryRepository
	now         func() time.Time
}

// option is a function that configures the AuditService.
type option func(*AuditService)

// MustNewAuditService creates a new AuditService.
func MustNewAuditService(opts ...option) *AuditService {
	s := &AuditService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.historyRepo == nil {
		panic("auditsvc: a history repository is required")
	}

	return s
}

// WithHistoryRepository sets the history repository for the AuditService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHistoryRepository(repo ihistoryrepo.IHistoryRepository) option {
	return func(s *AuditService) {
		s.historyRepo = repo
	}
}

// WithClock sets the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *AuditService) {
		s.now = now
	}
}

// RecordEvent stores the status change described by evt. Redelivered events
// are recorded once.
func (s *AuditService) RecordEvent(ctx context.Context, evt event.OrderEvent) error {
	ctx, span := otel.Tracer("service").Start(ctx, "AuditService.RecordEvent")
	defer span.End()
	span.SetAttributes(
		attribute.String("event.id", evt.ID.String()),
		attribute.String("event.type", string(evt.Type)),
		attribute.Int64("order.id", evt.OrderID),
	)

	inserted, err := s.historyRepo.Insert(ctx, history.Entry{
		EventID:    evt.ID,
		OrderID:    evt.OrderID,
		UserID:     evt.UserID,
		ActorID:    evt.ActorID,
		Status:     evt.Status,
		OccurredAt: evt.OccurredAt,
		RecordedAt: s.now(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "Failed to record order event", "event_id", evt.ID, "error", err)

		return err
	}

	if !inserted {
		slog.DebugContext(ctx, "Order event already recorded", "event_id", evt.ID)

		return nil
	}

	slog.InfoContext(ctx, "Order event recorded",
		"event_id", evt.ID,
		"order_id", evt.OrderID,
		"status", evt.Status,
	)

	return nil
}
