package ioutboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/outbox"
)

// IOutboxRepository stores order events awaiting republish.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.OutboxMessage) error

	// ListDue returns events whose next attempt is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]outbox.OutboxMessage, error)

	Delete(ctx context.Context, id int64) error

	ScheduleRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error
}
