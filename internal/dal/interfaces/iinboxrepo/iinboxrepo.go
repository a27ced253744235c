package iinboxrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/inbox"
)

// IInboxRepository stores consumed order events awaiting a history write.
type IInboxRepository interface {
	Insert(ctx context.Context, msg inbox.InboxMessage) error

	// ListDue returns parked events whose next attempt is at or before now.
	ListDue(ctx context.Context, now time.Time, limit int) ([]inbox.InboxMessage, error)

	Delete(ctx context.Context, id int64) error

	ScheduleRetry(
		ctx context.Context,
		id int64,
		retryCount int,
		lastError string,
		nextRetryAt time.Time,
	) error
}
