package inbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/iinboxrepo"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/worker/backoff"
)

type service interface {
	RecordEvent(ctx context.Context, evt event.OrderEvent) error
}

// Worker retries recording consumed events parked in the inbox table.
type Worker struct {
	inboxRepo    iinboxrepo.IInboxRepository
	service      service
	pollInterval time.Duration
	batchSize    int
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker creates a new inbox worker.
func NewWorker(
	inboxRepo iinboxrepo.IInboxRepository,
	service service,
	pollInterval time.Duration,
	batchSize int,
) *Worker {
	return &Worker{
		inboxRepo:    inboxRepo,
		service:      service,
		pollInterval: pollInterval,
		batchSize:    batchSize,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the inbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Inbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Inbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Inbox worker stopped")

			return
		case <-ticker.C:
			w.processMessages(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.inboxRepo.ListDue(ctx, w.now(), w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from inbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing inbox messages", "count", len(messages))

	for _, msg := range messages {
		evt, err := event.Decode(msg.Payload)
		if err != nil {
			slog.Error("Dropping undecodable message from inbox",
				"inbox_id", msg.ID,
				"message_id", msg.MessageID,
				"error", err,
			)
			if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
				slog.Error("Failed to delete message from inbox", "inbox_id", msg.ID, "error", err)
			}

			continue
		}

		if err := w.service.RecordEvent(ctx, evt); err != nil {
			newRetryCount := msg.RetryCount + 1
			nextRetryAt := w.now().Add(backoff.Delay(newRetryCount))

			slog.Warn("Failed to record event from inbox, will retry",
				"inbox_id", msg.ID,
				"event_id", evt.ID,
				"retry_count", newRetryCount,
				"next_retry", nextRetryAt,
				"error", err,
			)

			if err := w.inboxRepo.ScheduleRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
				slog.Error("Failed to update retry information", "inbox_id", msg.ID, "error", err)
			}

			continue
		}

		if err := w.inboxRepo.Delete(ctx, msg.ID); err != nil {
			slog.Error("Failed to delete message from inbox after successful processing",
				"inbox_id", msg.ID,
				"error", err,
			)
		} else {
			slog.Info("Message successfully processed and removed from inbox",
				"inbox_id", msg.ID,
				"event_id", evt.ID,
				"order_id", evt.OrderID,
			)
		}
	}
}
