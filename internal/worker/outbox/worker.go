package outbox

import (
	"context"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/ordering/internal/worker/backoff"
	"github.com/spf13/viper"
)

type publisher interface {
	Publish(ctx context.Context, cfg rabbitmq.PublishConfig) error
}

// Worker republishes order events parked in the outbox table.
type Worker struct {
	outboxRepo   ioutboxrepo.IOutboxRepository
	publisher    publisher
	pollInterval time.Duration
	batchSize    int
	now          func() time.Time
	stopCh       chan struct{}
}

// NewWorker creates a new outbox worker.
func NewWorker(
	outboxRepo ioutboxrepo.IOutboxRepository,
	publisher publisher,
) *Worker {
	pollIntervalSeconds := viper.GetInt("rabbitmq.outbox.poll_interval_seconds")
	if pollIntervalSeconds == 0 {
		pollIntervalSeconds = 10
	}

	batchSize := viper.GetInt("rabbitmq.outbox.batch_size")
	if batchSize == 0 {
		batchSize = 100
	}

	return &Worker{
		outboxRepo:   outboxRepo,
		publisher:    publisher,
		pollInterval: time.Duration(pollIntervalSeconds) * time.Second,
		batchSize:    batchSize,
		now:          time.Now,
		stopCh:       make(chan struct{}),
	}
}

// Start begins processing messages from the outbox.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.pollInterval)
	defer ticker.Stop()

	slog.Info("Outbox worker started", "poll_interval", w.pollInterval, "batch_size", w.batchSize)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Outbox worker shutting down")

			return
		case <-w.stopCh:
			slog.Info("Outbox worker stopped")

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

// processMessages retrieves and republishes pending messages. A message that
// exhausts its retries stays in the table for inspection and is no longer
// picked up.
func (w *Worker) processMessages(ctx context.Context) {
	messages, err := w.outboxRepo.ListDue(ctx, w.now(), w.batchSize)
	if err != nil {
		slog.Error("Failed to get pending messages from outbox", "error", err)

		return
	}

	if len(messages) == 0 {
		return
	}

	slog.Info("Processing outbox messages", "count", len(messages))

	for _, msg := range messages {
		err := w.publisher.Publish(ctx, rabbitmq.PublishConfig{
			Exchange:    msg.ExchangeName,
			RoutingKey:  msg.RoutingKey,
			MessageID:   msg.MessageID,
			ContentType: msg.ContentType,
			Body:        msg.Payload,
			Headers:     msg.Headers,
		})
		if err == nil {
			if err := w.outboxRepo.Delete(ctx, msg.ID); err != nil {
				slog.Error("Failed to delete message from outbox after successful publish",
					"outbox_id", msg.ID,
					"error", err,
				)
			} else {
				slog.Info("Message successfully published and removed from outbox",
					"outbox_id", msg.ID,
					"message_id", msg.MessageID,
				)
			}

			continue
		}

		newRetryCount := msg.RetryCount + 1
		nextRetryAt := w.now().Add(backoff.Delay(newRetryCount))

		if newRetryCount >= msg.MaxRetries {
			slog.Error("Outbox message exhausted its retries",
				"outbox_id", msg.ID,
				"message_id", msg.MessageID,
				"routing_key", msg.RoutingKey,
				"error", err,
			)
		} else {
			slog.Warn("Failed to publish message from outbox, will retry",
				"outbox_id", msg.ID,
				"retry_count", newRetryCount,
				"next_retry", nextRetryAt,
				"error", err,
			)
		}

		if err := w.outboxRepo.ScheduleRetry(ctx, msg.ID, newRetryCount, err.Error(), nextRetryAt); err != nil {
			slog.Error("Failed to update retry information", "outbox_id", msg.ID, "error", err)
		}
	}
}
