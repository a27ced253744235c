package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/ioutboxrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/outbox"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// FirstRetryDelay is the delay before the outbox worker first retries an
// event that could not be published.
const FirstRetryDelay = 30 * time.Second

type publisher interface {
	Publish(ctx context.Context, cfg rabbitmq.PublishConfig) error
}

// EventRabbitMQRepository publishes order events to the exchange, routed by
// event type. Events that cannot be published are parked in the outbox.
type EventRabbitMQRepository struct {
	client     publisher
	outboxRepo ioutboxrepo.IOutboxRepository
	exchange   string
	maxRetries int
}

// NewEventRabbitMQRepository creates a new EventRabbitMQRepository.
func NewEventRabbitMQRepository(
	client publisher,
	outboxRepo ioutboxrepo.IOutboxRepository,
	exchange string,
	maxRetries int,
) *EventRabbitMQRepository {
	return &EventRabbitMQRepository{
		client:     client,
		outboxRepo: outboxRepo,
		exchange:   exchange,
		maxRetries: maxRetries,
	}
}

// Publish sends the event. It returns an error only if the event could be
// neither published nor stored in the outbox.
func (r *EventRabbitMQRepository) Publish(ctx context.Context, evt event.OrderEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode order event: %w", err)
	}

	cfg := rabbitmq.PublishConfig{
		Exchange:    r.exchange,
		RoutingKey:  string(evt.Type),
		MessageID:   evt.ID.String(),
		ContentType: "application/json",
		Body:        payload,
	}

	publishErr := r.client.Publish(ctx, cfg)
	if publishErr == nil {
		return nil
	}

	slog.WarnContext(ctx, "Failed to publish order event, storing in outbox",
		"event_id", evt.ID,
		"type", evt.Type,
		"order_id", evt.OrderID,
		"error", publishErr,
	)

	headers := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, headers)

	now := time.Now()
	msg := outbox.OutboxMessage{
		MessageID:    cfg.MessageID,
		ExchangeName: cfg.Exchange,
		RoutingKey:   cfg.RoutingKey,
		Payload:      cfg.Body,
		ContentType:  cfg.ContentType,
		Headers:      headers,
		RetryCount:   0,
		MaxRetries:   r.maxRetries,
		LastError:    publishErr.Error(),
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now.Add(FirstRetryDelay),
	}

	if err := r.outboxRepo.Insert(ctx, msg); err != nil {
		return fmt.Errorf("failed to publish order event %s: %w", evt.ID, errors.Join(publishErr, err))
	}

	return nil
}
