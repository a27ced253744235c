package consumer

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/inbox"
	"github.com/corray333/backend-labs/ordering/internal/worker/backoff"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	RecordEvent(ctx context.Context, evt event.OrderEvent) error
}

type inboxRepository interface {
	Insert(ctx context.Context, msg inbox.InboxMessage) error
}

type broker interface {
	Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error)
}

// Consumer records order lifecycle events delivered by RabbitMQ. Events that
// cannot be recorded are parked in the inbox and acknowledged.
type Consumer struct {
	broker      broker
	service     service
	inboxRepo   inboxRepository
	queue       string
	consumerTag string
	prefetch    int
	concurrency int
	maxRetries  int
	now         func() time.Time
	stop        chan struct{}
	done        chan struct{}
	stopOnce    sync.Once
}

// MustNewConsumer declares the exchange and the queue, binds the queue to
// every order event type, and creates a new Consumer.
func MustNewConsumer(client *rabbitmq.Client, service service, inboxRepo inboxRepository) *Consumer {
	exchange := viper.GetString("rabbitmq.exchange")
	queueName := viper.GetString("rabbitmq.queue")
	if exchange == "" || queueName == "" {
		panic("rabbitmq.exchange and rabbitmq.queue must be set in config")
	}

	if err := client.DeclareExchange(rabbitmq.DeclareExchangeConfig{
		Name:    exchange,
		Kind:    amqp.ExchangeTopic,
		Durable: true,
	}); err != nil {
		panic(err)
	}

	queue, err := client.DeclareQueue(rabbitmq.DeclareQueueConfig{
		Name:    queueName,
		Durable: true,
	})
	if err != nil {
		panic(err)
	}

	if err := client.BindQueue(queue.Name, exchange,
		string(event.TypeOrderPlaced),
		string(event.TypeOrderCancelled),
		string(event.TypeOrderCompleted),
	); err != nil {
		panic(err)
	}

	return newConsumer(client, service, inboxRepo, queue.Name)
}

func newConsumer(b broker, service service, inboxRepo inboxRepository, queue string) *Consumer {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "audit-consumer"
	}

	prefetch := viper.GetInt("rabbitmq.prefetch")
	if prefetch == 0 {
		prefetch = 50
	}

	maxRetries := viper.GetInt("rabbitmq.max_retries")
	if maxRetries == 0 {
		maxRetries = 5
	}

	return &Consumer{
		broker:      b,
		service:     service,
		inboxRepo:   inboxRepo,
		queue:       queue,
		consumerTag: consumerTag,
		prefetch:    prefetch,
		concurrency: prefetch,
		maxRetries:  maxRetries,
		now:         time.Now,
		stop:        make(chan struct{}),
		done:        make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ and blocks until the consumer
// is shut down or the delivery channel is closed.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.broker.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue,
		Consumer: c.consumerTag,
		Prefetch: c.prefetch,
	})
	if err != nil {
		return err
	}

	slog.Info("Consumer started", "queue", c.queue, "consumer_tag", c.consumerTag)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	defer close(c.done)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Consumer context cancelled")

			return g.Wait()
		case <-c.stop:
			slog.Info("Stopping consumer")

			return g.Wait()
		case msg, ok := <-msgs:
			if !ok {
				slog.Info("Message channel closed")

				return g.Wait()
			}

			g.Go(func() error {
				c.processMessage(gctx, msg)

				return nil
			})
		}
	}
}

// processMessage records a single delivery. Undecodable deliveries are
// rejected without requeue. A delivery that fails to record is moved to the
// inbox; if that fails too, it is requeued.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx = rabbitmq.ExtractTraceContext(ctx, msg.Headers)
	ctx, span := otel.Tracer("consumer").Start(ctx, "Consumer.processMessage")
	defer span.End()
	span.SetAttributes(
		attribute.String("messaging.message_id", msg.MessageId),
		attribute.String("messaging.routing_key", msg.RoutingKey),
	)

	evt, err := event.Decode(msg.Body)
	if err != nil {
		slog.ErrorContext(ctx, "Rejecting undecodable message",
			"delivery_tag", msg.DeliveryTag,
			"routing_key", msg.RoutingKey,
			"error", err,
		)
		if err := msg.Nack(false, false); err != nil {
			slog.ErrorContext(ctx, "Failed to nack message", "error", err)
		}

		return
	}

	if err := c.service.RecordEvent(ctx, evt); err != nil {
		slog.WarnContext(ctx, "Failed to record event, moving it to the inbox",
			"event_id", evt.ID,
			"order_id", evt.OrderID,
			"error", err,
		)

		if inboxErr := c.toInbox(ctx, msg, evt, err); inboxErr != nil {
			slog.ErrorContext(ctx, "Failed to store message in inbox, requeueing",
				"event_id", evt.ID,
				"error", inboxErr,
			)
			if err := msg.Nack(false, true); err != nil {
				slog.ErrorContext(ctx, "Failed to nack message", "error", err)
			}

			return
		}
	}

	if err := msg.Ack(false); err != nil {
		slog.ErrorContext(ctx, "Failed to ack message", "error", err)

		return
	}

	slog.DebugContext(ctx, "Message processed", "event_id", evt.ID, "order_id", evt.OrderID)
}

func (c *Consumer) toInbox(ctx context.Context, msg amqp.Delivery, evt event.OrderEvent, cause error) error {
	messageID := msg.MessageId
	if messageID == "" {
		messageID = evt.ID.String()
	}

	now := c.now()

	return c.inboxRepo.Insert(ctx, inbox.InboxMessage{
		MessageID:   messageID,
		QueueName:   c.queue,
		RoutingKey:  msg.RoutingKey,
		Payload:     msg.Body,
		ContentType: msg.ContentType,
		RetryCount:  0,
		MaxRetries:  c.maxRetries,
		LastError:   cause.Error(),
		CreatedAt:   now,
		UpdatedAt:   now,
		NextRetryAt: now.Add(backoff.Base),
	})
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	c.stopOnce.Do(func() { close(c.stop) })

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
