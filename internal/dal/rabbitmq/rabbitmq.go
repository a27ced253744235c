package rabbitmq

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Client represents a RabbitMQ client. An amqp.Channel must not be used for
// concurrent publishes, so Publish is serialized.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	pubMu   sync.Mutex
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// MustNewClient creates a new RabbitMQ client.
func MustNewClient() *Client {
	host := viper.GetString("rabbitmq.host")
	port := viper.GetInt("rabbitmq.port")

	connStr := fmt.Sprintf(
		"amqp://%s:%s@%s:%d/",
		viper.GetString("rabbitmq.user"),
		viper.GetString("rabbitmq.password"),
		host,
		port,
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		if err := conn.Close(); err != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", err))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	slog.Info("RabbitMQ connected", "host", host, "port", port)

	return &Client{
		conn:    conn,
		channel: channel,
	}
}

type DeclareExchangeConfig struct {
	Name       string
	Kind       string
	Durable    bool
	AutoDelete bool
	Internal   bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareExchange declares an exchange with the given configuration.
func (r *Client) DeclareExchange(cfg DeclareExchangeConfig) error {
	return r.channel.ExchangeDeclare(
		cfg.Name,
		cfg.Kind,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Internal,
		cfg.NoWait,
		cfg.Args,
	)
}

type DeclareQueueConfig struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	NoWait     bool
	Args       amqp.Table
}

// DeclareQueue declares a queue with the given configuration.
func (r *Client) DeclareQueue(cfg DeclareQueueConfig) (amqp.Queue, error) {
	return r.channel.QueueDeclare(
		cfg.Name,
		cfg.Durable,
		cfg.AutoDelete,
		cfg.Exclusive,
		cfg.NoWait,
		cfg.Args,
	)
}

// BindQueue binds a queue to an exchange for every routing key.
func (r *Client) BindQueue(queue, exchange string, routingKeys ...string) error {
	for _, key := range routingKeys {
		if err := r.channel.QueueBind(queue, key, exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s with %s: %w", queue, exchange, key, err)
		}
	}

	return nil
}

type ConsumeConfig struct {
	Queue     string
	Consumer  string
	AutoAck   bool
	Exclusive bool
	NoLocal   bool
	NoWait    bool
	Prefetch  int
	Args      amqp.Table
}

// Consume starts consuming messages from the queue.
func (r *Client) Consume(cfg ConsumeConfig) (<-chan amqp.Delivery, error) {
	if cfg.Prefetch > 0 {
		if err := r.channel.Qos(cfg.Prefetch, 0, false); err != nil {
			return nil, fmt.Errorf("failed to set prefetch: %w", err)
		}
	}

	return r.channel.Consume(
		cfg.Queue,
		cfg.Consumer,
		cfg.AutoAck,
		cfg.Exclusive,
		cfg.NoLocal,
		cfg.NoWait,
		cfg.Args,
	)
}

type PublishConfig struct {
	Exchange    string
	RoutingKey  string
	MessageID   string
	ContentType string
	Body        []byte
	Headers     map[string]string
}

// Publish publishes a persistent message. Headers are sent as AMQP headers
// together with the trace context of ctx.
func (r *Client) Publish(ctx context.Context, cfg PublishConfig) error {
	headers := amqp.Table{}
	for k, v := range cfg.Headers {
		headers[k] = v
	}
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	for k, v := range carrier {
		headers[k] = v
	}

	r.pubMu.Lock()
	defer r.pubMu.Unlock()

	return r.channel.Publish(
		cfg.Exchange,
		cfg.RoutingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  cfg.ContentType,
			DeliveryMode: amqp.Persistent,
			MessageId:    cfg.MessageID,
			Headers:      headers,
			Body:         cfg.Body,
		},
	)
}

// ExtractTraceContext returns ctx carrying the trace context found in the
// AMQP headers of a delivery.
func ExtractTraceContext(ctx context.Context, headers amqp.Table) context.Context {
	carrier := propagation.MapCarrier{}
	for k, v := range headers {
		if s, ok := v.(string); ok {
			carrier[k] = s
		}
	}

	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
