package outbox

import (
	"time"
)

// OutboxMessage represents an event that failed to be published to RabbitMQ.
type OutboxMessage struct {
	ID           int64
	MessageID    string
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	Headers      map[string]string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
