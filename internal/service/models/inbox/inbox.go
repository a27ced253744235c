package inbox

import (
	"time"
)

// InboxMessage represents a consumed event that failed to be recorded.
type InboxMessage struct {
	ID          int64
	MessageID   string
	QueueName   string
	RoutingKey  string
	Payload     []byte
	ContentType string
	RetryCount  int
	MaxRetries  int
	LastError   string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	NextRetryAt time.Time
}
