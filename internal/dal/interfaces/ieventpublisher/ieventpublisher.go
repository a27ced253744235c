package ieventpublisher

import (
	"context"

	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
)

// IEventPublisher publishes order lifecycle events.
type IEventPublisher interface {
	Publish(ctx context.Context, evt event.OrderEvent) error
}
