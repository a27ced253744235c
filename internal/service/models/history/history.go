package history

import (
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/google/uuid"
)

// Entry is one recorded status change of an order.
type Entry struct {
	ID         int64        `json:"id"`
	EventID    uuid.UUID    `json:"eventId"`
	OrderID    int64        `json:"orderId"`
	UserID     int64        `json:"userId"`
	ActorID    int64        `json:"actorId"`
	Status     order.Status `json:"status"`
	OccurredAt time.Time    `json:"occurredAt"`
	RecordedAt time.Time    `json:"recordedAt"`
}
