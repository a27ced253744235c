package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Type is the routing key of an order lifecycle event.
type Type string

const (
	TypeOrderPlaced    Type = "order.placed"
	TypeOrderCancelled Type = "order.cancelled"
	TypeOrderCompleted Type = "order.completed"
)

// OrderEvent is published after every successful order state change.
type OrderEvent struct {
	ID           uuid.UUID       `json:"id"`
	Type         Type            `json:"type"`
	OrderID      int64           `json:"orderId"`
	UserID       int64           `json:"userId"`
	RestaurantID int64           `json:"restaurantId"`
	ActorID      int64           `json:"actorId"`
	Status       order.Status    `json:"status"`
	TotalPrice   decimal.Decimal `json:"totalPrice"`
	OccurredAt   time.Time       `json:"occurredAt"`
}

// New builds an event describing ord after a transition made by actorID.
func New(eventType Type, ord order.Order, actorID int64, occurredAt time.Time) OrderEvent {
	return OrderEvent{
		ID:           uuid.New(),
		Type:         eventType,
		OrderID:      ord.ID,
		UserID:       ord.UserID,
		RestaurantID: ord.RestaurantID,
		ActorID:      actorID,
		Status:       ord.Status,
		TotalPrice:   ord.TotalPrice,
		OccurredAt:   occurredAt,
	}
}

// Decode parses an event received from the broker.
func Decode(body []byte) (OrderEvent, error) {
	var evt OrderEvent
	if err := json.Unmarshal(body, &evt); err != nil {
		return OrderEvent{}, fmt.Errorf("failed to decode order event: %w", err)
	}
	if evt.ID == uuid.Nil || evt.OrderID == 0 {
		return OrderEvent{}, fmt.Errorf("failed to decode order event: missing id or order id")
	}

	return evt, nil
}
