package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/service/models/outbox"
	"github.com/shopspring/decimal"
)

type mockPublisher struct {
	mu        sync.Mutex
	err       error
	published []rabbitmq.PublishConfig
}

func (m *mockPublisher) Publish(_ context.Context, cfg rabbitmq.PublishConfig) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, cfg)

	return nil
}

type mockOutbox struct {
	mu       sync.Mutex
	err      error
	messages []outbox.OutboxMessage
}

func (m *mockOutbox) Insert(_ context.Context, msg outbox.OutboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)

	return nil
}

func (m *mockOutbox) ListDue(context.Context, time.Time, int) ([]outbox.OutboxMessage, error) {
	return nil, nil
}

func (m *mockOutbox) Delete(context.Context, int64) error {
	return nil
}

func (m *mockOutbox) ScheduleRetry(context.Context, int64, int, string, time.Time) error {
	return nil
}

func newEvent() event.OrderEvent {
	ord := order.Order{
		ID:           7,
		UserID:       1,
		RestaurantID: 2,
		Status:       order.StatusPlaced,
		TotalPrice:   decimal.RequireFromString("40.00"),
	}

	return event.New(event.TypeOrderPlaced, ord, 1, time.Now())
}

func TestPublish(t *testing.T) {
	pub := &mockPublisher{}
	box := &mockOutbox{}
	repo := NewEventRabbitMQRepository(pub, box, "orders", 5)
	evt := newEvent()

	if err := repo.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(pub.published) != 1 || len(box.messages) != 0 {
		t.Fatalf("published %d, outbox %d", len(pub.published), len(box.messages))
	}
	cfg := pub.published[0]
	if cfg.Exchange != "orders" || cfg.RoutingKey != "order.placed" || cfg.MessageID != evt.ID.String() {
		t.Errorf("unexpected publish config %+v", cfg)
	}

	var decoded event.OrderEvent
	if err := json.Unmarshal(cfg.Body, &decoded); err != nil {
		t.Fatalf("failed to decode body: %v", err)
	}
	if decoded.OrderID != 7 || !decoded.TotalPrice.Equal(decimal.NewFromInt(40)) {
		t.Errorf("unexpected event %+v", decoded)
	}
}

func TestPublishFallsBackToOutbox(t *testing.T) {
	pub := &mockPublisher{err: errors.New("channel closed")}
	box := &mockOutbox{}
	repo := NewEventRabbitMQRepository(pub, box, "orders", 5)
	evt := newEvent()

	if err := repo.Publish(context.Background(), evt); err != nil {
		t.Fatalf("Publish() error = %v", err)
	}

	if len(box.messages) != 1 {
		t.Fatalf("expected 1 outbox message, got %d", len(box.messages))
	}
	msg := box.messages[0]
	if msg.MessageID != evt.ID.String() || msg.RoutingKey != "order.placed" || msg.MaxRetries != 5 {
		t.Errorf("unexpected outbox message %+v", msg)
	}
	if msg.LastError != "channel closed" || !msg.NextRetryAt.After(msg.CreatedAt) {
		t.Errorf("unexpected retry info %+v", msg)
	}
}

func TestPublishFailsWhenOutboxFails(t *testing.T) {
	pub := &mockPublisher{err: errors.New("channel closed")}
	box := &mockOutbox{err: errors.New("db down")}
	repo := NewEventRabbitMQRepository(pub, box, "orders", 5)

	if err := repo.Publish(context.Background(), newEvent()); err == nil {
		t.Fatal("expected error")
	}
}
