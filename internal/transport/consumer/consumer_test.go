package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/rabbitmq"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/inbox"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/streadway/amqp"
)

type ackRecord struct {
	acked   bool
	nacked  bool
	requeue bool
}

type mockAcknowledger struct {
	mu      sync.Mutex
	records map[uint64]*ackRecord
}

func (m *mockAcknowledger) record(tag uint64) *ackRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.records == nil {
		m.records = make(map[uint64]*ackRecord)
	}
	if _, ok := m.records[tag]; !ok {
		m.records[tag] = &ackRecord{}
	}

	return m.records[tag]
}

func (m *mockAcknowledger) Ack(tag uint64, _ bool) error {
	r := m.record(tag)
	m.mu.Lock()
	defer m.mu.Unlock()
	r.acked = true

	return nil
}

func (m *mockAcknowledger) Nack(tag uint64, _ bool, requeue bool) error {
	r := m.record(tag)
	m.mu.Lock()
	defer m.mu.Unlock()
	r.nacked = true
	r.requeue = requeue

	return nil
}

func (m *mockAcknowledger) Reject(tag uint64, requeue bool) error {
	return m.Nack(tag, false, requeue)
}

type mockBroker struct {
	deliveries chan amqp.Delivery
	cfg        rabbitmq.ConsumeConfig
}

func (m *mockBroker) Consume(cfg rabbitmq.ConsumeConfig) (<-chan amqp.Delivery, error) {
	m.cfg = cfg

	return m.deliveries, nil
}

type mockService struct {
	mu        sync.Mutex
	failOrder int64
	recorded  []event.OrderEvent
}

func (m *mockService) RecordEvent(_ context.Context, evt event.OrderEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if evt.OrderID == m.failOrder {
		return errors.New("connection reset")
	}
	m.recorded = append(m.recorded, evt)

	return nil
}

type mockInbox struct {
	mu       sync.Mutex
	err      error
	messages []inbox.InboxMessage
}

func (m *mockInbox) Insert(_ context.Context, msg inbox.InboxMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.messages = append(m.messages, msg)

	return nil
}

func delivery(t *testing.T, ack amqp.Acknowledger, tag uint64, orderID int64) amqp.Delivery {
	t.Helper()

	evt := event.New(event.TypeOrderPlaced, order.Order{ID: orderID, Status: order.StatusPlaced}, 1, time.Now())
	body, err := json.Marshal(evt)
	if err != nil {
		t.Fatal(err)
	}

	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  tag,
		MessageId:    evt.ID.String(),
		RoutingKey:   string(evt.Type),
		ContentType:  "application/json",
		Body:         body,
	}
}

func runConsumer(t *testing.T, svc *mockService, ib *mockInbox, deliveries ...amqp.Delivery) *mockBroker {
	t.Helper()

	b := &mockBroker{deliveries: make(chan amqp.Delivery, len(deliveries))}
	for _, d := range deliveries {
		b.deliveries <- d
	}
	close(b.deliveries)

	c := newConsumer(b, svc, ib, "order.history")
	if err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	return b
}

func TestConsumer(t *testing.T) {
	ack := &mockAcknowledger{}
	svc := &mockService{failOrder: 2}
	ib := &mockInbox{}

	poison := amqp.Delivery{Acknowledger: ack, DeliveryTag: 3, Body: []byte("{broken")}

	b := runConsumer(t, svc, ib,
		delivery(t, ack, 1, 1),
		delivery(t, ack, 2, 2),
		poison,
	)

	if b.cfg.Queue != "order.history" || b.cfg.Prefetch == 0 {
		t.Errorf("unexpected consume config: %+v", b.cfg)
	}
	if len(svc.recorded) != 1 || svc.recorded[0].OrderID != 1 {
		t.Errorf("recorded = %+v", svc.recorded)
	}

	if r := ack.record(1); !r.acked {
		t.Error("recorded delivery must be acked")
	}
	if r := ack.record(2); !r.acked {
		t.Error("delivery parked in the inbox must be acked")
	}
	if r := ack.record(3); !r.nacked || r.requeue {
		t.Errorf("poison delivery must be rejected without requeue: %+v", r)
	}

	if len(ib.messages) != 1 {
		t.Fatalf("inbox = %+v", ib.messages)
	}
	if ib.messages[0].QueueName != "order.history" || ib.messages[0].LastError != "connection reset" {
		t.Errorf("unexpected inbox message: %+v", ib.messages[0])
	}
}

func TestConsumer_InboxUnavailable(t *testing.T) {
	ack := &mockAcknowledger{}

	runConsumer(t, &mockService{failOrder: 5}, &mockInbox{err: errors.New("db down")}, delivery(t, ack, 1, 5))

	if r := ack.record(1); !r.nacked || !r.requeue || r.acked {
		t.Errorf("delivery must be requeued: %+v", r)
	}
}
