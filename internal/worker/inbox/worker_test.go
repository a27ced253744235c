package inbox

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/inbox"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
)

type mockInboxRepo struct {
	mu       sync.Mutex
	pending  []inbox.InboxMessage
	deleted  []int64
	retried  map[int64]int
	listedAt time.Time
}

func (m *mockInboxRepo) Insert(context.Context, inbox.InboxMessage) error {
	return nil
}

func (m *mockInboxRepo) ListDue(_ context.Context, now time.Time, _ int) ([]inbox.InboxMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listedAt = now

	return m.pending, nil
}

func (m *mockInboxRepo) Delete(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, id)

	return nil
}

func (m *mockInboxRepo) ScheduleRetry(_ context.Context, id int64, retryCount int, _ string, _ time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.retried == nil {
		m.retried = make(map[int64]int)
	}
	m.retried[id] = retryCount

	return nil
}

type mockService struct {
	failOrder int64
	recorded  []event.OrderEvent
}

func (m *mockService) RecordEvent(_ context.Context, evt event.OrderEvent) error {
	if evt.OrderID == m.failOrder {
		return errors.New("deadlock detected")
	}
	m.recorded = append(m.recorded, evt)

	return nil
}

func payload(t *testing.T, orderID int64) []byte {
	t.Helper()

	body, err := json.Marshal(event.New(event.TypeOrderPlaced, order.Order{ID: orderID, Status: order.StatusPlaced}, 1, time.Now()))
	if err != nil {
		t.Fatal(err)
	}

	return body
}

func TestProcessMessages(t *testing.T) {
	repo := &mockInboxRepo{
		pending: []inbox.InboxMessage{
			{ID: 1, Payload: payload(t, 10), MaxRetries: 5},
			{ID: 2, Payload: payload(t, 20), RetryCount: 2, MaxRetries: 5},
			{ID: 3, Payload: []byte("not json"), MaxRetries: 5},
		},
	}
	svc := &mockService{failOrder: 20}
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	w := NewWorker(repo, svc, time.Second, 10)
	w.now = func() time.Time { return now }
	w.processMessages(context.Background())

	if !repo.listedAt.Equal(now) {
		t.Errorf("listed due messages at %v, want %v", repo.listedAt, now)
	}

	if len(svc.recorded) != 1 || svc.recorded[0].OrderID != 10 {
		t.Errorf("recorded = %+v", svc.recorded)
	}
	if len(repo.deleted) != 2 || repo.deleted[0] != 1 || repo.deleted[1] != 3 {
		t.Errorf("deleted = %v, want [1 3]", repo.deleted)
	}
	if repo.retried[2] != 3 {
		t.Errorf("retry count of message 2 = %d, want 3", repo.retried[2])
	}
}
