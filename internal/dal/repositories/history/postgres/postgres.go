package postgresrepo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
)

// HistoryRepository implements the order status history repository for PostgreSQL.
type HistoryRepository struct {
	conn postgres.GenericConn
}

// NewHistoryRepository creates a new history repository.
func NewHistoryRepository(conn postgres.GenericConn) *HistoryRepository {
	return &HistoryRepository{
		conn: conn,
	}
}

// Insert records a status change. Entries are keyed by event id, so a
// redelivered event is stored once.
func (r *HistoryRepository) Insert(ctx context.Context, entry history.Entry) (bool, error) {
	query, args, err := sq.Insert("order_status_history").
		Columns(
			"event_id",
			"order_id",
			"user_id",
			"actor_id",
			"status",
			"occurred_at",
			"recorded_at",
		).
		Values(
			entry.EventID.String(),
			entry.OrderID,
			entry.UserID,
			entry.ActorID,
			entry.Status.String(),
			entry.OccurredAt,
			entry.RecordedAt,
		).
		Suffix("ON CONFLICT (event_id) DO NOTHING").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("failed to build history insert query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to insert history entry: %w", err)
	}

	return tag.RowsAffected() > 0, nil
}

// ListByOrder returns the recorded status changes of an order, oldest first.
func (r *HistoryRepository) ListByOrder(ctx context.Context, orderID int64) ([]history.Entry, error) {
	query, args, err := sq.Select(
		"id",
		"event_id",
		"order_id",
		"user_id",
		"actor_id",
		"status",
		"occurred_at",
		"recorded_at",
	).
		From("order_status_history").
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("occurred_at ASC", "id ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build history select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query history: %w", err)
	}
	defer rows.Close()

	entries := make([]history.Entry, 0)
	for rows.Next() {
		var entry history.Entry
		var status string
		err := rows.Scan(
			&entry.ID,
			&entry.EventID,
			&entry.OrderID,
			&entry.UserID,
			&entry.ActorID,
			&status,
			&entry.OccurredAt,
			&entry.RecordedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history entry: %w", err)
		}

		entry.Status, err = order.ParseStatus(status)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating history: %w", err)
	}

	return entries, nil
}
