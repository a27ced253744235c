package postgresrepo

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/service/models/inbox"
	"github.com/jackc/pgx/v5"
)

// inboxColumns lists the stored fields of a parked order event delivery.
var inboxColumns = []string{
	"message_id",
	"queue_name",
	"routing_key",
	"payload",
	"content_type",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// InboxRepository stores order events the audit consumer failed to record.
type InboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewInboxRepository creates a new inbox repository.
func NewInboxRepository(conn postgres.GenericConn) *InboxRepository {
	return &InboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert parks a consumed event in the inbox. A redelivered event that is
// already parked is ignored.
func (r *InboxRepository) Insert(ctx context.Context, msg inbox.InboxMessage) error {
	sql, args, err := r.sb.
		Insert("inbox").
		Columns(inboxColumns...).
		Values(
			msg.MessageID,
			msg.QueueName,
			msg.RoutingKey,
			msg.Payload,
			msg.ContentType,
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		Suffix("ON CONFLICT (message_id) DO NOTHING").
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to park order event %s: %w", msg.MessageID, err)
	}

	return nil
}

// ListDue returns up to limit parked events whose next attempt is at or
// before now. Events that used up their retries stay parked and are skipped.
func (r *InboxRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]inbox.InboxMessage, error) {
	sql, args, err := r.sb.
		Select(append([]string{"id"}, inboxColumns...)...).
		From("inbox").
		Where(sq.LtOrEq{"next_retry_at": now}).
		Where("retry_count < max_retries").
		OrderBy("next_retry_at").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query parked order events: %w", err)
	}
	defer rows.Close()

	var messages []inbox.InboxMessage
	for rows.Next() {
		msg, err := scanInboxMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating parked order events: %w", err)
	}

	return messages, nil
}

func scanInboxMessage(rows pgx.Rows) (inbox.InboxMessage, error) {
	var msg inbox.InboxMessage
	if err := rows.Scan(
		&msg.ID,
		&msg.MessageID,
		&msg.QueueName,
		&msg.RoutingKey,
		&msg.Payload,
		&msg.ContentType,
		&msg.RetryCount,
		&msg.MaxRetries,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.NextRetryAt,
	); err != nil {
		return inbox.InboxMessage{}, fmt.Errorf("failed to scan inbox row: %w", err)
	}

	return msg, nil
}

// Delete removes a parked event once its history entry is recorded, or when
// the payload cannot be decoded at all.
func (r *InboxRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.
		Delete("inbox").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete inbox row %d: %w", id, err)
	}

	return nil
}

// ScheduleRetry records a failed history write and the time of the next
// attempt.
func (r *InboxRepository) ScheduleRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	sql, args, err := r.sb.
		Update("inbox").
		Set("retry_count", retryCount).
		Set("last_error", lastError).
		Set("next_retry_at", nextRetryAt).
		Set("updated_at", sq.Expr("NOW()")).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to reschedule inbox row %d: %w", id, err)
	}

	return nil
}
