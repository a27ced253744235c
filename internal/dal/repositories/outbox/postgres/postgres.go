package postgresrepo

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/service/models/outbox"
	"github.com/jackc/pgx/v5"
)

// outboxColumns lists the stored fields of an order event awaiting republish.
var outboxColumns = []string{
	"message_id",
	"exchange_name",
	"routing_key",
	"payload",
	"content_type",
	"headers",
	"retry_count",
	"max_retries",
	"last_error",
	"created_at",
	"updated_at",
	"next_retry_at",
}

// OutboxRepository keeps order lifecycle events that could not be published
// to RabbitMQ until the outbox worker delivers them.
type OutboxRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewOutboxRepository creates a new outbox repository.
func NewOutboxRepository(conn postgres.GenericConn) *OutboxRepository {
	return &OutboxRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert stores an undelivered order event together with its AMQP headers,
// so the trace context survives until the republish.
func (r *OutboxRepository) Insert(ctx context.Context, msg outbox.OutboxMessage) error {
	headers, err := json.Marshal(msg.Headers)
	if err != nil {
		return fmt.Errorf("failed to encode outbox headers: %w", err)
	}

	sql, args, err := r.sb.
		Insert("outbox").
		Columns(outboxColumns...).
		Values(
			msg.MessageID,
			msg.ExchangeName,
			msg.RoutingKey,
			msg.Payload,
			msg.ContentType,
			headers,
			msg.RetryCount,
			msg.MaxRetries,
			msg.LastError,
			msg.CreatedAt,
			msg.UpdatedAt,
			msg.NextRetryAt,
		).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build insert query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to store order event %s in outbox: %w", msg.MessageID, err)
	}

	return nil
}

// ListDue returns up to limit events whose next attempt is at or before now,
// oldest schedule first. Events that used up their retries are skipped.
func (r *OutboxRepository) ListDue(
	ctx context.Context,
	now time.Time,
	limit int,
) ([]outbox.OutboxMessage, error) {
	sql, args, err := r.sb.
		Select(append([]string{"id"}, outboxColumns...)...).
		From("outbox").
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
		return nil, fmt.Errorf("failed to query due order events: %w", err)
	}
	defer rows.Close()

	var messages []outbox.OutboxMessage
	for rows.Next() {
		msg, err := scanOutboxMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating due order events: %w", err)
	}

	return messages, nil
}

func scanOutboxMessage(rows pgx.Rows) (outbox.OutboxMessage, error) {
	var (
		msg     outbox.OutboxMessage
		headers []byte
	)

	if err := rows.Scan(
		&msg.ID,
		&msg.MessageID,
		&msg.ExchangeName,
		&msg.RoutingKey,
		&msg.Payload,
		&msg.ContentType,
		&headers,
		&msg.RetryCount,
		&msg.MaxRetries,
		&msg.LastError,
		&msg.CreatedAt,
		&msg.UpdatedAt,
		&msg.NextRetryAt,
	); err != nil {
		return outbox.OutboxMessage{}, fmt.Errorf("failed to scan outbox row: %w", err)
	}

	if len(headers) > 0 {
		if err := json.Unmarshal(headers, &msg.Headers); err != nil {
			return outbox.OutboxMessage{}, fmt.Errorf("failed to decode headers of event %s: %w", msg.MessageID, err)
		}
	}

	return msg, nil
}

// Delete drops an event once RabbitMQ has accepted it.
func (r *OutboxRepository) Delete(ctx context.Context, id int64) error {
	sql, args, err := r.sb.
		Delete("outbox").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build delete query: %w", err)
	}

	if _, err := r.conn.Exec(ctx, sql, args...); err != nil {
		return fmt.Errorf("failed to delete outbox row %d: %w", id, err)
	}

	return nil
}

// ScheduleRetry records a failed republish and the time of the next attempt.
func (r *OutboxRepository) ScheduleRetry(
	ctx context.Context,
	id int64,
	retryCount int,
	lastError string,
	nextRetryAt time.Time,
) error {
	sql, args, err := r.sb.
		Update("outbox").
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
		return fmt.Errorf("failed to reschedule outbox row %d: %w", id, err)
	}

	return nil
}
