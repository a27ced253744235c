package postgresrepo

import (
	"context"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var orderColumns = []string{
	"id",
	"user_id",
	"restaurant_id",
	"delivery_address_id",
	"status",
	"order_time",
	"total_price::text",
	"snapshot",
	"updated_at",
}

// OrderDal represents order data access layer model.
type OrderDal struct {
	Id                int64     `db:"id"`
	UserId            int64     `db:"user_id"`
	RestaurantId      int64     `db:"restaurant_id"`
	DeliveryAddressId int64     `db:"delivery_address_id"`
	Status            string    `db:"status"`
	OrderTime         time.Time `db:"order_time"`
	TotalPrice        string    `db:"total_price"`
	Snapshot          []byte    `db:"snapshot"`
	UpdatedAt         time.Time `db:"updated_at"`
}

// ToModel converts OrderDal to service layer Order model.
func (o *OrderDal) ToModel() (order.Order, error) {
	status, err := order.ParseStatus(o.Status)
	if err != nil {
		return order.Order{}, err
	}

	total, err := decimal.NewFromString(o.TotalPrice)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to parse total price %q: %w", o.TotalPrice, err)
	}

	return order.Order{
		ID:                o.Id,
		UserID:            o.UserId,
		RestaurantID:      o.RestaurantId,
		DeliveryAddressID: o.DeliveryAddressId,
		Status:            status,
		OrderTime:         o.OrderTime,
		TotalPrice:        total,
		RawSnapshot:       o.Snapshot,
		UpdatedAt:         o.UpdatedAt,
	}, nil
}

// OrderDalFromModel converts service layer Order model to OrderDal.
func OrderDalFromModel(o order.Order) OrderDal {
	return OrderDal{
		Id:                o.ID,
		UserId:            o.UserID,
		RestaurantId:      o.RestaurantID,
		DeliveryAddressId: o.DeliveryAddressID,
		Status:            o.Status.String(),
		OrderTime:         o.OrderTime,
		TotalPrice:        o.TotalPrice.String(),
		Snapshot:          o.RawSnapshot,
		UpdatedAt:         o.UpdatedAt,
	}
}

func (o *OrderDal) scanTargets() []any {
	return []any{
		&o.Id,
		&o.UserId,
		&o.RestaurantId,
		&o.DeliveryAddressId,
		&o.Status,
		&o.OrderTime,
		&o.TotalPrice,
		&o.Snapshot,
		&o.UpdatedAt,
	}
}

// OrderRepository represents a Postgres order repository.
type OrderRepository struct {
	conn postgres.GenericConn
	sb   sq.StatementBuilderType
}

// NewOrderRepository creates a new Postgres order repository.
func NewOrderRepository(conn postgres.GenericConn) *OrderRepository {
	return &OrderRepository{
		conn: conn,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

// Insert inserts a new order and returns it with its id. The snapshot is
// stored as raw bytes and never rewritten.
func (r *OrderRepository) Insert(ctx context.Context, ord order.Order) (order.Order, error) {
	dal := OrderDalFromModel(ord)

	sql, args, err := r.sb.
		Insert("orders").
		Columns(
			"user_id",
			"restaurant_id",
			"delivery_address_id",
			"status",
			"order_time",
			"total_price",
			"snapshot",
			"updated_at",
		).
		Values(
			dal.UserId,
			dal.RestaurantId,
			dal.DeliveryAddressId,
			dal.Status,
			dal.OrderTime,
			sq.Expr("?::numeric", dal.TotalPrice),
			dal.Snapshot,
			dal.UpdatedAt,
		).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build insert query: %w", err)
	}

	if err := r.conn.QueryRow(ctx, sql, args...).Scan(&ord.ID); err != nil {
		return order.Order{}, fmt.Errorf("failed to insert order: %w", err)
	}

	return ord, nil
}

// GetByID returns the order with the given id.
func (r *OrderRepository) GetByID(ctx context.Context, id int64) (order.Order, error) {
	sql, args, err := r.sb.
		Select(orderColumns...).
		From("orders").
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to build query: %w", err)
	}

	var dal OrderDal
	if err := r.conn.QueryRow(ctx, sql, args...).Scan(dal.scanTargets()...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return order.Order{}, fmt.Errorf("%w: order %d", apperr.ErrOrderNotFound, id)
		}

		return order.Order{}, fmt.Errorf("failed to query order: %w", err)
	}

	return dal.ToModel()
}

// Query retrieves orders based on filter criteria, newest first.
func (r *OrderRepository) Query(
	ctx context.Context,
	filter *order.QueryOrdersModel,
) ([]order.Order, error) {
	query := r.sb.
		Select(orderColumns...).
		From("orders").
		OrderBy("order_time DESC", "id DESC")

	if len(filter.Ids) > 0 {
		query = query.Where(sq.Eq{"id": filter.Ids})
	}

	if len(filter.UserIds) > 0 {
		query = query.Where(sq.Eq{"user_id": filter.UserIds})
	}

	if len(filter.RestaurantIds) > 0 {
		query = query.Where(sq.Eq{"restaurant_id": filter.RestaurantIds})
	}

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = s.String()
		}
		query = query.Where(sq.Eq{"status": statuses})
	}

	if filter.Limit > 0 {
		query = query.Limit(uint64(filter.Limit))
	}

	if filter.Offset > 0 {
		query = query.Offset(uint64(filter.Offset))
	}

	sql, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build query: %w", err)
	}

	rows, err := r.conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	result := make([]order.Order, 0)
	for rows.Next() {
		var dal OrderDal
		if err := rows.Scan(dal.scanTargets()...); err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}

		ord, err := dal.ToModel()
		if err != nil {
			return nil, err
		}
		result = append(result, ord)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}

	return result, nil
}

// UpdateStatusGuard moves the order from one status to another. The update
// only matches while the order is still in from, so concurrent transitions
// cannot both succeed.
func (r *OrderRepository) UpdateStatusGuard(
	ctx context.Context,
	id int64,
	from, to order.Status,
	at time.Time,
) (int64, error) {
	sql, args, err := r.sb.
		Update("orders").
		Set("status", to.String()).
		Set("updated_at", at).
		Where(sq.Eq{"id": id, "status": from.String()}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build update query: %w", err)
	}

	tag, err := r.conn.Exec(ctx, sql, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to update order status: %w", err)
	}

	return tag.RowsAffected(), nil
}
