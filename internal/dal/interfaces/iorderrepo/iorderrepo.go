package iorderrepo

import (
	"context"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
)

// IOrderRepository is an interface for order postgres repository.
type IOrderRepository interface {
	Insert(ctx context.Context, ord order.Order) (order.Order, error)
	GetByID(ctx context.Context, id int64) (order.Order, error)
	Query(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error)

	// UpdateStatusGuard moves the order from one status to another and
	// returns the number of affected rows; 0 means the order was not in from.
	UpdateStatusGuard(
		ctx context.Context,
		id int64,
		from, to order.Status,
		at time.Time,
	) (int64, error)
}
