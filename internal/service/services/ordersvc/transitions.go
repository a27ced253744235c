package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// CancelOrder cancels a placed order within the cancellation window and
// refunds its total to the user's wallet. The deadline is evaluated against
// the current time; nothing expires orders in the background.
func (s *OrderService) CancelOrder(ctx context.Context, orderID int64) (order.Ack, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CancelOrder")
	defer span.End()
	span.SetAttributes(attribute.Int64("order.id", orderID))

	ctx = logger.WithAttrs(ctx, slog.Int64("order_id", orderID))

	ord, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return order.Ack{}, err
	}

	if ord.Status != order.StatusPlaced {
		return order.Ack{}, fmt.Errorf("%w: order %d is %s", apperr.ErrInvalidTransition, orderID, ord.Status)
	}

	now := s.now()
	if now.After(ord.CancellationDeadline()) {
		return order.Ack{}, fmt.Errorf("%w: order %d was placed at %s",
			apperr.ErrCancellationWindowExpired, orderID, ord.OrderTime.Format("2006-01-02T15:04:05Z07:00"))
	}

	if err := s.gateways.AdjustWallet(ctx, ord.UserID, ord.TotalPrice); err != nil {
		return order.Ack{}, fmt.Errorf("failed to refund wallet: %w", err)
	}

	if err := s.transition(ctx, &ord, order.StatusCancelled); err != nil {
		slog.ErrorContext(ctx, "Wallet refunded but order was not cancelled",
			"user_id", ord.UserID,
			"amount", ord.TotalPrice.StringFixed(2),
			"error", err,
		)

		return order.Ack{}, err
	}

	slog.InfoContext(ctx, "Order cancelled", "refund", ord.TotalPrice.StringFixed(2))
	s.publish(ctx, event.TypeOrderCancelled, ord, ord.UserID)

	return order.Ack{
		OrderID:    ord.ID,
		Status:     ord.Status,
		TotalPrice: ord.TotalPrice,
		Message:    "order cancelled, wallet refunded",
	}, nil
}

// CompleteOrder marks a placed order as completed. The acting user must have
// the RESTAURANT_OWNER role; ownership of the order's restaurant is not
// checked.
func (s *OrderService) CompleteOrder(ctx context.Context, orderID, actingUserID int64) (order.Ack, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.CompleteOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("order.id", orderID),
		attribute.Int64("actor.id", actingUserID),
	)

	ctx = logger.WithAttrs(ctx,
		slog.Int64("order_id", orderID),
		slog.Int64("actor_id", actingUserID),
	)

	ord, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return order.Ack{}, err
	}

	if _, err := s.gateways.RequireRole(ctx, actingUserID, account.RoleRestaurantOwner); err != nil {
		if errors.Is(err, apperr.ErrCapabilityDenied) {
			return order.Ack{}, fmt.Errorf("%w: %v", apperr.ErrNotAuthorized, err)
		}

		return order.Ack{}, err
	}

	if ord.Status != order.StatusPlaced {
		return order.Ack{}, fmt.Errorf("%w: order %d is %s", apperr.ErrInvalidTransition, orderID, ord.Status)
	}

	if err := s.transition(ctx, &ord, order.StatusCompleted); err != nil {
		return order.Ack{}, err
	}

	slog.InfoContext(ctx, "Order completed")
	s.publish(ctx, event.TypeOrderCompleted, ord, actingUserID)

	return order.Ack{
		OrderID:    ord.ID,
		Status:     ord.Status,
		TotalPrice: ord.TotalPrice,
		Message:    "order completed",
	}, nil
}

// transition moves a PLACED order to status. The update is guarded by the
// current status, so of two concurrent transitions only one succeeds.
func (s *OrderService) transition(ctx context.Context, ord *order.Order, status order.Status) error {
	now := s.now()

	affected, err := s.newUOW().OrderRepository().UpdateStatusGuard(ctx, ord.ID, order.StatusPlaced, status, now)
	if err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: order %d is no longer %s", apperr.ErrInvalidTransition, ord.ID, order.StatusPlaced)
	}

	ord.Status = status
	ord.UpdatedAt = now

	return nil
}
