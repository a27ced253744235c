package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/pkg/logger"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// PlaceOrder turns the user's cart for a restaurant into an order.
//
// Every check runs before the wallet is debited, so a failed check leaves
// no external state changed. The debit and the local write are not atomic:
// if persisting the order fails after the debit, the debit stands and the
// failure is logged for reconciliation. Concurrent placements for the same
// cart may both observe it before either clears it.
func (s *OrderService) PlaceOrder(ctx context.Context, model order.PlaceOrderModel) (order.Ack, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", model.UserID),
		attribute.Int64("restaurant.id", model.RestaurantID),
	)

	ctx = logger.WithAttrs(ctx,
		slog.Int64("user_id", model.UserID),
		slog.Int64("restaurant_id", model.RestaurantID),
	)

	user, err := s.gateways.RequireRole(ctx, model.UserID, account.RoleCustomer)
	if err != nil {
		if errors.Is(err, apperr.ErrCapabilityDenied) {
			return order.Ack{}, fmt.Errorf("%w: %v", apperr.ErrCustomerNotFound, err)
		}

		return order.Ack{}, err
	}

	if err := s.checkAddress(ctx, model.UserID, model.DeliveryAddressID); err != nil {
		return order.Ack{}, err
	}

	lines, err := s.newUOW().CartRepository().Query(ctx, &cartline.QueryCartLinesModel{
		UserIds:       []int64{model.UserID},
		RestaurantIds: []int64{model.RestaurantID},
	})
	if err != nil {
		return order.Ack{}, fmt.Errorf("failed to load cart: %w", err)
	}
	if len(lines) == 0 {
		return order.Ack{}, fmt.Errorf("%w: user %d has no items from restaurant %d",
			apperr.ErrCartNotFound, model.UserID, model.RestaurantID)
	}

	snapshot := order.NewSnapshot(lines)

	mismatches := order.Reconcile(model.ClaimedLines, snapshot)
	if len(mismatches) > 0 {
		slog.WarnContext(ctx, "Claimed cart does not match the stored cart, billing the stored cart",
			"mismatches", mismatches,
		)
	}

	total := snapshot.Total()
	if user.WalletBalance.LessThan(total) {
		return order.Ack{}, fmt.Errorf("%w: balance %s, total %s",
			apperr.ErrInsufficientBalance, user.WalletBalance.StringFixed(2), total.StringFixed(2))
	}

	rawSnapshot, err := snapshot.Marshal()
	if err != nil {
		return order.Ack{}, err
	}

	if err := s.gateways.AdjustWallet(ctx, model.UserID, total.Neg()); err != nil {
		return order.Ack{}, fmt.Errorf("failed to debit wallet: %w", err)
	}

	now := s.now()
	ord, err := s.persistPlacement(ctx, order.Order{
		UserID:            model.UserID,
		RestaurantID:      model.RestaurantID,
		DeliveryAddressID: model.DeliveryAddressID,
		Status:            order.StatusPlaced,
		OrderTime:         now,
		TotalPrice:        total,
		RawSnapshot:       rawSnapshot,
		UpdatedAt:         now,
	})
	if err != nil {
		slog.ErrorContext(ctx, "Wallet debited but order was not persisted",
			"amount", total.StringFixed(2),
			"error", err,
		)

		return order.Ack{}, err
	}

	slog.InfoContext(ctx, "Order placed", "order_id", ord.ID, "total", total.StringFixed(2))
	s.publish(ctx, event.TypeOrderPlaced, ord, model.UserID)

	return order.Ack{
		OrderID:    ord.ID,
		Status:     ord.Status,
		TotalPrice: ord.TotalPrice,
		Mismatches: mismatches,
		Message:    "order placed",
	}, nil
}

func (s *OrderService) checkAddress(ctx context.Context, userID, addressID int64) error {
	addresses, err := s.gateways.Addresses(ctx, userID)
	if err != nil {
		return err
	}

	for _, a := range addresses {
		if a.ID == addressID {
			return nil
		}
	}

	return fmt.Errorf("%w: address %d is not an address of user %d", apperr.ErrAddressNotFound, addressID, userID)
}

// persistPlacement writes the order and clears the cart it came from in one
// local transaction.
func (s *OrderService) persistPlacement(ctx context.Context, ord order.Order) (order.Order, error) {
	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return order.Order{}, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to rollback placement", "error", err)
		}
	}()

	ord, err := work.OrderRepository().Insert(ctx, ord)
	if err != nil {
		return order.Order{}, err
	}

	if _, err := work.CartRepository().DeleteByUserRestaurant(ctx, ord.UserID, ord.RestaurantID); err != nil {
		return order.Order{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return order.Order{}, fmt.Errorf("failed to commit placement: %w", err)
	}

	return ord, nil
}
