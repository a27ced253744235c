package ordersvc

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

const enrichConcurrency = 8

// GetOrder returns an order with its restaurant name and delivery address.
func (s *OrderService) GetOrder(ctx context.Context, orderID int64) (order.View, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.GetOrder")
	defer span.End()

	ord, err := s.loadOrder(ctx, orderID)
	if err != nil {
		return order.View{}, err
	}

	views, err := s.enrich(ctx, []order.Order{ord})
	if err != nil {
		return order.View{}, err
	}

	return views[0], nil
}

// ListOrders returns the orders matching the filter, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.View, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.ListOrders")
	defer span.End()

	orders, err := s.newUOW().OrderRepository().Query(ctx, &filter)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}

	return s.enrich(ctx, orders)
}

// History returns the recorded status changes of an order.
func (s *OrderService) History(ctx context.Context, orderID int64) ([]history.Entry, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "OrderService.History")
	defer span.End()

	if s.historyRepo == nil {
		return nil, errors.New("order history is not configured")
	}

	if _, err := s.loadOrder(ctx, orderID); err != nil {
		return nil, err
	}

	return s.historyRepo.ListByOrder(ctx, orderID)
}

// enrich resolves display data for the orders. Each distinct restaurant and
// address is fetched once. Display data is best effort: a lookup that fails
// leaves the field empty.
func (s *OrderService) enrich(ctx context.Context, orders []order.Order) ([]order.View, error) {
	restaurantIDs := distinct(orders, func(o order.Order) int64 { return o.RestaurantID })
	addressIDs := distinct(orders, func(o order.Order) int64 { return o.DeliveryAddressID })

	restaurantNames := make(map[int64]string, len(restaurantIDs))
	addresses := make(map[int64]account.Address, len(addressIDs))

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(enrichConcurrency)

	for _, id := range restaurantIDs {
		id := id
		g.Go(func() error {
			r, err := s.gateways.Restaurant(gctx, id)
			if err != nil {
				slog.WarnContext(gctx, "Failed to resolve restaurant for display", "restaurant_id", id, "error", err)

				return nil
			}
			mu.Lock()
			restaurantNames[id] = r.Name
			mu.Unlock()

			return nil
		})
	}

	for _, id := range addressIDs {
		id := id
		g.Go(func() error {
			a, err := s.gateways.Address(gctx, id)
			if err != nil {
				slog.WarnContext(gctx, "Failed to resolve address for display", "address_id", id, "error", err)

				return nil
			}
			mu.Lock()
			addresses[id] = a
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]order.View, 0, len(orders))
	for _, o := range orders {
		lines, err := o.Snapshot()
		if err != nil {
			return nil, err
		}
		views = append(views, order.View{
			Order:           o,
			Lines:           lines,
			RestaurantName:  restaurantNames[o.RestaurantID],
			DeliveryAddress: addresses[o.DeliveryAddressID],
		})
	}

	return views, nil
}

func distinct(orders []order.Order, key func(order.Order) int64) []int64 {
	seen := make(map[int64]struct{}, len(orders))
	ids := make([]int64, 0, len(orders))
	for _, o := range orders {
		id := key(o)
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}

	return ids
}
