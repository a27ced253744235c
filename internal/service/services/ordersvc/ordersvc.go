package ordersvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/ieventpublisher"
	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/ihistoryrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/iorderrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/dal/uow"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/event"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/service/models/restaurant"
	"github.com/shopspring/decimal"
)

// OrderService places, cancels and completes orders. The wallet, addresses
// and restaurants are owned by remote services and reached through the
// gateways; there is no transaction spanning them and the local stores.
type OrderService struct {
	newUOW      func() unitOfWork
	gateways    gateways
	publisher   ieventpublisher.IEventPublisher
	historyRepo ihistoryrepo.IHistoryRepository
	now         func() time.Time
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CartRepository() icartrepo.ICartRepository
	OrderRepository() iorderrepo.IOrderRepository
}

type gateways interface {
	RequireRole(ctx context.Context, userID int64, role account.Role) (account.User, error)
	Addresses(ctx context.Context, userID int64) ([]account.Address, error)
	Address(ctx context.Context, addressID int64) (account.Address, error)
	AdjustWallet(ctx context.Context, userID int64, amount decimal.Decimal) error
	Restaurant(ctx context.Context, restaurantID int64) (restaurant.Restaurant, error)
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("ordersvc: a unit of work factory is required")
	}
	if s.gateways == nil {
		panic("ordersvc: gateways are required")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory sets the factory of units of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// WithGateways sets the remote gateways.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithGateways(g gateways) option {
	return func(s *OrderService) {
		s.gateways = g
	}
}

// WithEventPublisher sets the publisher of order lifecycle events.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithEventPublisher(publisher ieventpublisher.IEventPublisher) option {
	return func(s *OrderService) {
		s.publisher = publisher
	}
}

// WithHistoryRepository sets the repository of recorded status changes.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithHistoryRepository(repo ihistoryrepo.IHistoryRepository) option {
	return func(s *OrderService) {
		s.historyRepo = repo
	}
}

// WithClock sets the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *OrderService) {
		s.now = now
	}
}

// publish sends a lifecycle event. Failures are logged and never fail the
// operation that produced the event.
func (s *OrderService) publish(ctx context.Context, eventType event.Type, ord order.Order, actorID int64) {
	if s.publisher == nil {
		return
	}

	evt := event.New(eventType, ord, actorID, s.now())
	if err := s.publisher.Publish(ctx, evt); err != nil {
		slog.ErrorContext(ctx, "Failed to publish order event",
			"event_id", evt.ID,
			"type", eventType,
			"order_id", ord.ID,
			"error", err,
		)
	}
}

func (s *OrderService) loadOrder(ctx context.Context, orderID int64) (order.Order, error) {
	ord, err := s.newUOW().OrderRepository().GetByID(ctx, orderID)
	if err != nil {
		return order.Order{}, fmt.Errorf("failed to load order: %w", err)
	}

	return ord, nil
}
