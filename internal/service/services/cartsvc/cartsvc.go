package cartsvc

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/interfaces/icartrepo"
	"github.com/corray333/backend-labs/ordering/internal/dal/postgres"
	"github.com/corray333/backend-labs/ordering/internal/dal/uow"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"go.opentelemetry.io/otel"
)

// CartService maintains one cart line per (user, food item, restaurant) and
// keeps line totals consistent under quantity changes.
type CartService struct {
	newUOW func() unitOfWork
	now    func() time.Time
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	CartRepository() icartrepo.ICartRepository
}

// option is a function that configures the CartService.
type option func(*CartService)

// MustNewCartService creates a new CartService.
func MustNewCartService(opts ...option) *CartService {
	s := &CartService{
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("cartsvc: a unit of work factory is required")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the CartService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *CartService) {
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory sets the factory of units of work.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *CartService) {
		s.newUOW = factory
	}
}

// WithClock sets the time source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithClock(now func() time.Time) option {
	return func(s *CartService) {
		s.now = now
	}
}

// AddItem adds one unit of a food item. An existing line for the same tuple
// is treated as a +1 adjustment; otherwise a line with quantity 1 is created.
func (s *CartService) AddItem(
	ctx context.Context,
	model cartline.AddItemModel,
) (cartline.AdjustResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "CartService.AddItem")
	defer span.End()

	if model.UnitPrice.IsNegative() {
		return cartline.AdjustResult{}, fmt.Errorf("%w: unit price must not be negative", apperr.ErrInvalidArgument)
	}
	if !model.UnitPrice.Equal(model.UnitPrice.Truncate(2)) {
		return cartline.AdjustResult{}, fmt.Errorf("%w: unit price has more than 2 decimal places", apperr.ErrInvalidArgument)
	}
	if model.UnitPrice.GreaterThan(cartline.MaxLineTotal) {
		return cartline.AdjustResult{}, fmt.Errorf("%w: unit price is too large", apperr.ErrInvalidArgument)
	}

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return cartline.AdjustResult{}, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to rollback cart transaction", "error", err)
		}
	}()

	repo := work.CartRepository()
	now := s.now()

	existing, found, err := repo.FindByTuple(ctx, model.UserID, model.FoodItemID, model.RestaurantID)
	if err != nil {
		return cartline.AdjustResult{}, err
	}

	var result cartline.AdjustResult
	if found {
		result, err = s.applyAdjust(ctx, repo, existing, 1, now)
		if err != nil {
			return cartline.AdjustResult{}, err
		}
	} else {
		line, err := repo.Insert(ctx, cartline.CartLine{
			UserID:         model.UserID,
			FoodItemID:     model.FoodItemID,
			RestaurantID:   model.RestaurantID,
			Quantity:       1,
			LineTotalPrice: model.UnitPrice,
			CreatedAt:      now,
			UpdatedAt:      now,
		})
		if err != nil {
			return cartline.AdjustResult{}, err
		}
		result = cartline.AdjustResult{Outcome: cartline.OutcomeAdded, Line: line}
	}

	if err := work.Commit(ctx); err != nil {
		return cartline.AdjustResult{}, fmt.Errorf("failed to commit cart change: %w", err)
	}

	return result, nil
}

// AdjustQuantity changes the quantity of a line by delta. Reaching 0 deletes
// the line.
func (s *CartService) AdjustQuantity(
	ctx context.Context,
	lineID int64,
	delta int,
) (cartline.AdjustResult, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "CartService.AdjustQuantity")
	defer span.End()

	work := s.newUOW()
	if err := work.Begin(ctx); err != nil {
		return cartline.AdjustResult{}, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.ErrorContext(ctx, "Failed to rollback cart transaction", "error", err)
		}
	}()

	repo := work.CartRepository()

	line, err := repo.GetByID(ctx, lineID)
	if err != nil {
		return cartline.AdjustResult{}, err
	}

	result, err := s.applyAdjust(ctx, repo, line, delta, s.now())
	if err != nil {
		return cartline.AdjustResult{}, err
	}

	if err := work.Commit(ctx); err != nil {
		return cartline.AdjustResult{}, fmt.Errorf("failed to commit cart change: %w", err)
	}

	return result, nil
}

func (s *CartService) applyAdjust(
	ctx context.Context,
	repo icartrepo.ICartRepository,
	line cartline.CartLine,
	delta int,
	now time.Time,
) (cartline.AdjustResult, error) {
	result, err := cartline.Adjust(line, delta)
	if err != nil {
		return cartline.AdjustResult{}, err
	}

	if result.Outcome == cartline.OutcomeRemoved {
		deleted, err := repo.Delete(ctx, line.ID)
		if err != nil {
			return cartline.AdjustResult{}, err
		}
		if !deleted {
			return cartline.AdjustResult{}, fmt.Errorf("%w: line %d", apperr.ErrCartNotFound, line.ID)
		}

		return result, nil
	}

	result.Line.UpdatedAt = now
	if err := repo.Update(ctx, result.Line); err != nil {
		return cartline.AdjustResult{}, err
	}

	return result, nil
}

// RemoveItem deletes a line.
func (s *CartService) RemoveItem(ctx context.Context, lineID int64) error {
	ctx, span := otel.Tracer("service").Start(ctx, "CartService.RemoveItem")
	defer span.End()

	deleted, err := s.newUOW().CartRepository().Delete(ctx, lineID)
	if err != nil {
		return err
	}
	if !deleted {
		return fmt.Errorf("%w: line %d", apperr.ErrCartNotFound, lineID)
	}

	return nil
}

// ClearForUserRestaurant deletes every line of the user for the restaurant
// and reports whether anything was deleted.
func (s *CartService) ClearForUserRestaurant(ctx context.Context, userID, restaurantID int64) (bool, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "CartService.ClearForUserRestaurant")
	defer span.End()

	removed, err := s.newUOW().CartRepository().DeleteByUserRestaurant(ctx, userID, restaurantID)
	if err != nil {
		return false, err
	}

	return removed > 0, nil
}

// ListCart returns the lines of a user, optionally limited to one restaurant
// when restaurantID is not 0.
func (s *CartService) ListCart(ctx context.Context, userID, restaurantID int64) ([]cartline.CartLine, error) {
	ctx, span := otel.Tracer("service").Start(ctx, "CartService.ListCart")
	defer span.End()

	filter := &cartline.QueryCartLinesModel{UserIds: []int64{userID}}
	if restaurantID != 0 {
		filter.RestaurantIds = []int64{restaurantID}
	}

	return s.newUOW().CartRepository().Query(ctx, filter)
}
