package icartrepo

import (
	"context"

	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
)

// ICartRepository is an interface for cart line postgres repository.
type ICartRepository interface {
	GetByID(ctx context.Context, id int64) (cartline.CartLine, error)
	FindByTuple(
		ctx context.Context,
		userID, foodItemID, restaurantID int64,
	) (cartline.CartLine, bool, error)
	Query(ctx context.Context, filter *cartline.QueryCartLinesModel) ([]cartline.CartLine, error)
	Insert(ctx context.Context, line cartline.CartLine) (cartline.CartLine, error)
	Update(ctx context.Context, line cartline.CartLine) error
	Delete(ctx context.Context, id int64) (bool, error)
	DeleteByUserRestaurant(ctx context.Context, userID, restaurantID int64) (int64, error)
}
