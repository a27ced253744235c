package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/cartline"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
	"github.com/shopspring/decimal"
)

// service is an interface for the cart service layer.
type service interface {
	AddItem(ctx context.Context, model cartline.AddItemModel) (cartline.AdjustResult, error)
	AdjustQuantity(ctx context.Context, lineID int64, delta int) (cartline.AdjustResult, error)
	RemoveItem(ctx context.Context, lineID int64) error
	ClearForUserRestaurant(ctx context.Context, userID, restaurantID int64) (bool, error)
	ListCart(ctx context.Context, userID, restaurantID int64) ([]cartline.CartLine, error)
}

type addItemRequest struct {
	FoodItemID   int64           `json:"foodItemId"   validate:"gt=0"`
	RestaurantID int64           `json:"restaurantId" validate:"gt=0"`
	UnitPrice    decimal.Decimal `json:"unitPrice"`
}

type adjustQuantityRequest struct {
	Delta int `json:"delta" validate:"ne=0,min=-1000000,max=1000000"`
}

type listCartRequest struct {
	RestaurantID int64 `schema:"restaurantId,omitempty" validate:"gte=0"`
}

type clearCartResponse struct {
	Cleared bool `json:"cleared"`
}

// ListCart handles the list cart request.
func ListCart(w http.ResponseWriter, r *http.Request, service service) {
	userID, err := httputil.PathInt64(r, "userId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	query := &listCartRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}
	if err := validator.New().Struct(query); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	lines, err := service.ListCart(r.Context(), userID, query.RestaurantID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, lines)
}

// AddItem handles the add cart item request.
func AddItem(w http.ResponseWriter, r *http.Request, service service) {
	userID, err := httputil.PathInt64(r, "userId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	req := addItemRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}
	if req.UnitPrice.IsNegative() {
		httputil.WriteError(w, r, httputil.InvalidArgument(errors.New("unitPrice must not be negative")))

		return
	}

	result, err := service.AddItem(r.Context(), cartline.AddItemModel{
		UserID:       userID,
		FoodItemID:   req.FoodItemID,
		RestaurantID: req.RestaurantID,
		UnitPrice:    req.UnitPrice,
	})
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	status := http.StatusOK
	if result.Outcome == cartline.OutcomeAdded {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, r, status, result)
}

// AdjustQuantity handles the adjust cart item quantity request.
func AdjustQuantity(w http.ResponseWriter, r *http.Request, service service) {
	lineID, err := httputil.PathInt64(r, "lineId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	req := adjustQuantityRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}
	if err := validator.New().Struct(&req); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	result, err := service.AdjustQuantity(r.Context(), lineID, req.Delta)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, result)
}

// RemoveItem handles the remove cart item request.
func RemoveItem(w http.ResponseWriter, r *http.Request, service service) {
	lineID, err := httputil.PathInt64(r, "lineId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	if err := service.RemoveItem(r.Context(), lineID); err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Clear handles the clear cart request for one restaurant.
func Clear(w http.ResponseWriter, r *http.Request, service service) {
	userID, err := httputil.PathInt64(r, "userId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	restaurantID, err := httputil.PathInt64(r, "restaurantId")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	cleared, err := service.ClearForUserRestaurant(r.Context(), userID, restaurantID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, clearCartResponse{Cleared: cleared})
}
