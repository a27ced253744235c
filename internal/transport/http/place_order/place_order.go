package placeorder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

// service is an interface for the service layer.
type service interface {
	PlaceOrder(ctx context.Context, model order.PlaceOrderModel) (order.Ack, error)
}

// itemInPlaceOrderRequest is the client's view of one cart line.
type itemInPlaceOrderRequest struct {
	FoodItemID int64           `json:"foodItemId" validate:"gt=0"`
	Quantity   int             `json:"quantity"   validate:"gt=0"`
	UnitPrice  decimal.Decimal `json:"unitPrice"`
}

// placeOrderRequest represents a place order request.
type placeOrderRequest struct {
	UserID            int64                     `json:"userId"            validate:"gt=0"`
	RestaurantID      int64                     `json:"restaurantId"      validate:"gt=0"`
	DeliveryAddressID int64                     `json:"deliveryAddressId" validate:"gt=0"`
	Items             []itemInPlaceOrderRequest `json:"items"             validate:"dive"`
}

// Validate validates the place order request.
func (r *placeOrderRequest) Validate() error {
	if err := validator.New().Struct(r); err != nil {
		return err
	}
	for _, item := range r.Items {
		if item.UnitPrice.IsNegative() {
			return errors.New("unitPrice must not be negative")
		}
	}

	return nil
}

func (r *placeOrderRequest) toModel() order.PlaceOrderModel {
	claimed := make([]order.ClaimedLine, 0, len(r.Items))
	for _, item := range r.Items {
		claimed = append(claimed, order.ClaimedLine{
			FoodItemID: item.FoodItemID,
			Quantity:   item.Quantity,
			UnitPrice:  item.UnitPrice,
		})
	}

	return order.PlaceOrderModel{
		UserID:            r.UserID,
		RestaurantID:      r.RestaurantID,
		DeliveryAddressID: r.DeliveryAddressID,
		ClaimedLines:      claimed,
	}
}

// PlaceOrder handles the place order request.
func PlaceOrder(w http.ResponseWriter, r *http.Request, service service) {
	req := placeOrderRequest{}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	if err := req.Validate(); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	ack, err := service.PlaceOrder(r.Context(), req.toModel())
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusCreated, ack)
}
