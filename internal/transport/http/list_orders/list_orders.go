package listorders

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/schema"
)

const defaultLimit = 50

type service interface {
	ListOrders(ctx context.Context, filter order.QueryOrdersModel) ([]order.View, error)
}

type queryOrdersRequest struct {
	Ids           []int64  `schema:"ids,omitempty"`
	UserIds       []int64  `schema:"userIds,omitempty"`
	RestaurantIds []int64  `schema:"restaurantIds,omitempty"`
	Statuses      []string `schema:"statuses,omitempty"`
	Limit         int      `schema:"limit,omitempty"  validate:"gte=0,lte=1000"`
	Offset        int      `schema:"offset,omitempty" validate:"gte=0"`
}

func (q *queryOrdersRequest) toModel() (order.QueryOrdersModel, error) {
	statuses := make([]order.Status, 0, len(q.Statuses))
	for _, raw := range q.Statuses {
		status, err := order.ParseStatus(raw)
		if err != nil {
			return order.QueryOrdersModel{}, err
		}
		statuses = append(statuses, status)
	}

	limit := q.Limit
	if limit == 0 {
		limit = defaultLimit
	}

	return order.QueryOrdersModel{
		Ids:           q.Ids,
		UserIds:       q.UserIds,
		RestaurantIds: q.RestaurantIds,
		Statuses:      statuses,
		Limit:         limit,
		Offset:        q.Offset,
	}, nil
}

// ListOrders handles the list orders request.
func ListOrders(w http.ResponseWriter, r *http.Request, service service) {
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)

	query := &queryOrdersRequest{}
	if err := decoder.Decode(query, r.URL.Query()); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	if err := validator.New().Struct(query); err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	filter, err := query.toModel()
	if err != nil {
		httputil.WriteError(w, r, httputil.InvalidArgument(err))

		return
	}

	orders, err := service.ListOrders(r.Context(), filter)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, orders)
}
