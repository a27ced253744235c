package getorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
)

type service interface {
	GetOrder(ctx context.Context, orderID int64) (order.View, error)
}

// GetOrder handles the get order request.
func GetOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	view, err := service.GetOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, view)
}
