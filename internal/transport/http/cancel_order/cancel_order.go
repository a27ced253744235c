package cancelorder

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
)

type service interface {
	CancelOrder(ctx context.Context, orderID int64) (order.Ack, error)
}

// CancelOrder handles the cancel order request.
func CancelOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	ack, err := service.CancelOrder(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, ack)
}
