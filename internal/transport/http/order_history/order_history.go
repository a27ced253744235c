package orderhistory

import (
	"context"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/history"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
)

type service interface {
	History(ctx context.Context, orderID int64) ([]history.Entry, error)
}

// OrderHistory handles the order status history request.
func OrderHistory(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	entries, err := service.History(r.Context(), orderID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, entries)
}
