package completeorder

import (
	"context"
	"fmt"
	"net/http"

	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/corray333/backend-labs/ordering/internal/service/models/order"
	"github.com/corray333/backend-labs/ordering/internal/transport/http/httputil"
	"github.com/corray333/backend-labs/ordering/pkg/http/middleware/actor"
)

type service interface {
	CompleteOrder(ctx context.Context, orderID, actingUserID int64) (order.Ack, error)
}

// CompleteOrder handles the complete order request. The acting user comes
// from the X-User-ID header.
func CompleteOrder(w http.ResponseWriter, r *http.Request, service service) {
	orderID, err := httputil.PathInt64(r, "id")
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	actingUserID, ok := actor.FromContext(r.Context())
	if !ok {
		httputil.WriteError(w, r, fmt.Errorf("%w: %s header is required", apperr.ErrInvalidArgument, actor.Header))

		return
	}

	ack, err := service.CompleteOrder(r.Context(), orderID, actingUserID)
	if err != nil {
		httputil.WriteError(w, r, err)

		return
	}

	httputil.WriteJSON(w, r, http.StatusOK, ack)
}
