package actor

import (
	"context"
	"net/http"
	"strconv"
)

// Header carries the id of the user performing the request.
const Header = "X-User-ID"

type ctxKey struct{}

// NewActorMiddleware stores the id from the X-User-ID header in the request
// context. Requests without a valid header pass through without an actor.
func NewActorMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id, err := strconv.ParseInt(r.Header.Get(Header), 10, 64); err == nil && id > 0 {
			r = r.WithContext(WithActor(r.Context(), id))
		}

		next.ServeHTTP(w, r)
	})
}

// WithActor returns a copy of ctx carrying the acting user id.
func WithActor(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ctxKey{}, userID)
}

// FromContext returns the acting user id, if any.
func FromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ctxKey{}).(int64)

	return id, ok
}
