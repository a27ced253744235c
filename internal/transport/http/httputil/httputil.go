package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/go-chi/chi/v5"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.ErrorContext(r.Context(), "Error sending response", "error", err)
	}
}

// WriteError maps err to its status code and writes the error body.
func WriteError(w http.ResponseWriter, r *http.Request, err error) {
	status := StatusOf(err)
	kind := apperr.Kind(err)
	message := err.Error()

	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "Request failed", "error", err)
		if status == http.StatusInternalServerError {
			message = "internal error"
		}
	} else {
		slog.WarnContext(r.Context(), "Request rejected", "kind", kind, "error", err)
	}

	WriteJSON(w, r, status, ErrorResponse{Error: kind, Message: message})
}

// StatusOf returns the HTTP status code for err.
func StatusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotAuthorized):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrCustomerNotFound),
		errors.Is(err, apperr.ErrAddressNotFound),
		errors.Is(err, apperr.ErrCartNotFound),
		errors.Is(err, apperr.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrInsufficientBalance):
		return http.StatusPaymentRequired
	case errors.Is(err, apperr.ErrOrderUpdateFailed):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrDependencyUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// InvalidArgument wraps err as a client error.
func InvalidArgument(err error) error {
	return fmt.Errorf("%w: %v", apperr.ErrInvalidArgument, err)
}

// PathInt64 parses a positive integer URL parameter.
func PathInt64(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)

	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer, got %q", apperr.ErrInvalidArgument, name, raw)
	}

	return id, nil
}
