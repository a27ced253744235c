package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// Client is a JSON-over-HTTP client of a remote service. Every call has its
// own deadline; transport failures, timeouts and 5xx answers are returned as
// *apperr.GatewayError, 404 as apperr.ErrRemoteNotFound.
type Client struct {
	service string
	baseURL string
	timeout time.Duration
	http    *http.Client
}

// NewClient creates a new Client.
func NewClient(service, baseURL string, timeout time.Duration) *Client {
	return &Client{
		service: service,
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: timeout,
		http:    &http.Client{},
	}
}

// Service returns the name of the remote service.
func (c *Client) Service() string {
	return c.service
}

// Do sends a request with an optional JSON body and decodes the JSON answer
// into out when out is not nil.
func (c *Client) Do(ctx context.Context, op, method, path string, body, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s.%s: failed to encode request: %w", c.service, op, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s.%s: failed to build request: %w", c.service, op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	requestID := middleware.GetReqID(ctx)
	if requestID == "" {
		requestID = uuid.NewString()
	}
	req.Header.Set(middleware.RequestIDHeader, requestID)
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return c.gatewayError(op, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s.%s: %w", c.service, op, apperr.ErrRemoteNotFound)
	case resp.StatusCode >= http.StatusInternalServerError:
		return c.gatewayError(op, fmt.Errorf("unexpected status %d", resp.StatusCode))
	case resp.StatusCode >= http.StatusBadRequest:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

		return fmt.Errorf("%s.%s: rejected with status %d: %s", c.service, op, resp.StatusCode, bytes.TrimSpace(msg))
	}

	if out == nil {
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return c.gatewayError(op, err)
		}

		return fmt.Errorf("%s.%s: failed to decode response: %w", c.service, op, err)
	}

	return nil
}

func (c *Client) gatewayError(op string, err error) error {
	return &apperr.GatewayError{Service: c.service, Op: op, Err: err}
}
