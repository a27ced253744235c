package account

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/dal/clients/remote"
	"github.com/corray333/backend-labs/ordering/internal/service/models/account"
	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

func newTestServer(t *testing.T, adjusted *decimal.Decimal) *httptest.Server {
	t.Helper()

	router := chi.NewRouter()
	router.Get("/users/{id}", func(w http.ResponseWriter, r *http.Request) {
		if chi.URLParam(r, "id") != "1" {
			w.WriteHeader(http.StatusNotFound)

			return
		}
		_, _ = w.Write([]byte(`{"id":1,"role":"CUSTOMER","walletBalance":500.00}`))
	})
	router.Post("/users/{id}/wallet", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Amount decimal.Decimal `json:"amount"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			w.WriteHeader(http.StatusBadRequest)

			return
		}
		*adjusted = req.Amount
		w.WriteHeader(http.StatusNoContent)
	})
	router.Get("/users/{id}/addresses", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`[{"id":10,"street":"Main st","city":"Springfield","state":"IL","pincode":"62701"}]`))
	})
	router.Get("/addresses/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return server
}

func TestClient(t *testing.T) {
	var adjusted decimal.Decimal
	server := newTestServer(t, &adjusted)
	client := NewClient(remote.NewClient("account", server.URL, time.Second))
	ctx := context.Background()

	user, err := client.GetUser(ctx, 1)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if user.Role != account.RoleCustomer || !user.WalletBalance.Equal(decimal.NewFromInt(500)) {
		t.Errorf("unexpected user %+v", user)
	}

	if _, err := client.GetUser(ctx, 2); !errors.Is(err, apperr.ErrRemoteNotFound) {
		t.Errorf("expected ErrRemoteNotFound, got %v", err)
	}

	if err := client.AdjustWallet(ctx, 1, decimal.RequireFromString("-40.00")); err != nil {
		t.Fatalf("AdjustWallet() error = %v", err)
	}
	if !adjusted.Equal(decimal.NewFromInt(-40)) {
		t.Errorf("server received %s", adjusted)
	}

	addresses, err := client.ListAddresses(ctx, 1)
	if err != nil {
		t.Fatalf("ListAddresses() error = %v", err)
	}
	if len(addresses) != 1 || addresses[0].ID != 10 || addresses[0].UserID != 1 {
		t.Errorf("unexpected addresses %+v", addresses)
	}

	if _, err := client.GetAddress(ctx, 10); !apperr.IsGatewayError(err) {
		t.Errorf("expected gateway error, got %v", err)
	}
}
