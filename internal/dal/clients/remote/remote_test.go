package remote

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/corray333/backend-labs/ordering/internal/service/models/apperr"
)

func TestDo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok":
			if r.Header.Get("X-Request-Id") == "" {
				t.Error("expected request id header")
			}
			_, _ = w.Write([]byte(`{"name":"pizza"}`))
		case "/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/broken":
			w.WriteHeader(http.StatusBadGateway)
		case "/bad":
			http.Error(w, "amount is required", http.StatusBadRequest)
		case "/slow":
			time.Sleep(200 * time.Millisecond)
		}
	}))
	defer server.Close()

	client := NewClient("catalog", server.URL+"/", 50*time.Millisecond)
	ctx := context.Background()

	var out struct {
		Name string `json:"name"`
	}
	if err := client.Do(ctx, "Get", http.MethodGet, "/ok", nil, &out); err != nil {
		t.Fatalf("Do(/ok) error = %v", err)
	}
	if out.Name != "pizza" {
		t.Errorf("unexpected body %+v", out)
	}

	tests := []struct {
		path        string
		wantGateway bool
		wantNotFnd  bool
	}{
		{path: "/missing", wantNotFnd: true},
		{path: "/broken", wantGateway: true},
		{path: "/slow", wantGateway: true},
		{path: "/bad"},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			err := client.Do(ctx, "Get", http.MethodGet, tt.path, nil, &out)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := apperr.IsGatewayError(err); got != tt.wantGateway {
				t.Errorf("IsGatewayError = %v, want %v (%v)", got, tt.wantGateway, err)
			}
			if got := errors.Is(err, apperr.ErrRemoteNotFound); got != tt.wantNotFnd {
				t.Errorf("ErrRemoteNotFound = %v, want %v (%v)", got, tt.wantNotFnd, err)
			}
		})
	}
}

func TestDoUnreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	client := NewClient("account", url, time.Second)
	err := client.Do(context.Background(), "GetUser", http.MethodGet, "/users/1", nil, nil)
	if !apperr.IsGatewayError(err) {
		t.Errorf("expected gateway error, got %v", err)
	}
}
