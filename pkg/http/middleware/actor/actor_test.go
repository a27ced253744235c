package actor

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestNewActorMiddleware(t *testing.T) {
	tests := []struct {
		name   string
		header string
		wantID int64
		wantOK bool
	}{
		{name: "valid", header: "42", wantID: 42, wantOK: true},
		{name: "missing", header: "", wantOK: false},
		{name: "garbage", header: "abc", wantOK: false},
		{name: "negative", header: "-1", wantOK: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID int64
			var gotOK bool
			handler := NewActorMiddleware(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				gotID, gotOK = FromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set(Header, tt.header)
			}
			handler.ServeHTTP(httptest.NewRecorder(), req)

			if gotID != tt.wantID || gotOK != tt.wantOK {
				t.Errorf("FromContext() = (%d, %v), want (%d, %v)", gotID, gotOK, tt.wantID, tt.wantOK)
			}
		})
	}
}
