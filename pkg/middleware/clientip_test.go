package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/laot-fitness/laot/pkg/contextkeys"
)

func withIdentity(ctx context.Context, identity interface{}) context.Context {
	return contextkeys.WithIdentity(ctx, identity)
}

func TestClientIPMiddleware(t *testing.T) {
	tests := []struct {
		name       string
		trustProxy bool
		forwarded  string
		want       string
	}{
		{"peer only", false, "", "192.0.2.10"},
		{"proxy header ignored", false, "203.0.113.5", "192.0.2.10"},
		{"proxy header trusted", true, "203.0.113.5", "203.0.113.5"},
		{"private forwarded skipped", true, "10.0.0.1, 203.0.113.9", "203.0.113.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got string
			h := ClientIPMiddleware(tt.trustProxy)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				got = ClientIP(r)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = "192.0.2.10:51234"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			h.ServeHTTP(httptest.NewRecorder(), req)

			if got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestClientIP_WithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.10:51234"
	req.Header.Set("X-Forwarded-For", "203.0.113.5")

	if got := ClientIP(req); got != "192.0.2.10" {
		t.Errorf("ClientIP() = %q, want peer address", got)
	}
}
