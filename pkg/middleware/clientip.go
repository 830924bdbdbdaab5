package middleware

import (
	"net/http"

	"github.com/laot-fitness/laot/pkg/contextkeys"
	"github.com/laot-fitness/laot/pkg/httputil"
)

// ClientIPMiddleware resolves the caller address once per request. Proxy
// headers are only consulted when trustProxy is set.
func ClientIPMiddleware(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := httputil.ClientIP(r, trustProxy)
			next.ServeHTTP(w, r.WithContext(contextkeys.WithClientIP(r.Context(), ip)))
		})
	}
}

// ClientIP returns the address resolved by ClientIPMiddleware, falling back
// to the socket peer
func ClientIP(r *http.Request) string {
	if ip := contextkeys.GetClientIP(r.Context()); ip != "" {
		return ip
	}
	return httputil.ClientIP(r, false)
}
