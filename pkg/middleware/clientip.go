package middleware

import (
	"net/http"

	"github.com/utafrali/review-service/pkg/httputil"
)

// ClientIP resolves the caller's address once per request so that rate
// limiting, anonymous votes and tracing all see the same value.
func ClientIP(proxies *httputil.TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := httputil.WithClientIP(r.Context(), proxies.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
