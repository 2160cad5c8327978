// Package http provides HTTP middleware for the hub's streamable
// transport.
package http

import (
	"crypto/subtle"
	"net/http"
	"strings"
)

// APIKeyGate returns middleware that rejects requests not carrying the
// configured key as a Bearer token or X-API-Key header. An empty key
// disables the gate. Comparison is constant-time.
//
// Health endpoints should be mounted outside the gate so probes keep
// working without credentials.
func APIKeyGate(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get("X-API-Key")
			if presented == "" {
				if authHeader := r.Header.Get("Authorization"); strings.HasPrefix(authHeader, "Bearer ") {
					presented = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}

			if subtle.ConstantTimeCompare([]byte(presented), []byte(key)) != 1 {
				w.Header().Set("WWW-Authenticate", "Bearer")
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
