// Package auth gates write endpoints behind server-issued API keys.
package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/bugchan/bountyd/internal/storage"
)

type contextKey struct{}

var keyContextKey contextKey

// ErrorWriter emits an error response in the server's envelope format.
type ErrorWriter func(w http.ResponseWriter, status int, code, message string)

// GetAPIKeyFromContext returns the validated key record for the
// request, or nil outside the middleware.
func GetAPIKeyFromContext(ctx context.Context) *storage.APIKey {
	key, _ := ctx.Value(keyContextKey).(*storage.APIKey)
	return key
}

// extractKey pulls the API key from the X-API-Key header, falling back
// to a bearer token.
func extractKey(r *http.Request) string {
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	if bearer, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
		return bearer
	}
	return ""
}

// Middleware rejects requests that do not carry a valid, unrevoked API
// key. The key record is placed on the request context for handlers
// that want to attribute the write.
func Middleware(store storage.APIKeyStore, writeError ErrorWriter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := extractKey(r)
			if presented == "" {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "API key required")
				return
			}

			record, err := store.ValidateAPIKey(r.Context(), presented)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid API key")
				return
			}

			ctx := context.WithValue(r.Context(), keyContextKey, record)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
