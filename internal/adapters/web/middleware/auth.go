package middleware

import (
	"context"
	"crypto/subtle"
	"net/http"

	"golang.org/x/crypto/bcrypt"
)

type contextKey string

// OperatorContextKey carries the authenticated operator name.
const OperatorContextKey contextKey = "operator"

// BasicAuth admits requests whose basic-auth credentials match user and the
// bcrypt hash. An empty hash locks the route.
func BasicAuth(user string, hash []byte) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if len(hash) == 0 {
				http.Error(w, "Operator password not configured", http.StatusForbidden)
				return
			}

			name, password, ok := r.BasicAuth()
			if !ok || subtle.ConstantTimeCompare([]byte(name), []byte(user)) != 1 ||
				bcrypt.CompareHashAndPassword(hash, []byte(password)) != nil {
				w.Header().Set("WWW-Authenticate", `Basic realm="wkarma"`)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), OperatorContextKey, name)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Operator returns the name stored by BasicAuth, or "unknown".
func Operator(ctx context.Context) string {
	if name, ok := ctx.Value(OperatorContextKey).(string); ok && name != "" {
		return name
	}
	return "unknown"
}
