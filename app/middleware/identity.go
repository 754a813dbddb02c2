package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
)

// DefaultIdentityHeader carries the authenticated user's email, set by the
// auth proxy in front of the service.
const DefaultIdentityHeader = "X-User-Email"

type ctxKey int

const (
	userKey ctxKey = iota
	requestIDKey
)

// Identity rejects requests without a user header and stores the user on the
// request context.
func Identity(header string, onMissing http.HandlerFunc) mux.MiddlewareFunc {
	if header == "" {
		header = DefaultIdentityHeader
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := strings.TrimSpace(r.Header.Get(header))
			if user == "" {
				onMissing(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// WithUser returns a copy of ctx carrying user.
func WithUser(ctx context.Context, user string) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the user stored by Identity.
func UserFromContext(ctx context.Context) (string, bool) {
	user, ok := ctx.Value(userKey).(string)
	return user, ok && user != ""
}

// RequestIDFromContext returns the id assigned by RequestLogger.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}
