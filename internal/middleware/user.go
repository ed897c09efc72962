package middleware

import (
	"context"
	"net/http"
	"strings"
)

type remoteUserCtxKey struct{}

// RemoteUser reads the authenticated username set by the fronting proxy
// from header and stores it in the context.
func RemoteUser(header string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			username := strings.TrimSpace(r.Header.Get(header))
			if username == "" {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), username)))
		})
	}
}

// WithUser returns ctx carrying username.
func WithUser(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, remoteUserCtxKey{}, username)
}

// UserFromContext returns the username, or "" for anonymous requests.
func UserFromContext(ctx context.Context) string {
	u, _ := ctx.Value(remoteUserCtxKey{}).(string)
	return u
}
