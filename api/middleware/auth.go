package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// SessionReader resolves the persisted user session.
type SessionReader interface {
	CurrentUser(ctx context.Context) (*storefront.User, bool)
}

// Session seeds the request context with the signed-in user, if any. It never rejects;
// RequireUser and RequireAdmin guard the routes that need a user.
func Session(sessions SessionReader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil {
				next.ServeHTTP(w, r)
				return
			}
			user, ok := sessions.CurrentUser(r.Context())
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}
