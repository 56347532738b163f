package middleware

import (
	"net/http"

	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

// LoginPath is where signed-out visitors are sent.
const LoginPath = "/login"

func RequireUser(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if UserFromContext(r.Context()) == nil {
				responses.WriteErrorRedirect(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"), LoginPath)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin sends signed-out visitors to the login page and non-admins home.
func RequireAdmin(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user := UserFromContext(r.Context())
			if user == nil {
				responses.WriteErrorRedirect(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "login required"), LoginPath)
				return
			}
			if !user.Admin {
				responses.WriteErrorRedirect(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "admin access required"), "/")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
