package controllers

import (
	"context"
	"net/http"

	"github.com/angelmondragon/rmjobsites-storefront/api/middleware"
	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	"github.com/angelmondragon/rmjobsites-storefront/api/validators"
	"github.com/angelmondragon/rmjobsites-storefront/internal/auth"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

type AuthService interface {
	Login(ctx context.Context, in auth.LoginInput) (*storefront.User, error)
	Register(ctx context.Context, in auth.RegisterInput) (*storefront.User, error)
	Logout(ctx context.Context) error
}

func AuthLogin(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.LoginInput
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Login(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, user)
	}
}

func AuthRegister(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload auth.RegisterInput
		if err := validators.DecodeJSON(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		user, err := svc.Register(r.Context(), payload)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, user)
	}
}

func AuthLogout(svc AuthService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Logout(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

// AuthMe returns the user seeded by the session middleware.
func AuthMe(logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := middleware.UserFromContext(r.Context())
		if user == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "not signed in"))
			return
		}
		responses.WriteSuccess(w, user)
	}
}
