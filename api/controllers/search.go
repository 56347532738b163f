package controllers

import (
	"net/http"

	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	"github.com/angelmondragon/rmjobsites-storefront/api/validators"
	"github.com/angelmondragon/rmjobsites-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
)

// Debouncer is the navbar search box.
type Debouncer interface {
	Input(query string)
	State() catalog.SearchState
}

type searchInputRequest struct {
	Query string `json:"query" validate:"max=200"`
}

// SearchInput records a keystroke. The lookup runs after the debounce delay.
func SearchInput(searcher Debouncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search unavailable"))
			return
		}
		var payload searchInputRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		searcher.Input(payload.Query)
		responses.WriteSuccessStatus(w, http.StatusAccepted, searcher.State())
	}
}

func SearchResults(searcher Debouncer, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if searcher == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "search unavailable"))
			return
		}
		responses.WriteSuccess(w, searcher.State())
	}
}
