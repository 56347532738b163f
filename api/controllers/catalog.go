package controllers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	"github.com/angelmondragon/rmjobsites-storefront/api/validators"
	"github.com/angelmondragon/rmjobsites-storefront/internal/catalog"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const maxQueryLength = 200

// CatalogService is the read side of the catalog.
type CatalogService interface {
	Categories(ctx context.Context) ([]storefront.Category, error)
	State() catalog.CategoriesState
	Category(ctx context.Context, categoryID string) (*storefront.Category, error)
	ProductsByCategory(ctx context.Context, categoryID string) ([]storefront.Product, error)
	Product(ctx context.Context, productID string) (*storefront.Product, error)
	Search(ctx context.Context, query string, limit int) ([]storefront.Product, error)
}

// CategoriesList loads the shared category list. A failed load is reported with the
// provider state so the view can show its error banner.
func CategoriesList(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "catalog service unavailable"))
			return
		}
		if _, err := svc.Categories(r.Context()); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, svc.State())
	}
}

func CategoryDetail(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		category, err := svc.Category(r.Context(), chi.URLParam(r, "categoryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, category)
	}
}

func CategoryProducts(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		products, err := svc.ProductsByCategory(r.Context(), chi.URLParam(r, "categoryId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

// ProductSearch runs an immediate search; the debounced flow lives under /search.
func ProductSearch(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, err := validators.ParseQueryInt(r, "limit", catalog.DefaultSearchLimit, 1, 50)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		query := validators.SanitizeString(r.URL.Query().Get("query"), maxQueryLength)
		products, err := svc.Search(r.Context(), query, limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]any{"products": products})
	}
}

func ProductDetail(svc CatalogService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		product, err := svc.Product(r.Context(), chi.URLParam(r, "productId"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, product)
	}
}
