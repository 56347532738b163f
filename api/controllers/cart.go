package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rmjobsites-storefront/api/responses"
	"github.com/angelmondragon/rmjobsites-storefront/api/validators"
	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/money"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// CartService is the cart aggregate as the view sees it.
type CartService interface {
	Hydrate(ctx context.Context)
	Items() []cart.Item
	AddItem(ctx context.Context, item cart.NewItem) error
	RemoveItem(ctx context.Context, variationID string)
	UpdateQuantity(ctx context.Context, variationID string, quantity int)
	Clear(ctx context.Context)
}

// BadgeCounter reads the navbar badge count.
type BadgeCounter interface {
	Count(ctx context.Context) int
}

// ProductLookup resolves the product an add-to-cart request names.
type ProductLookup interface {
	Product(ctx context.Context, productID string) (*storefront.Product, error)
}

type cartLine struct {
	cart.Item
	LineTotal string `json:"lineTotal"`
}

type cartResponse struct {
	Items     []cartLine `json:"items"`
	ItemCount int        `json:"itemCount"`
	Subtotal  int64      `json:"subtotal"`
	Display   string     `json:"subtotalDisplay"`
	Badge     int        `json:"badgeCount"`
}

type addItemRequest struct {
	ProductID   string `json:"product_id" validate:"required"`
	VariationID string `json:"variation_id" validate:"required"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" validate:"required"`
}

func newCartResponse(ctx context.Context, items []cart.Item, badge BadgeCounter) cartResponse {
	resp := cartResponse{
		Items:     make([]cartLine, 0, len(items)),
		ItemCount: cart.ItemCount(items),
		Subtotal:  cart.Subtotal(items),
	}
	resp.Display = money.FormatUSD(resp.Subtotal)
	for _, item := range items {
		resp.Items = append(resp.Items, cartLine{Item: item, LineTotal: money.FormatUSD(item.LineTotal())})
	}
	resp.Badge = resp.ItemCount
	if badge != nil {
		resp.Badge = badge.Count(ctx)
	}
	return resp
}

func CartFetch(svc CartService, badge BadgeCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "cart service unavailable"))
			return
		}
		svc.Hydrate(r.Context())
		responses.WriteSuccess(w, newCartResponse(r.Context(), svc.Items(), badge))
	}
}

// CartAddItem adds one unit of a product variation. Name, price and image are taken
// from the catalog, not from the request.
func CartAddItem(svc CartService, products ProductLookup, badge BadgeCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload addItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		product, err := products.Product(r.Context(), payload.ProductID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		variation := product.Variation(strings.TrimSpace(payload.VariationID))
		if variation == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeNotFound, "variation not found").
				WithDetails(map[string]string{"variation_id": payload.VariationID}))
			return
		}

		err = svc.AddItem(r.Context(), cart.NewItem{
			ProductID:     product.ID,
			VariationID:   variation.ID,
			ProductName:   product.Name,
			VariationName: variation.Name,
			Price:         variation.PriceMoney.Amount,
			ImageURL:      product.PrimaryImage(variation),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, newCartResponse(r.Context(), svc.Items(), badge))
	}
}

func CartUpdateQuantity(svc CartService, badge BadgeCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var payload updateQuantityRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		svc.UpdateQuantity(r.Context(), chi.URLParam(r, "variationId"), *payload.Quantity)
		responses.WriteSuccess(w, newCartResponse(r.Context(), svc.Items(), badge))
	}
}

func CartRemoveItem(svc CartService, badge BadgeCounter, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.RemoveItem(r.Context(), chi.URLParam(r, "variationId"))
		responses.WriteSuccess(w, newCartResponse(r.Context(), svc.Items(), badge))
	}
}

func CartClear(svc CartService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		svc.Clear(r.Context())
		responses.WriteNoContent(w)
	}
}
