package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	"github.com/angelmondragon/rmjobsites-storefront/internal/catalog"
	"github.com/angelmondragon/rmjobsites-storefront/internal/checkout"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

type fakeCatalog struct {
	gotQuery string
	gotLimit int
	product  *storefront.Product
	err      error
}

func (f *fakeCatalog) Categories(context.Context) ([]storefront.Category, error) {
	return nil, f.err
}

func (f *fakeCatalog) State() catalog.CategoriesState {
	return catalog.CategoriesState{Categories: []storefront.Category{{ID: "C1", Name: "Lasers"}}}
}

func (f *fakeCatalog) Category(context.Context, string) (*storefront.Category, error) {
	return nil, f.err
}

func (f *fakeCatalog) ProductsByCategory(context.Context, string) ([]storefront.Product, error) {
	return []storefront.Product{}, f.err
}

func (f *fakeCatalog) Product(_ context.Context, id string) (*storefront.Product, error) {
	if f.product == nil || f.product.ID != id {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return f.product, nil
}

func (f *fakeCatalog) Search(_ context.Context, query string, limit int) ([]storefront.Product, error) {
	f.gotQuery, f.gotLimit = query, limit
	return []storefront.Product{}, f.err
}

type fakeCart struct {
	items []cart.Item
}

func (f *fakeCart) Hydrate(context.Context) {}
func (f *fakeCart) Items() []cart.Item { return f.items }

func (f *fakeCart) AddItem(_ context.Context, item cart.NewItem) error {
	f.items = append(f.items, cart.Item{
		ProductID:     item.ProductID,
		VariationID:   item.VariationID,
		ProductName:   item.ProductName,
		VariationName: item.VariationName,
		Price:         item.Price,
		Quantity:      1,
	})
	return nil
}

func (f *fakeCart) RemoveItem(context.Context, string) {}
func (f *fakeCart) UpdateQuantity(context.Context, string, int) {}
func (f *fakeCart) Clear(context.Context) { f.items = nil }

type fakeCheckout struct {
	enterErr error
}

func (f *fakeCheckout) Enter(context.Context) (*checkout.Session, error) { return nil, f.enterErr }
func (f *fakeCheckout) Current() *checkout.Session { return nil }
func (f *fakeCheckout) Exit() {}
func (f *fakeCheckout) TakeConfirmation() (*checkout.Receipt, bool) { return nil, false }

type failingPinger struct{}

func (failingPinger) Ping(context.Context) error { return errors.New("connection refused") }

type errorBody struct {
	Error struct {
		Code     string `json:"code"`
		Message  string `json:"message"`
		Redirect string `json:"redirect"`
	} `json:"error"`
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v (%s)", err, rec.Body.String())
	}
	return body
}

func TestHealthReadyReportsFailingDependency(t *testing.T) {
	h := HealthReady("test", logger.Nop(), map[string]kv.Pinger{"redis": failingPinger{}})
	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/health/ready", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", rec.Code)
	}
	if got := rec.Header().Get(envHeader); got != "test" {
		t.Fatalf("expected env header, got %q", got)
	}
	if body := decodeError(t, rec); body.Error.Code != string(pkgerrors.CodeDependency) {
		t.Fatalf("expected dependency code, got %q", body.Error.Code)
	}
}

func TestProductSearchDefaultsAndSanitizes(t *testing.T) {
	svc := &fakeCatalog{}
	rec := httptest.NewRecorder()
	ProductSearch(svc, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/products?query=%20%20laser%20", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if svc.gotLimit != catalog.DefaultSearchLimit {
		t.Fatalf("expected default limit, got %d", svc.gotLimit)
	}
	if svc.gotQuery != "laser" {
		t.Fatalf("expected trimmed query, got %q", svc.gotQuery)
	}
}

func TestProductSearchRejectsLimitOutOfRange(t *testing.T) {
	svc := &fakeCatalog{}
	rec := httptest.NewRecorder()
	ProductSearch(svc, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/products?query=drill&limit=500", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
	if svc.gotLimit != 0 {
		t.Fatalf("search should not run")
	}
}

func TestCategoriesListReturnsState(t *testing.T) {
	rec := httptest.NewRecorder()
	CategoriesList(&fakeCatalog{}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/categories", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"Lasers"`) {
		t.Fatalf("expected category in body: %s", rec.Body.String())
	}
}

func TestCartAddItemUsesCatalogData(t *testing.T) {
	products := &fakeCatalog{product: &storefront.Product{
		ID:   "P1",
		Name: "Rotary Laser",
		Variations: []storefront.Variation{
			{ID: "V1", Name: "Regular", PriceMoney: storefront.Money{Amount: 1100}},
		},
	}}
	svc := &fakeCart{}
	h := CartAddItem(svc, products, nil, logger.Nop())

	rec := httptest.NewRecorder()
	body := `{"product_id":"P1","variation_id":"V1"}`
	h(rec, httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(body)))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(svc.items) != 1 || svc.items[0].Price != 1100 || svc.items[0].ProductName != "Rotary Laser" {
		t.Fatalf("unexpected cart items: %+v", svc.items)
	}
	if !strings.Contains(rec.Body.String(), `"subtotalDisplay":"$11.00"`) {
		t.Fatalf("expected formatted subtotal: %s", rec.Body.String())
	}
}

func TestCartAddItemUnknownVariation(t *testing.T) {
	products := &fakeCatalog{product: &storefront.Product{ID: "P1"}}
	svc := &fakeCart{}
	rec := httptest.NewRecorder()
	CartAddItem(svc, products, nil, logger.Nop())(rec,
		httptest.NewRequest(http.MethodPost, "/cart/items", strings.NewReader(`{"product_id":"P1","variation_id":"V9"}`)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if len(svc.items) != 0 {
		t.Fatalf("cart should be untouched")
	}
}

func TestCartUpdateQuantityRequiresQuantity(t *testing.T) {
	r := chi.NewRouter()
	r.Patch("/cart/items/{variationId}", CartUpdateQuantity(&fakeCart{}, nil, logger.Nop()))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/cart/items/V1", strings.NewReader(`{}`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestCheckoutEnterEmptyCartRedirects(t *testing.T) {
	svc := &fakeCheckout{enterErr: pkgerrors.New(pkgerrors.CodeEmptyCart, "cart is empty")}
	rec := httptest.NewRecorder()
	CheckoutEnter(svc, logger.Nop())(rec, httptest.NewRequest(http.MethodPost, "/checkout", nil))

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409, got %d", rec.Code)
	}
	body := decodeError(t, rec)
	if body.Error.Redirect != checkout.RedirectCart {
		t.Fatalf("expected cart redirect, got %q", body.Error.Redirect)
	}
}

func TestCheckoutViewWithoutSession(t *testing.T) {
	rec := httptest.NewRecorder()
	CheckoutView(&fakeCheckout{}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/checkout", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Redirect != checkout.RedirectCart {
		t.Fatalf("expected cart redirect, got %q", body.Error.Redirect)
	}
}

func TestOrderConfirmationWithoutOrderGoesHome(t *testing.T) {
	rec := httptest.NewRecorder()
	OrderConfirmation(&fakeCheckout{}, logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/orders/confirmation", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
	if body := decodeError(t, rec); body.Error.Redirect != "/" {
		t.Fatalf("expected home redirect, got %q", body.Error.Redirect)
	}
}

func TestAuthMeRequiresUser(t *testing.T) {
	rec := httptest.NewRecorder()
	AuthMe(logger.Nop())(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
