package storefront

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts = append([]Option{WithBaseURL(srv.URL + "/api"), WithHTTPClient(srv.Client())}, opts...)
	return NewClient(opts...)
}

func TestCalculateOrder_SendsLineItemsAndBearerToken(t *testing.T) {
	var gotAuth string
	var gotBody map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/orders/calculate", r.URL.Path)
		require.Equal(t, http.MethodPost, r.Method)
		gotAuth = r.Header.Get("Authorization")
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &gotBody))
		_, _ = w.Write([]byte(`{"subtotal":2200,"taxes":176,"shipping":0,"total":2376}`))
	}, WithTokenSource(func(context.Context) string { return "jwt-123" }))

	summary, err := client.CalculateOrder(context.Background(), []OrderLineItem{
		{CatalogObjectID: "V1", Quantity: "2"},
		{CatalogObjectID: "V2", Quantity: "1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bearer jwt-123", gotAuth)
	assert.Equal(t, int64(2376), summary.Total)
	assert.Equal(t, int64(176), summary.Taxes)

	lines := gotBody["line_items"].([]any)
	require.Len(t, lines, 2)
	first := lines[0].(map[string]any)
	assert.Equal(t, "V1", first["catalog_object_id"])
	assert.Equal(t, "2", first["quantity"])
}

func TestRequestsOmitAuthorizationWhenSignedOut(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Empty(t, r.Header.Get("Authorization"))
		_, _ = w.Write([]byte(`{"categories":[{"id":"c1","name":"Lasers"}]}`))
	}, WithTokenSource(func(context.Context) string { return "" }))

	categories, err := client.Categories(context.Background())
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Lasers", categories[0].Name)
}

func TestErrorBodiesSurfaceServerMessages(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		body     string
		wantCode pkgerrors.Code
		wantMsg  string
	}{
		{"single error", http.StatusUnauthorized, `{"error":"Invalid email or password"}`, pkgerrors.CodeUnauthorized, "Invalid email or password"},
		{"error list", http.StatusUnprocessableEntity, `{"errors":["Email has already been taken","Password is too short"]}`, pkgerrors.CodeValidation, "Email has already been taken, Password is too short"},
		{"non json", http.StatusBadGateway, `<html>bad gateway</html>`, pkgerrors.CodeDependency, "Login failed"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			_, err := client.Login(context.Background(), "a@b.co", "pw")
			require.Error(t, err)
			typed := pkgerrors.As(err)
			require.NotNil(t, typed)
			assert.Equal(t, tt.wantCode, typed.Code())
			assert.Equal(t, tt.wantMsg, typed.Message())
			assert.Equal(t, tt.status, StatusOf(err))
		})
	}
}

func TestCreateOrder_SendsIdempotencyKeyAndDecodesReceipt(t *testing.T) {
	var gotKey string
	var gotBody CreateOrderRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("Idempotency-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_, _ = w.Write([]byte(`{
			"order": {"id":"ORD-1","location_id":"L1","state":"OPEN",
				"total_line_items_money":{"amount":2200,"currency":"USD"},
				"total_money":{"amount":2376,"currency":"USD"}},
			"payment": {"id":"PAY-1","status":"COMPLETED","card_details":{"card":{"card_brand":"VISA","last_4":"1111"}}}
		}`))
	})

	resp, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		LineItems:    []OrderLineItem{{CatalogObjectID: "V1", Quantity: "1"}},
		PaymentToken: "cnon:card-nonce-ok",
		CustomerInfo: CustomerInfo{Email: "buyer@example.com"},
	}, "key-1")
	require.NoError(t, err)
	assert.Equal(t, "key-1", gotKey)
	assert.Nil(t, gotBody.ShippingAddress)
	assert.Equal(t, "cnon:card-nonce-ok", gotBody.PaymentToken)
	require.NotNil(t, resp.Order.ID)
	assert.Equal(t, "ORD-1", *resp.Order.ID)
	require.NotNil(t, resp.Order.GetTotalLineItemsMoney())
	assert.Equal(t, int64(2200), *resp.Order.GetTotalLineItemsMoney().Amount)
	assert.Equal(t, int64(2376), *resp.Order.GetTotalMoney().Amount)
	require.NotNil(t, resp.Payment)
	assert.Equal(t, "PAY-1", *resp.Payment.ID)
}

func TestOrder_RoundTripsLineItemSubtotal(t *testing.T) {
	body := `{"id":"ORD-2","location_id":"L1","total_line_items_money":{"amount":1500,"currency":"USD"},"total_tax_money":{"amount":120,"currency":"USD"}}`

	var order Order
	require.NoError(t, json.Unmarshal([]byte(body), &order))
	require.NotNil(t, order.Order)
	assert.Equal(t, "ORD-2", *order.GetID())
	assert.Equal(t, int64(1500), *order.GetTotalLineItemsMoney().Amount)
	assert.Equal(t, int64(120), *order.GetTotalTaxMoney().Amount)

	encoded, err := json.Marshal(order)
	require.NoError(t, err)
	var fields map[string]any
	require.NoError(t, json.Unmarshal(encoded, &fields))
	assert.Equal(t, "ORD-2", fields["id"])
	assert.Contains(t, fields, "total_line_items_money")
}

func TestCreateOrder_OmitsEmptyShippingFields(t *testing.T) {
	payload, err := json.Marshal(CreateOrderRequest{
		CustomerInfo:    CustomerInfo{Email: "a@b.co"},
		ShippingAddress: &ShippingAddress{AddressLine1: "1 Main St"},
	})
	require.NoError(t, err)
	assert.JSONEq(t, `{"line_items":null,"payment_token":"","customer_info":{"email":"a@b.co"},"shipping_address":{"address_line_1":"1 Main St"}}`, string(payload))
}

func TestSearchProducts_EncodesQuery(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/products", r.URL.Path)
		assert.Equal(t, "laser level", r.URL.Query().Get("query"))
		assert.Equal(t, "5", r.URL.Query().Get("limit"))
		_, _ = w.Write([]byte(`{"products":[{"id":"p1","name":"Laser Level","variations":[{"id":"v1","price_money":{"amount":19900,"currency":"USD"}}]}]}`))
	})

	products, err := client.SearchProducts(context.Background(), "laser level", 5)
	require.NoError(t, err)
	require.Len(t, products, 1)
	require.NotNil(t, products[0].Variation("v1"))
	assert.Equal(t, int64(19900), products[0].Variation("v1").PriceMoney.Amount)
}

func TestCustomerRoutesDefaultToMe(t *testing.T) {
	var paths []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		switch r.URL.Path {
		case "/api/customers/me":
			_, _ = w.Write([]byte(`{"id":"C1","given_name":"Ada","email_address":"ada@example.com"}`))
		case "/api/customers/me/cards":
			_, _ = w.Write([]byte(`{"cards":[{"id":"card-1","card_brand":"VISA","last_4":"4242"}]}`))
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})

	customer, err := client.Customer(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, customer.GivenName)
	assert.Equal(t, "Ada", *customer.GivenName)

	cards, err := client.CustomerCards(context.Background(), CurrentCustomer)
	require.NoError(t, err)
	require.Len(t, cards, 1)

	require.NoError(t, client.DeleteCustomerCard(context.Background(), "", "card-1"))
	assert.Equal(t, []string{
		"GET /api/customers/me",
		"GET /api/customers/me/cards",
		"DELETE /api/customers/me/cards/card-1",
	}, paths)
}

func TestBreakerOpensAfterConsecutiveServerErrors(t *testing.T) {
	var hits atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"boom"}`))
	}, WithBreaker(BreakerSettings{ConsecutiveFailures: 2, Cooldown: time.Minute}))

	for i := 0; i < 2; i++ {
		_, err := client.SquareConfig(context.Background())
		require.Error(t, err)
	}
	assert.Equal(t, "open", client.BreakerState())

	_, err := client.SquareConfig(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, int32(2), hits.Load(), "open breaker must not reach the API")
}

func TestBreakerIgnoresClientErrors(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"Product not found"}`))
	}, WithBreaker(BreakerSettings{ConsecutiveFailures: 1, Cooldown: time.Minute}))

	for i := 0; i < 3; i++ {
		_, err := client.Product(context.Background(), "missing")
		require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
	}
	assert.Equal(t, "closed", client.BreakerState())
}

func TestTransportFailureMapsToDependency(t *testing.T) {
	client := NewClient(WithBaseURL("http://127.0.0.1:1/api"))
	_, err := client.Categories(context.Background())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
	assert.Equal(t, "Failed to load categories", pkgerrors.As(err).Message())
}
