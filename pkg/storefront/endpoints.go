package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
)

// CurrentCustomer addresses the signed-in customer in /customers/:id routes.
const CurrentCustomer = "me"

func (c *Client) Login(ctx context.Context, email, password string) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		endpoint: "auth.login",
		method:   http.MethodPost,
		path:     "/auth/login",
		body:     map[string]string{"email": email, "password": password},
		out:      &out,
		fallback: "Login failed",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	var out AuthResponse
	err := c.do(ctx, call{
		endpoint: "auth.register",
		method:   http.MethodPost,
		path:     "/auth/register",
		body:     req,
		out:      &out,
		fallback: "Registration failed",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out struct {
		Categories []Category `json:"categories"`
	}
	err := c.do(ctx, call{
		endpoint: "categories.list",
		method:   http.MethodGet,
		path:     "/categories",
		out:      &out,
		fallback: "Failed to load categories",
	})
	if err != nil {
		return nil, err
	}
	return out.Categories, nil
}

func (c *Client) Category(ctx context.Context, categoryID string) (*Category, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	var out struct {
		Category *Category `json:"category"`
	}
	err := c.do(ctx, call{
		endpoint: "categories.get",
		method:   http.MethodGet,
		path:     "/categories/" + url.PathEscape(categoryID),
		out:      &out,
		fallback: "Failed to load category",
	})
	if err != nil {
		return nil, err
	}
	if out.Category == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "category not found")
	}
	return out.Category, nil
}

func (c *Client) ProductsByCategory(ctx context.Context, categoryID string) ([]Product, error) {
	if strings.TrimSpace(categoryID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "category id is required")
	}
	var out struct {
		Products []Product `json:"products"`
	}
	err := c.do(ctx, call{
		endpoint: "categories.products",
		method:   http.MethodGet,
		path:     "/categories/" + url.PathEscape(categoryID) + "/products",
		out:      &out,
		fallback: "Failed to load products",
	})
	if err != nil {
		return nil, err
	}
	return out.Products, nil
}

// SearchProducts runs a product search; limit <= 0 lets the API pick its default.
func (c *Client) SearchProducts(ctx context.Context, query string, limit int) ([]Product, error) {
	params := url.Values{}
	params.Set("query", query)
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Products []Product `json:"products"`
	}
	err := c.do(ctx, call{
		endpoint: "products.search",
		method:   http.MethodGet,
		path:     "/products?" + params.Encode(),
		out:      &out,
		fallback: "Search failed",
	})
	if err != nil {
		return nil, err
	}
	return out.Products, nil
}

func (c *Client) Product(ctx context.Context, productID string) (*Product, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "product id is required")
	}
	var out struct {
		Product *Product `json:"product"`
	}
	err := c.do(ctx, call{
		endpoint: "products.get",
		method:   http.MethodGet,
		path:     "/products/" + url.PathEscape(productID),
		out:      &out,
		fallback: "Failed to load product",
	})
	if err != nil {
		return nil, err
	}
	if out.Product == nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "product not found")
	}
	return out.Product, nil
}

func (c *Client) CalculateOrder(ctx context.Context, lines []OrderLineItem) (*CalculateResponse, error) {
	var out CalculateResponse
	err := c.do(ctx, call{
		endpoint: "orders.calculate",
		method:   http.MethodPost,
		path:     "/orders/calculate",
		body:     CalculateRequest{LineItems: lines},
		out:      &out,
		fallback: "Failed to calculate order",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) SquareConfig(ctx context.Context) (*SquareConfig, error) {
	var out SquareConfig
	err := c.do(ctx, call{
		endpoint: "config.square",
		method:   http.MethodGet,
		path:     "/config/square",
		out:      &out,
		fallback: "Failed to get Square configuration",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateOrder submits the order. idempotencyKey is sent as the Idempotency-Key header
// when non-empty.
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest, idempotencyKey string) (*CreateOrderResponse, error) {
	var headers map[string]string
	if idempotencyKey != "" {
		headers = map[string]string{"Idempotency-Key": idempotencyKey}
	}
	var out CreateOrderResponse
	err := c.do(ctx, call{
		endpoint: "orders.create",
		method:   http.MethodPost,
		path:     "/orders",
		body:     req,
		out:      &out,
		headers:  headers,
		fallback: "Failed to create order",
	})
	if err != nil {
		return nil, err
	}
	if out.Order == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "order response missing order")
	}
	return &out, nil
}
