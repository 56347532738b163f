package storefront

import (
	"context"
	"net/http"
	"net/url"
	"strings"

	sq "github.com/square/square-go-sdk"

	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
)

func customerPath(customerID string, rest ...string) string {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		customerID = CurrentCustomer
	}
	parts := append([]string{"/customers", url.PathEscape(customerID)}, rest...)
	return strings.Join(parts, "/")
}

func (c *Client) Customer(ctx context.Context, customerID string) (*sq.Customer, error) {
	var out sq.Customer
	err := c.do(ctx, call{
		endpoint: "customers.get",
		method:   http.MethodGet,
		path:     customerPath(customerID),
		out:      &out,
		fallback: "Failed to fetch customer",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateCustomer(ctx context.Context, customerID string, req UpdateCustomerRequest) (*sq.Customer, error) {
	var out sq.Customer
	err := c.do(ctx, call{
		endpoint: "customers.update",
		method:   http.MethodPatch,
		path:     customerPath(customerID),
		body:     req,
		out:      &out,
		fallback: "Failed to update customer",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CustomerOrders(ctx context.Context, customerID string) ([]*sq.Order, error) {
	var out struct {
		Orders []*sq.Order `json:"orders"`
	}
	err := c.do(ctx, call{
		endpoint: "customers.orders",
		method:   http.MethodGet,
		path:     customerPath(customerID, "orders"),
		out:      &out,
		fallback: "Failed to fetch orders",
	})
	if err != nil {
		return nil, err
	}
	return out.Orders, nil
}

func (c *Client) CustomerCards(ctx context.Context, customerID string) ([]*sq.Card, error) {
	var out struct {
		Cards []*sq.Card `json:"cards"`
	}
	err := c.do(ctx, call{
		endpoint: "customers.cards",
		method:   http.MethodGet,
		path:     customerPath(customerID, "cards"),
		out:      &out,
		fallback: "Failed to fetch cards",
	})
	if err != nil {
		return nil, err
	}
	return out.Cards, nil
}

func (c *Client) DeleteCustomerCard(ctx context.Context, customerID, cardID string) error {
	if strings.TrimSpace(cardID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "card id is required")
	}
	return c.do(ctx, call{
		endpoint: "customers.cards.delete",
		method:   http.MethodDelete,
		path:     customerPath(customerID, "cards", url.PathEscape(cardID)),
		fallback: "Failed to delete card",
	})
}
