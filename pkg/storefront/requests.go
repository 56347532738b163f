package storefront

import (
	"context"
	"net/http"
)

func (c *Client) CreateServiceRequest(ctx context.Context, form ServiceRequestForm) (*ServiceRequestResponse, error) {
	var out ServiceRequestResponse
	err := c.do(ctx, call{
		endpoint: "service_requests.create",
		method:   http.MethodPost,
		path:     "/service_requests",
		body:     map[string]any{"service_request": form},
		out:      &out,
		fallback: "Failed to submit service request",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateRentalRequest(ctx context.Context, form RentalRequestForm) (*RentalRequestResponse, error) {
	var out RentalRequestResponse
	err := c.do(ctx, call{
		endpoint: "rental_requests.create",
		method:   http.MethodPost,
		path:     "/equipment_rental_requests",
		body:     map[string]any{"equipment_rental_request": form},
		out:      &out,
		fallback: "Failed to submit equipment rental request",
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ServiceRequests lists every service request. Admin only.
func (c *Client) ServiceRequests(ctx context.Context) ([]ServiceRequest, error) {
	var out struct {
		ServiceRequests []ServiceRequest `json:"service_requests"`
	}
	err := c.do(ctx, call{
		endpoint: "service_requests.list",
		method:   http.MethodGet,
		path:     "/service_requests",
		out:      &out,
		fallback: "Failed to load service requests",
	})
	if err != nil {
		return nil, err
	}
	return out.ServiceRequests, nil
}

// RentalRequests lists every equipment rental request. Admin only.
func (c *Client) RentalRequests(ctx context.Context) ([]RentalRequest, error) {
	var out struct {
		RentalRequests []RentalRequest `json:"equipment_rental_requests"`
	}
	err := c.do(ctx, call{
		endpoint: "rental_requests.list",
		method:   http.MethodGet,
		path:     "/equipment_rental_requests",
		out:      &out,
		fallback: "Failed to load rental requests",
	})
	if err != nil {
		return nil, err
	}
	return out.RentalRequests, nil
}
