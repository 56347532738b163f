package payments

import (
	"context"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/enums"
)

// SDKConfig is the remote-fetched configuration for the card provider.
type SDKConfig struct {
	ApplicationID string
	LocationID    string
	Environment   string
}

// ProviderError is one error reported by the provider for a tokenize call.
type ProviderError struct {
	Code    string
	Field   string
	Message string
}

// TokenResult is the raw outcome of a tokenize call.
type TokenResult struct {
	Status enums.TokenStatus
	Token  string
	Errors []ProviderError
}

// Provider creates SDK instances for an application/location pair.
type Provider interface {
	Payments(ctx context.Context, cfg SDKConfig) (SDK, error)
}

// SDK creates card fields.
type SDK interface {
	Card(ctx context.Context) (Card, error)
}

// Card is a hosted card entry field.
type Card interface {
	Attach(ctx context.Context, containerID string) error
	Tokenize(ctx context.Context) (TokenResult, error)
	Destroy() error
}
