// Package squarefield implements the card field provider on top of Square's Web
// Payments contract: payments(applicationId, locationId), card(), attach, tokenize and
// destroy.
package squarefield

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/rmjobsites-storefront/internal/payments"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/square"
)

// LocationVerifier checks a Square location before the SDK is handed out.
type LocationVerifier interface {
	VerifyLocation(ctx context.Context, locationID string) (*sq.Location, error)
}

// Option customizes the provider.
type Option func(*Provider)

// WithLocationVerifier enables location checks through the Square API.
func WithLocationVerifier(v LocationVerifier) Option {
	return func(p *Provider) {
		p.verifier = v
	}
}

// WithClock overrides the clock used for card expiry checks.
func WithClock(now func() time.Time) Option {
	return func(p *Provider) {
		if now != nil {
			p.now = now
		}
	}
}

// Provider is the Square card provider.
type Provider struct {
	containers *Containers
	verifier   LocationVerifier
	now        func() time.Time
	logger     *logger.Logger
}

// NewProvider wires the provider over the container registry.
func NewProvider(containers *Containers, logg *logger.Logger, opts ...Option) (*Provider, error) {
	if containers == nil {
		return nil, errors.New("card containers required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	p := &Provider{containers: containers, now: time.Now, logger: logg}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p, nil
}

// Payments validates the application/location pair and returns an SDK instance.
func (p *Provider) Payments(ctx context.Context, cfg payments.SDKConfig) (payments.SDK, error) {
	env, err := square.NormalizeEnv(cfg.Environment)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid square environment")
	}
	if err := square.ValidateApplicationID(env, cfg.ApplicationID); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid square application id")
	}
	locationID := strings.TrimSpace(cfg.LocationID)
	if locationID == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "square location id is required")
	}
	if p.verifier != nil {
		if _, err := p.verifier.VerifyLocation(ctx, locationID); err != nil {
			return nil, err
		}
	}

	logCtx := p.logger.WithFields(ctx, map[string]any{"square_env": env, "location_id": locationID})
	p.logger.Info(logCtx, "squarefield.sdk_ready")
	return &sdk{provider: p, environment: env, locationID: locationID}, nil
}

type sdk struct {
	provider    *Provider
	environment string
	locationID  string
}

func (s *sdk) Card(context.Context) (payments.Card, error) {
	return &card{sdk: s}, nil
}

type card struct {
	sdk *sdk

	mu          sync.Mutex
	containerID string
	destroyed   bool
}

func (c *card) Attach(ctx context.Context, containerID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return errors.New("card field destroyed")
	}
	if c.containerID != "" {
		return errors.New("card field already attached")
	}
	if err := c.sdk.provider.containers.attach(containerID, c); err != nil {
		return err
	}
	c.containerID = containerID
	return nil
}

func (c *card) Tokenize(ctx context.Context) (payments.TokenResult, error) {
	if err := ctx.Err(); err != nil {
		return payments.TokenResult{}, err
	}
	c.mu.Lock()
	containerID, destroyed := c.containerID, c.destroyed
	c.mu.Unlock()
	if destroyed || containerID == "" {
		return payments.TokenResult{Status: enums.TokenStatusError}, nil
	}

	entry, nonce, ok := c.sdk.provider.containers.read(containerID, c)
	if !ok {
		return payments.TokenResult{Status: enums.TokenStatusError}, nil
	}
	if nonce != "" {
		return payments.TokenResult{Status: enums.TokenStatusOK, Token: nonce}, nil
	}
	if entry == nil {
		return invalid(fieldErr(square.ErrorCodeInvalidCard, "cardNumber", "Card details are required.")), nil
	}
	if c.sdk.environment != square.SandboxEnv {
		// production card data is only tokenized by the hosted page
		return invalid(fieldErr(square.ErrorCodeInvalidCard, "cardNumber", "Card must be entered in the hosted payment form.")), nil
	}

	token, _, errs := square.SandboxTokenize(*entry, c.sdk.provider.now())
	if len(errs) > 0 {
		return invalid(errs...), nil
	}
	return payments.TokenResult{Status: enums.TokenStatusOK, Token: token}, nil
}

func (c *card) Destroy() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.destroyed {
		return nil
	}
	if c.containerID != "" {
		c.sdk.provider.containers.release(c.containerID, c)
	}
	c.destroyed = true
	c.containerID = ""
	return nil
}

func invalid(errs ...*sq.Error) payments.TokenResult {
	result := payments.TokenResult{Status: enums.TokenStatusInvalid}
	for _, e := range errs {
		if e == nil {
			continue
		}
		result.Errors = append(result.Errors, payments.ProviderError{
			Code:    string(e.Code),
			Field:   deref(e.Field),
			Message: deref(e.Detail),
		})
	}
	return result
}

func fieldErr(code sq.ErrorCode, field, detail string) *sq.Error {
	return &sq.Error{
		Category: sq.ErrorCategoryInvalidRequestError,
		Code:     code,
		Field:    &field,
		Detail:   &detail,
	}
}

func deref(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
