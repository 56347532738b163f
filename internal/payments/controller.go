package payments

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
)

const tokenizationFailedPrefix = "Payment tokenization failed"

// Controller owns the card provider SDK and the single live card field.
type Controller struct {
	provider Provider
	logger   *logger.Logger
	metrics  *metrics.Storefront
	init     singleflight.Group

	mu          sync.Mutex
	state       enums.PaymentFieldState
	sdk         SDK
	sdkConfig   SDKConfig
	card        Card
	containerID string
}

// NewController wires the controller. metrics may be nil.
func NewController(provider Provider, logg *logger.Logger, m *metrics.Storefront) (*Controller, error) {
	if provider == nil {
		return nil, errors.New("payment provider required")
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Controller{
		provider: provider,
		logger:   logg,
		metrics:  m,
		state:    enums.PaymentFieldUninitialized,
	}, nil
}

// State reports the current field lifecycle state.
func (c *Controller) State() enums.PaymentFieldState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Attached reports whether a field is alive and the container it lives in.
func (c *Controller) Attached() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.containerID, c.card != nil
}

// InitializeSDK creates the provider SDK once. Later calls return the existing
// instance; concurrent first calls share a single initialization.
func (c *Controller) InitializeSDK(ctx context.Context, cfg SDKConfig) (SDK, error) {
	c.mu.Lock()
	if c.sdk != nil {
		sdk := c.sdk
		if cfg != c.sdkConfig {
			c.logger.Warn(c.logger.WithField(ctx, "location_id", cfg.LocationID), "payments.sdk_config_ignored")
		}
		c.mu.Unlock()
		return sdk, nil
	}
	c.mu.Unlock()

	// the shared initialization outlives any single caller; a cancelled caller only
	// stops waiting
	initCtx := context.WithoutCancel(ctx)
	ch := c.init.DoChan("sdk", func() (any, error) {
		c.mu.Lock()
		existing := c.sdk
		c.mu.Unlock()
		if existing != nil {
			return existing, nil
		}

		start := time.Now()
		sdk, err := c.provider.Payments(initCtx, cfg)
		c.metrics.ObserveStep(metrics.StepSDKInit, time.Since(start), err)
		if err != nil {
			return nil, err
		}
		if sdk == nil {
			return nil, errors.New("provider returned no sdk")
		}

		c.mu.Lock()
		defer c.mu.Unlock()
		if c.sdk == nil {
			c.sdk = sdk
			c.sdkConfig = cfg
			c.state = enums.PaymentFieldSDKReady
		}
		return c.sdk, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			c.logger.Error(ctx, "payments.sdk_init_failed", res.Err)
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, res.Err, "payment sdk initialization failed")
		}
		return res.Val.(SDK), nil
	}
}

// AttachField creates a card field in containerID. A field that is already attached
// is destroyed first, so at most one field is ever alive.
func (c *Controller) AttachField(ctx context.Context, containerID string) error {
	containerID = strings.TrimSpace(containerID)
	if containerID == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "container id is required")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.sdk == nil {
		return pkgerrors.New(pkgerrors.CodeSDKNotInitialized, "payment sdk is not initialized")
	}
	if c.card != nil {
		c.detachLocked(ctx)
	}

	card, err := c.sdk.Card(ctx)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create card field")
	}
	if err := card.Attach(ctx, containerID); err != nil {
		if destroyErr := card.Destroy(); destroyErr != nil {
			c.logger.Warn(c.logger.WithField(ctx, "error", destroyErr.Error()), "payments.destroy_failed")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "attach card field")
	}

	c.card = card
	c.containerID = containerID
	c.state = enums.PaymentFieldAttached
	c.logger.Debug(c.logger.WithField(ctx, "container_id", containerID), "payments.field_attached")
	return nil
}

// Tokenize exchanges the card entry for a single-use token.
func (c *Controller) Tokenize(ctx context.Context) (string, error) {
	c.mu.Lock()
	card := c.card
	switch {
	case card == nil:
		c.mu.Unlock()
		return "", pkgerrors.New(pkgerrors.CodeFieldNotAttached, "payment field is not attached")
	case c.state == enums.PaymentFieldTokenizing:
		c.mu.Unlock()
		return "", pkgerrors.New(pkgerrors.CodeStateConflict, "tokenization already in progress")
	}
	c.state = enums.PaymentFieldTokenizing
	c.mu.Unlock()

	start := time.Now()
	result, err := card.Tokenize(ctx)
	token, err := tokenFromResult(result, err)
	c.metrics.ObserveStep(metrics.StepTokenize, time.Since(start), err)

	c.mu.Lock()
	if c.card == card {
		if err != nil {
			c.state = enums.PaymentFieldTokenFailed
		} else {
			c.state = enums.PaymentFieldTokenIssued
		}
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Warn(c.logger.WithField(ctx, "token_status", result.Status.String()), "payments.tokenize_failed")
		return "", err
	}
	return token, nil
}

// DetachField destroys the live field. Safe to call when nothing is attached.
func (c *Controller) DetachField() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.detachLocked(context.Background())
}

func (c *Controller) detachLocked(ctx context.Context) {
	if c.card == nil {
		return
	}
	if err := c.card.Destroy(); err != nil {
		c.logger.Warn(c.logger.WithField(ctx, "error", err.Error()), "payments.destroy_failed")
	}
	c.card = nil
	c.containerID = ""
	if c.sdk != nil {
		c.state = enums.PaymentFieldSDKReady
	} else {
		c.state = enums.PaymentFieldUninitialized
	}
}

func tokenFromResult(result TokenResult, err error) (string, error) {
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeTokenization, err, tokenizationFailedPrefix)
	}
	if result.Status == enums.TokenStatusOK && result.Token != "" {
		return result.Token, nil
	}
	return "", pkgerrors.New(pkgerrors.CodeTokenization, tokenizationMessage(result)).
		WithDetails(result.Errors)
}

// tokenizationMessage joins every provider message, falling back to the status.
func tokenizationMessage(result TokenResult) string {
	reasons := make([]string, 0, len(result.Errors))
	for _, perr := range result.Errors {
		msg := strings.TrimSpace(perr.Message)
		if msg == "" {
			msg = strings.TrimSpace(perr.Code)
		}
		if msg != "" {
			reasons = append(reasons, msg)
		}
	}
	if len(reasons) == 0 {
		status := result.Status.String()
		if result.Status == enums.TokenStatusOK {
			status = "missing token"
		}
		if status == "" {
			status = string(enums.TokenStatusUnknown)
		}
		reasons = append(reasons, status)
	}
	return tokenizationFailedPrefix + ": " + strings.Join(reasons, ", ")
}
