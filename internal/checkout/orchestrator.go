// Package checkout sequences payment SDK setup, order pricing, form validation,
// tokenization and order creation into one checkout session.
package checkout

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	"github.com/angelmondragon/rmjobsites-storefront/internal/payments"
	"github.com/angelmondragon/rmjobsites-storefront/internal/pricing"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// DefaultCardContainerID is the container the card field attaches to.
const DefaultCardContainerID = "card-container"

// ErrEmptyCart is returned by Enter when there is nothing to check out.
var ErrEmptyCart = errors.New("checkout: cart is empty")

// Cart is the part of the cart aggregate checkout depends on.
type Cart interface {
	Hydrate(ctx context.Context)
	Items() []cart.Item
	LineItems() []cart.LineItem
	IsEmpty() bool
	Clear(ctx context.Context)
	Subscribe(fn cart.Listener) func()
}

// Pricer computes order totals.
type Pricer interface {
	Calculate(ctx context.Context, lines []cart.LineItem) (pricing.OrderSummary, error)
}

// PaymentField is the payment field controller.
type PaymentField interface {
	InitializeSDK(ctx context.Context, cfg payments.SDKConfig) (payments.SDK, error)
	AttachField(ctx context.Context, containerID string) error
	Tokenize(ctx context.Context) (string, error)
	DetachField()
}

// OrderAPI is the remote API used for payment configuration and order creation.
type OrderAPI interface {
	SquareConfig(ctx context.Context) (*storefront.SquareConfig, error)
	CreateOrder(ctx context.Context, req storefront.CreateOrderRequest, idempotencyKey string) (*storefront.CreateOrderResponse, error)
}

// Deps groups the orchestrator collaborators.
type Deps struct {
	Cart            Cart
	Pricer          Pricer
	Payments        PaymentField
	API             OrderAPI
	Logger          *logger.Logger
	Metrics         *metrics.Storefront
	CardContainerID string
	// NewKey generates order idempotency keys and session ids; defaults to uuid.
	NewKey func() string
}

// Orchestrator creates checkout sessions. At most one session is live at a time.
type Orchestrator struct {
	cart        Cart
	pricer      Pricer
	field       PaymentField
	api         OrderAPI
	logger      *logger.Logger
	metrics     *metrics.Storefront
	containerID string
	newKey      func() string

	mu      sync.Mutex
	current *Session
	// confirmed is the receipt of the last completed order until the confirmation view
	// takes it.
	confirmed *Receipt
}

// NewOrchestrator validates the collaborators.
func NewOrchestrator(deps Deps) (*Orchestrator, error) {
	switch {
	case deps.Cart == nil:
		return nil, errors.New("cart required")
	case deps.Pricer == nil:
		return nil, errors.New("pricer required")
	case deps.Payments == nil:
		return nil, errors.New("payment field controller required")
	case deps.API == nil:
		return nil, errors.New("order api required")
	}
	o := &Orchestrator{
		cart:        deps.Cart,
		pricer:      deps.Pricer,
		field:       deps.Payments,
		api:         deps.API,
		logger:      deps.Logger,
		metrics:     deps.Metrics,
		containerID: strings.TrimSpace(deps.CardContainerID),
		newKey:      deps.NewKey,
	}
	if o.logger == nil {
		o.logger = logger.Nop()
	}
	if o.containerID == "" {
		o.containerID = DefaultCardContainerID
	}
	if o.newKey == nil {
		o.newKey = func() string { return uuid.NewString() }
	}
	return o, nil
}

// Enter starts a checkout session. Any live session is exited first. An empty cart
// fails with EMPTY_CART and no session is created.
func (o *Orchestrator) Enter(ctx context.Context) (*Session, error) {
	o.mu.Lock()
	previous := o.current
	o.current = nil
	o.mu.Unlock()
	if previous != nil {
		previous.Exit()
	}

	o.cart.Hydrate(ctx)
	if o.cart.IsEmpty() {
		return nil, pkgerrors.Wrap(pkgerrors.CodeEmptyCart, ErrEmptyCart, "cart is empty")
	}

	session := newSession(o, ctx)

	o.mu.Lock()
	displaced := o.current
	o.current = session
	o.mu.Unlock()
	if displaced != nil {
		displaced.Exit()
	}

	session.start()
	return session, nil
}

// Current returns the live session, if any.
func (o *Orchestrator) Current() *Session {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.current
}

// Exit ends the live session, if any.
func (o *Orchestrator) Exit() {
	o.mu.Lock()
	session := o.current
	o.current = nil
	o.mu.Unlock()
	if session != nil {
		session.Exit()
	}
}

func (o *Orchestrator) forget(s *Session) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.current == s {
		o.current = nil
	}
}

// TakeConfirmation hands the last completed order's receipt to the confirmation view.
// The receipt is returned once.
func (o *Orchestrator) TakeConfirmation() (*Receipt, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	receipt := o.confirmed
	o.confirmed = nil
	return receipt, receipt != nil
}

func (o *Orchestrator) confirm(receipt *Receipt) {
	o.mu.Lock()
	o.confirmed = receipt
	o.mu.Unlock()
}
