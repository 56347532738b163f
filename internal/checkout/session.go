package checkout

import (
	"context"
	"sync"
	"time"

	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	"github.com/angelmondragon/rmjobsites-storefront/internal/payments"
	"github.com/angelmondragon/rmjobsites-storefront/internal/pricing"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/metrics"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

const (
	paymentFormFailure = "Failed to load payment form. Please refresh the page."
	orderFailure       = "Payment failed. Please try again."

	// RedirectCart and RedirectConfirmation are the views a finished session sends
	// the customer to.
	RedirectCart         = "/cart"
	RedirectConfirmation = "/orders/confirmation"
)

// View is a point-in-time snapshot of a session for rendering.
type View struct {
	SessionID      string                `json:"session_id"`
	State          enums.CheckoutState   `json:"state"`
	Items          []cart.Item           `json:"items"`
	ItemCount      int                   `json:"item_count"`
	Subtotal       int64                 `json:"subtotal"`
	Summary        *pricing.OrderSummary `json:"summary,omitempty"`
	PricingPending bool                  `json:"pricing_pending"`
	PricingError   string                `json:"pricing_error,omitempty"`
	PaymentPending bool                  `json:"payment_pending"`
	PaymentReady   bool                  `json:"payment_ready"`
	PaymentError   string                `json:"payment_error,omitempty"`
	SubmitError    string                `json:"submit_error,omitempty"`
	CanSubmit      bool                  `json:"can_submit"`
	Redirect       string                `json:"redirect,omitempty"`
	Receipt        *Receipt              `json:"receipt,omitempty"`
}

// Session is one checkout visit. It is created by Orchestrator.Enter and ends with
// Exit, a completed order, or a cart that became empty.
type Session struct {
	id      string
	o       *Orchestrator
	ctx     context.Context
	cancel  context.CancelFunc
	started time.Time

	mu             sync.Mutex
	state          enums.CheckoutState
	entryPending   int
	generation     uint64
	requestedKey   string
	summary        *pricing.OrderSummary
	pricingPending bool
	pricingErr     string
	paymentPending bool
	paymentReady   bool
	paymentErr     string
	submitErr      string
	orderCompleted bool
	receipt        *Receipt
	inflight       int
	idle           chan struct{}

	// fieldMu orders the entry attach against the release detach so an attach that
	// lands after exit is always torn down. It also guards unsubscribe.
	fieldMu     sync.Mutex
	released    bool
	releaseOnce sync.Once
	unsubscribe func()
}

func newSession(o *Orchestrator, parent context.Context) *Session {
	id := o.newKey()
	// entry work belongs to the session, not to the request that created it
	ctx, cancel := context.WithCancel(context.WithoutCancel(parent))
	ctx = o.logger.WithSessionID(ctx, id)
	idle := make(chan struct{})
	close(idle)
	return &Session{
		id:      id,
		o:       o,
		ctx:     ctx,
		cancel:  cancel,
		started: time.Now(),
		state:   enums.CheckoutStateEntering,
		idle:    idle,
	}
}

// ID identifies the session in logs and views.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) start() {
	s.mu.Lock()
	s.entryPending = 2
	s.paymentPending = true
	s.mu.Unlock()

	unsubscribe := s.o.cart.Subscribe(s.onCartChange)
	s.fieldMu.Lock()
	if s.released {
		s.fieldMu.Unlock()
		unsubscribe()
	} else {
		s.unsubscribe = unsubscribe
		s.fieldMu.Unlock()
	}

	s.beginTask()
	go s.preparePayment()

	lines := s.o.cart.LineItems()
	if !s.startPricing(lines, true) {
		s.finishEntryStep()
	}
	s.o.logger.Info(s.ctx, "checkout.entered")
}

func (s *Session) preparePayment() {
	defer s.endTask()
	defer s.finishEntryStep()

	err := s.initializePayment()

	s.mu.Lock()
	defer s.mu.Unlock()
	s.paymentPending = false
	if s.state.IsTerminal() {
		return
	}
	if err != nil {
		s.paymentErr = paymentFormFailure
		s.o.logger.Error(s.ctx, "checkout.payment_form_failed", err)
		return
	}
	s.paymentReady = true
}

func (s *Session) initializePayment() error {
	cfg, err := s.o.api.SquareConfig(s.ctx)
	if err != nil {
		return err
	}
	if _, err := s.o.field.InitializeSDK(s.ctx, payments.SDKConfig{
		ApplicationID: cfg.ApplicationID,
		LocationID:    cfg.LocationID,
		Environment:   cfg.Environment,
	}); err != nil {
		return err
	}

	s.fieldMu.Lock()
	defer s.fieldMu.Unlock()
	if s.released {
		return s.ctx.Err()
	}
	return s.o.field.AttachField(s.ctx, s.o.containerID)
}

// startPricing issues a pricing request for lines under a new generation. It reports
// false when nothing was started.
func (s *Session) startPricing(lines []cart.LineItem, entry bool) bool {
	s.mu.Lock()
	if s.state.IsTerminal() || len(lines) == 0 {
		s.mu.Unlock()
		return false
	}
	s.generation++
	gen := s.generation
	s.requestedKey = pricing.Key(lines)
	s.pricingPending = true
	s.pricingErr = ""
	s.beginTaskLocked()
	s.mu.Unlock()

	go func() {
		defer s.endTask()
		if entry {
			defer s.finishEntryStep()
		}
		summary, err := s.o.pricer.Calculate(s.ctx, lines)

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.state.IsTerminal() || gen != s.generation {
			// superseded or ended; the result no longer describes this session
			return
		}
		s.pricingPending = false
		if err != nil {
			s.pricingErr = pkgerrors.PublicMessage(err)
			return
		}
		s.summary = &summary
	}()
	return true
}

func (s *Session) finishEntryStep() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entryPending--
	if s.entryPending > 0 {
		return
	}
	if s.state == enums.CheckoutStateEntering {
		s.state = enums.CheckoutStateReady
	}
	var err error
	if s.pricingErr != "" || s.paymentErr != "" {
		err = pkgerrors.New(pkgerrors.CodeDependency, "checkout entry incomplete")
	}
	s.o.metrics.ObserveStep(metrics.StepEnter, time.Since(s.started), err)
}

// onCartChange reprices on content changes and redirects when the cart empties.
// It runs inside the cart's notification and must not touch the cart.
func (s *Session) onCartChange(items []cart.Item) {
	s.mu.Lock()
	if s.state.IsTerminal() {
		s.mu.Unlock()
		return
	}
	if len(items) == 0 {
		if s.orderCompleted {
			s.mu.Unlock()
			return
		}
		s.state = enums.CheckoutStateRedirected
		s.mu.Unlock()
		s.o.logger.Info(s.ctx, "checkout.cart_emptied")
		s.release()
		return
	}
	lines := cart.LineItems(items)
	unchanged := pricing.Key(lines) == s.requestedKey
	s.mu.Unlock()
	if !unchanged {
		s.startPricing(lines, false)
	}
}

// RetryPricing re-issues pricing for the current cart and waits for it.
func (s *Session) RetryPricing(ctx context.Context) error {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()
	if state.IsTerminal() || state == enums.CheckoutStateSubmitting {
		return pkgerrors.New(pkgerrors.CodeStateConflict, "checkout cannot be repriced now")
	}
	s.startPricing(s.o.cart.LineItems(), false)
	return s.Wait(ctx)
}

// Wait blocks until entry work and any in-flight pricing have settled.
func (s *Session) Wait(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.inflight == 0 {
			s.mu.Unlock()
			return nil
		}
		idle := s.idle
		s.mu.Unlock()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-idle:
		}
	}
}

func (s *Session) beginTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.beginTaskLocked()
}

func (s *Session) beginTaskLocked() {
	if s.inflight == 0 {
		s.idle = make(chan struct{})
	}
	s.inflight++
}

func (s *Session) endTask() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inflight--
	if s.inflight == 0 {
		close(s.idle)
	}
}

func (s *Session) canSubmitLocked() bool {
	return s.state == enums.CheckoutStateReady &&
		s.paymentReady &&
		s.summary != nil &&
		!s.pricingPending &&
		s.pricingErr == ""
}

// View snapshots the session.
func (s *Session) View() View {
	items := s.o.cart.Items()

	s.mu.Lock()
	defer s.mu.Unlock()
	view := View{
		SessionID:      s.id,
		State:          s.state,
		Items:          items,
		ItemCount:      cart.ItemCount(items),
		Subtotal:       cart.Subtotal(items),
		PricingPending: s.pricingPending,
		PricingError:   s.pricingErr,
		PaymentPending: s.paymentPending,
		PaymentReady:   s.paymentReady,
		PaymentError:   s.paymentErr,
		SubmitError:    s.submitErr,
		CanSubmit:      s.canSubmitLocked(),
		Receipt:        s.receipt,
	}
	if s.summary != nil {
		summary := *s.summary
		view.Summary = &summary
	}
	switch s.state {
	case enums.CheckoutStateRedirected:
		view.Redirect = RedirectCart
	case enums.CheckoutStateCompleted:
		view.Redirect = RedirectConfirmation
	}
	return view
}

// Submit validates the form, tokenizes the card and creates the order. On success the
// cart is cleared once and the receipt returned. On failure the session returns to
// ready with the cart and form untouched.
func (s *Session) Submit(ctx context.Context, in SubmitInput) (*Receipt, error) {
	in = in.normalized()

	s.mu.Lock()
	switch {
	case s.state == enums.CheckoutStateSubmitting:
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "order submission already in progress")
	case s.state.IsTerminal():
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout session has ended")
	case !s.canSubmitLocked():
		s.mu.Unlock()
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "checkout is not ready")
	}
	if err := in.Validate(); err != nil {
		s.submitErr = pkgerrors.PublicMessage(err)
		s.mu.Unlock()
		return nil, err
	}
	s.state = enums.CheckoutStateSubmitting
	s.submitErr = ""
	s.mu.Unlock()

	lines := s.o.cart.LineItems()
	ctx = s.o.logger.WithSessionID(ctx, s.id)

	token, err := s.o.field.Tokenize(ctx)
	if err != nil {
		return nil, s.failSubmit(ctx, err)
	}

	req := storefront.CreateOrderRequest{
		LineItems:       pricing.OrderLines(lines),
		PaymentToken:    token,
		CustomerInfo:    in.customerInfo(),
		ShippingAddress: in.shippingAddress(),
	}
	start := time.Now()
	resp, err := s.o.api.CreateOrder(ctx, req, s.o.newKey())
	if err == nil && (resp == nil || resp.Order == nil || resp.Order.Order == nil) {
		err = pkgerrors.New(pkgerrors.CodeOrderCreation, orderFailure)
	}
	s.o.metrics.ObserveStep(metrics.StepOrder, time.Since(start), err)
	if err != nil {
		return nil, s.failSubmit(ctx, orderCreationError(err))
	}

	receipt := &Receipt{Order: resp.Order, Payment: resp.Payment}
	s.mu.Lock()
	s.orderCompleted = true
	s.receipt = receipt
	if s.state == enums.CheckoutStateSubmitting {
		s.state = enums.CheckoutStateCompleted
	}
	s.mu.Unlock()
	s.o.confirm(receipt)

	s.o.cart.Clear(ctx)
	s.release()
	s.o.logger.Info(s.o.logger.WithOrderID(ctx, str(resp.Order.GetID())), "checkout.order_completed")
	return receipt, nil
}

func (s *Session) failSubmit(ctx context.Context, err error) error {
	s.mu.Lock()
	if s.state == enums.CheckoutStateSubmitting {
		s.state = enums.CheckoutStateReady
	}
	s.submitErr = pkgerrors.PublicMessage(err)
	s.mu.Unlock()
	s.o.logger.Warn(s.o.logger.WithField(ctx, "error", err.Error()), "checkout.submit_failed")
	return err
}

func orderCreationError(err error) error {
	if pkgerrors.IsCode(err, pkgerrors.CodeOrderCreation) {
		return err
	}
	message := orderFailure
	if typed := pkgerrors.As(err); typed != nil && typed.Message() != "" {
		message = typed.Message()
	}
	return pkgerrors.Wrap(pkgerrors.CodeOrderCreation, err, message)
}

// Exit ends the session: in-flight work is cancelled, the field detached and the cart
// subscription dropped. Safe to call more than once.
func (s *Session) Exit() {
	s.mu.Lock()
	if !s.state.IsTerminal() {
		s.state = enums.CheckoutStateExited
	}
	s.mu.Unlock()
	s.release()
	s.o.forget(s)
}

func (s *Session) release() {
	s.releaseOnce.Do(func() {
		s.cancel()

		s.fieldMu.Lock()
		s.released = true
		s.o.field.DetachField()
		unsubscribe := s.unsubscribe
		s.unsubscribe = nil
		s.fieldMu.Unlock()

		if unsubscribe != nil {
			unsubscribe()
		}
		s.o.logger.Debug(s.ctx, "checkout.released")
	})
}
