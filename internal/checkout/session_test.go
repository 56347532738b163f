package checkout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/rmjobsites-storefront/internal/cart"
	"github.com/angelmondragon/rmjobsites-storefront/internal/payments"
	"github.com/angelmondragon/rmjobsites-storefront/internal/pricing"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/enums"
	pkgerrors "github.com/angelmondragon/rmjobsites-storefront/pkg/errors"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/kv"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/logger"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

type pricingCall struct {
	lines   []cart.LineItem
	release chan struct{}
}

type fakePricer struct {
	mu    sync.Mutex
	calls []*pricingCall
	err   error
	hold  bool
}

func (p *fakePricer) Calculate(ctx context.Context, lines []cart.LineItem) (pricing.OrderSummary, error) {
	p.mu.Lock()
	call := &pricingCall{lines: lines, release: make(chan struct{})}
	p.calls = append(p.calls, call)
	hold, err := p.hold, p.err
	p.mu.Unlock()

	if hold {
		select {
		case <-call.release:
		case <-ctx.Done():
			return pricing.OrderSummary{}, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, ctx.Err(), pricing.FailureMessage)
		}
	}
	if err != nil {
		return pricing.OrderSummary{}, pkgerrors.Wrap(pkgerrors.CodePricingUnavailable, err, pricing.FailureMessage)
	}
	var subtotal int64
	for _, line := range lines {
		subtotal += int64(line.Quantity) * 100
	}
	return pricing.OrderSummary{Subtotal: subtotal, Tax: subtotal / 10, Total: subtotal + subtotal/10}, nil
}

func (p *fakePricer) call(i int) *pricingCall {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i >= len(p.calls) {
		return nil
	}
	return p.calls[i]
}

func (p *fakePricer) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.calls)
}

type fakeField struct {
	mu        sync.Mutex
	initErr   error
	attached  bool
	attaches  int
	detaches  int
	token     string
	tokenErr  error
	tokenized int

	// detachStarted and detachGate, when set, park DetachField until the gate closes.
	detachStarted chan struct{}
	detachGate    chan struct{}
}

func (f *fakeField) InitializeSDK(context.Context, payments.SDKConfig) (payments.SDK, error) {
	return nil, f.initErr
}

func (f *fakeField) AttachField(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attaches++
	f.attached = true
	return nil
}

func (f *fakeField) Tokenize(context.Context) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenized++
	if !f.attached {
		return "", pkgerrors.New(pkgerrors.CodeFieldNotAttached, "payment field is not attached")
	}
	return f.token, f.tokenErr
}

func (f *fakeField) DetachField() {
	f.mu.Lock()
	started, gate := f.detachStarted, f.detachGate
	f.detachStarted, f.detachGate = nil, nil
	f.mu.Unlock()
	if gate != nil {
		close(started)
		<-gate
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.attached {
		f.detaches++
	}
	f.attached = false
}

func (f *fakeField) isAttached() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.attached
}

type fakeAPI struct {
	mu        sync.Mutex
	configErr error
	orderErr  error
	orders    []storefront.CreateOrderRequest
	keys      []string
}

func (a *fakeAPI) SquareConfig(context.Context) (*storefront.SquareConfig, error) {
	if a.configErr != nil {
		return nil, a.configErr
	}
	return &storefront.SquareConfig{ApplicationID: "sandbox-app", LocationID: "L1", Environment: "sandbox"}, nil
}

func (a *fakeAPI) CreateOrder(_ context.Context, req storefront.CreateOrderRequest, key string) (*storefront.CreateOrderResponse, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.orders = append(a.orders, req)
	a.keys = append(a.keys, key)
	if a.orderErr != nil {
		return nil, a.orderErr
	}
	orderID := fmt.Sprintf("order-%d", len(a.orders))
	state := sq.OrderState("OPEN")
	return &storefront.CreateOrderResponse{Order: &storefront.Order{Order: &sq.Order{ID: &orderID, State: &state}}}, nil
}

func (a *fakeAPI) orderCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.orders)
}

type harness struct {
	cart    *cart.Cart
	store   *cart.Store
	backend *kv.Memory
	pricer  *fakePricer
	field   *fakeField
	api     *fakeAPI
	orch    *Orchestrator
}

func newHarness(t *testing.T, items ...cart.NewItem) *harness {
	t.Helper()
	backend := kv.NewMemory()
	store, err := cart.NewStore(backend, logger.Nop())
	if err != nil {
		t.Fatalf("store: %v", err)
	}
	c, err := cart.New(store)
	if err != nil {
		t.Fatalf("cart: %v", err)
	}
	for _, item := range items {
		if err := c.AddItem(context.Background(), item); err != nil {
			t.Fatalf("add: %v", err)
		}
	}
	h := &harness{
		cart:    c,
		store:   store,
		backend: backend,
		pricer:  &fakePricer{},
		field:   &fakeField{token: "cnon:card-nonce-ok"},
		api:     &fakeAPI{},
	}
	keys := 0
	h.orch, err = NewOrchestrator(Deps{
		Cart:     c,
		Pricer:   h.pricer,
		Payments: h.field,
		API:      h.api,
		Logger:   logger.Nop(),
		NewKey: func() string {
			keys++
			return fmt.Sprintf("key-%d", keys)
		},
	})
	if err != nil {
		t.Fatalf("orchestrator: %v", err)
	}
	return h
}

func item(id string, price int64) cart.NewItem {
	return cart.NewItem{ProductID: "P-" + id, VariationID: id, ProductName: "Item " + id, Price: price}
}

func enterReady(t *testing.T, h *harness) *Session {
	t.Helper()
	session, err := h.orch.Enter(context.Background())
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	waitSettled(t, session)
	return session
}

func waitSettled(t *testing.T, s *Session) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := s.Wait(ctx); err != nil {
		t.Fatalf("wait: %v", err)
	}
}

func validInput() SubmitInput {
	return SubmitInput{Email: "crew@rmjobsites.com", GivenName: "Pat", FamilyName: "Lee"}
}

func TestEnterEmptyCartRedirects(t *testing.T) {
	t.Parallel()

	h := newHarness(t)
	session, err := h.orch.Enter(context.Background())
	if session != nil {
		t.Fatal("expected no session for empty cart")
	}
	if !errors.Is(err, ErrEmptyCart) || !pkgerrors.IsCode(err, pkgerrors.CodeEmptyCart) {
		t.Fatalf("expected empty cart error, got %v", err)
	}
	if h.pricer.count() != 0 || h.field.attaches != 0 {
		t.Fatal("no entry work should start for an empty cart")
	}
}

func TestEnterReadiesSession(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500), item("V1", 500), item("V2", 1200))
	session := enterReady(t, h)

	view := session.View()
	if view.State != enums.CheckoutStateReady {
		t.Fatalf("expected ready, got %s", view.State)
	}
	if !view.CanSubmit || !view.PaymentReady {
		t.Fatalf("expected submittable view, got %+v", view)
	}
	if view.Summary == nil || view.Summary.Subtotal != 300 {
		t.Fatalf("unexpected summary %+v", view.Summary)
	}
	if view.Subtotal != 2200 || view.ItemCount != 3 {
		t.Fatalf("unexpected cart totals %d/%d", view.Subtotal, view.ItemCount)
	}
	if got := h.pricer.call(0).lines; len(got) != 2 || got[0].Quantity != 2 {
		t.Fatalf("unexpected priced lines %+v", got)
	}
}

func TestPricingFailureKeepsSubmitDisabled(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500), item("V2", 1200))
	h.pricer.err = errors.New("network down")
	before := h.cart.Items()

	session := enterReady(t, h)
	view := session.View()

	if view.CanSubmit {
		t.Fatal("submit must stay disabled when pricing failed")
	}
	if view.PricingError != pricing.FailureMessage {
		t.Fatalf("expected inline pricing error, got %q", view.PricingError)
	}
	if !view.PaymentReady {
		t.Fatal("payment form must stay usable when pricing fails")
	}
	if fmt.Sprint(h.cart.Items()) != fmt.Sprint(before) {
		t.Fatal("cart must be unchanged")
	}
	if _, err := session.Submit(context.Background(), validInput()); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("expected submit to be rejected, got %v", err)
	}
	if h.api.orderCount() != 0 {
		t.Fatal("no order may be created")
	}

	h.pricer.mu.Lock()
	h.pricer.err = nil
	h.pricer.mu.Unlock()
	if err := session.RetryPricing(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if view := session.View(); !view.CanSubmit || view.PricingError != "" {
		t.Fatalf("expected recovery after retry, got %+v", view)
	}
}

func TestPaymentFormFailureIsReported(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	h.api.configErr = pkgerrors.New(pkgerrors.CodeDependency, "config unavailable")

	session := enterReady(t, h)
	view := session.View()
	if view.PaymentError != "Failed to load payment form. Please refresh the page." {
		t.Fatalf("unexpected payment error %q", view.PaymentError)
	}
	if view.CanSubmit {
		t.Fatal("submit must be disabled without a payment field")
	}
	if view.Summary == nil {
		t.Fatal("pricing must complete independently of the payment form")
	}
}

func TestTokenizationFailureReturnsToReady(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500), item("V2", 1200))
	sdk := &scriptedSDK{result: payments.TokenResult{
		Status: enums.TokenStatusInvalid,
		Errors: []payments.ProviderError{{Message: "INVALID_CARD"}, {Message: "EXPIRED"}},
	}}
	controller, err := payments.NewController(&scriptedProvider{sdk: sdk}, logger.Nop(), nil)
	if err != nil {
		t.Fatalf("controller: %v", err)
	}
	h.orch.field = controller

	session := enterReady(t, h)
	_, err = session.Submit(context.Background(), validInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeTokenization) {
		t.Fatalf("expected tokenization failure, got %v", err)
	}
	want := "Payment tokenization failed: INVALID_CARD, EXPIRED"
	view := session.View()
	if view.SubmitError != want {
		t.Fatalf("expected %q, got %q", want, view.SubmitError)
	}
	if view.State != enums.CheckoutStateReady || !view.CanSubmit {
		t.Fatalf("expected ready and submittable, got %s can_submit=%v", view.State, view.CanSubmit)
	}
	if h.cart.ItemCount() != 2 {
		t.Fatal("cart must not be cleared")
	}
	if h.api.orderCount() != 0 {
		t.Fatal("no order may be created after a tokenization failure")
	}

	sdk.setResult(payments.TokenResult{Status: enums.TokenStatusOK, Token: "cnon:card-nonce-ok"})
	if _, err := session.Submit(context.Background(), validInput()); err != nil {
		t.Fatalf("retry submit: %v", err)
	}
	if sdk.destroyed() != 1 {
		t.Fatalf("expected field destroyed after completion, got %d", sdk.destroyed())
	}
}

func TestSubmitSuccessClearsCartOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500), item("V2", 1200), item("V3", 250))
	clears := 0
	h.cart.Subscribe(func(items []cart.Item) {
		if len(items) == 0 {
			clears++
		}
	})

	session := enterReady(t, h)
	receipt, err := session.Submit(context.Background(), validInput())
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if receipt == nil || str(receipt.Order.GetID()) != "order-1" {
		t.Fatalf("unexpected receipt %+v", receipt)
	}
	if h.api.orderCount() != 1 {
		t.Fatalf("expected exactly one order call, got %d", h.api.orderCount())
	}
	if clears != 1 {
		t.Fatalf("expected cart cleared once, got %d", clears)
	}
	if h.cart.ItemCount() != 0 {
		t.Fatal("expected empty cart")
	}
	if items := h.store.Load(context.Background()); len(items) != 0 {
		t.Fatalf("expected empty persisted cart, got %+v", items)
	}
	if count := h.store.Count(context.Background()); count != 0 {
		t.Fatalf("expected zero badge count, got %d", count)
	}

	view := session.View()
	if view.State != enums.CheckoutStateCompleted || view.Redirect != RedirectConfirmation {
		t.Fatalf("expected completed with confirmation redirect, got %s %q", view.State, view.Redirect)
	}
	if h.field.isAttached() {
		t.Fatal("field must be released after completion")
	}

	req := h.api.orders[0]
	if req.PaymentToken != "cnon:card-nonce-ok" || len(req.LineItems) != 3 || req.LineItems[0].Quantity != "1" {
		t.Fatalf("unexpected order request %+v", req)
	}
	if req.ShippingAddress != nil {
		t.Fatal("shipping must be omitted when no address line was given")
	}
	if _, err := session.Submit(context.Background(), validInput()); !pkgerrors.IsCode(err, pkgerrors.CodeStateConflict) {
		t.Fatalf("second submit must be rejected, got %v", err)
	}
	if h.api.orderCount() != 1 {
		t.Fatal("no second order may be created")
	}

	confirmed, ok := h.orch.TakeConfirmation()
	if !ok || confirmed != receipt {
		t.Fatal("expected receipt handed to the confirmation view")
	}
	if _, ok := h.orch.TakeConfirmation(); ok {
		t.Fatal("confirmation must be taken once")
	}
}

func TestSubmitForwardsShippingGroup(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	session := enterReady(t, h)

	in := validInput()
	in.Shipping = &ShippingInput{AddressLine1: " 12 Yard Rd ", City: "Austin", State: "TX", PostalCode: "73301"}
	if _, err := session.Submit(context.Background(), in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := h.api.orders[0].ShippingAddress
	if got == nil || got.AddressLine1 != "12 Yard Rd" || got.Locality != "Austin" || got.AdministrativeDistrictLevel1 != "TX" || got.PostalCode != "73301" {
		t.Fatalf("unexpected shipping %+v", got)
	}

	h2 := newHarness(t, item("V1", 500))
	session2 := enterReady(t, h2)
	in.Shipping = &ShippingInput{City: "Austin", State: "TX"}
	if _, err := session2.Submit(context.Background(), in); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if h2.api.orders[0].ShippingAddress != nil {
		t.Fatal("shipping without address line must be omitted")
	}
}

func TestSubmitValidatesEmail(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	session := enterReady(t, h)

	for _, email := range []string{"", "   ", "not-an-email"} {
		_, err := session.Submit(context.Background(), SubmitInput{Email: email})
		if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("email %q: expected validation error, got %v", email, err)
		}
		if !strings.HasPrefix(session.View().SubmitError, "Email ") {
			t.Fatalf("unexpected submit error %q", session.View().SubmitError)
		}
	}
	if h.field.tokenized != 0 || h.api.orderCount() != 0 {
		t.Fatal("invalid forms must not tokenize or create orders")
	}
	if session.View().State != enums.CheckoutStateReady {
		t.Fatal("session must stay ready")
	}
}

func TestOrderCreationFailurePreservesCart(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500), item("V2", 1200))
	h.api.orderErr = pkgerrors.New(pkgerrors.CodeValidation, "Card declined")

	session := enterReady(t, h)
	_, err := session.Submit(context.Background(), validInput())
	if !pkgerrors.IsCode(err, pkgerrors.CodeOrderCreation) {
		t.Fatalf("expected order creation failure, got %v", err)
	}
	view := session.View()
	if view.SubmitError != "Card declined" || view.State != enums.CheckoutStateReady {
		t.Fatalf("unexpected view after failure: %+v", view)
	}
	if h.cart.ItemCount() != 2 {
		t.Fatal("cart must be preserved")
	}

	h.api.mu.Lock()
	h.api.orderErr = errors.New("connection reset")
	h.api.mu.Unlock()
	if _, err := session.Submit(context.Background(), validInput()); err == nil {
		t.Fatal("expected failure")
	}
	if msg := session.View().SubmitError; msg != "Payment failed. Please try again." {
		t.Fatalf("unexpected fallback message %q", msg)
	}
	if h.api.keys[0] == h.api.keys[1] {
		t.Fatal("each attempt needs its own idempotency key")
	}
}

func TestStalePricingIsDiscarded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	h.pricer.hold = true
	session, err := h.orch.Enter(context.Background())
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	waitForCalls(t, h.pricer, 1)

	if err := h.cart.AddItem(context.Background(), item("V1", 500)); err != nil {
		t.Fatalf("add: %v", err)
	}
	waitForCalls(t, h.pricer, 2)

	close(h.pricer.call(1).release)
	waitForPricingSettled(t, session)
	close(h.pricer.call(0).release)
	waitSettled(t, session)

	view := session.View()
	if view.Summary == nil || view.Summary.Subtotal != 200 {
		t.Fatalf("expected summary for quantity 2, got %+v", view.Summary)
	}
	if view.PricingPending {
		t.Fatal("pricing must be settled")
	}
}

func TestUnchangedContentDoesNotReprice(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	session := enterReady(t, h)

	h.cart.UpdateQuantity(context.Background(), "V1", 1)
	h.cart.RemoveItem(context.Background(), "missing")
	waitSettled(t, session)
	if got := h.pricer.count(); got != 1 {
		t.Fatalf("expected single pricing call, got %d", got)
	}

	h.cart.UpdateQuantity(context.Background(), "V1", 4)
	waitSettled(t, session)
	if got := h.pricer.count(); got != 2 {
		t.Fatalf("expected reprice on quantity change, got %d", got)
	}
}

func TestEmptiedCartRedirects(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	session := enterReady(t, h)

	h.cart.RemoveItem(context.Background(), "V1")

	view := session.View()
	if view.State != enums.CheckoutStateRedirected || view.Redirect != RedirectCart {
		t.Fatalf("expected redirect to cart, got %s %q", view.State, view.Redirect)
	}
	if h.field.isAttached() {
		t.Fatal("field must be detached on redirect")
	}
}

func TestEmptiedCartRedirectSurvivesConcurrentAdd(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	session := enterReady(t, h)

	started, gate := make(chan struct{}), make(chan struct{})
	h.field.mu.Lock()
	h.field.detachStarted, h.field.detachGate = started, gate
	h.field.mu.Unlock()

	removed := make(chan struct{})
	go func() {
		defer close(removed)
		h.cart.RemoveItem(context.Background(), "V1")
	}()
	<-started

	added := make(chan struct{})
	go func() {
		defer close(added)
		_ = h.cart.AddItem(context.Background(), item("V2", 700))
	}()
	time.Sleep(50 * time.Millisecond)
	close(gate)

	done := make(chan []cart.Item)
	go func() {
		<-removed
		<-added
		done <- h.cart.Items()
	}()
	select {
	case items := <-done:
		if len(items) != 1 || items[0].VariationID != "V2" {
			t.Fatalf("unexpected cart after redirect: %+v", items)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cart blocked after the redirect released the session")
	}
	if view := session.View(); view.State != enums.CheckoutStateRedirected {
		t.Fatalf("expected redirected session, got %s", view.State)
	}
}

func TestExitDetachesAndIgnoresLateResults(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	h.pricer.hold = true
	session, err := h.orch.Enter(context.Background())
	if err != nil {
		t.Fatalf("enter: %v", err)
	}
	waitForCalls(t, h.pricer, 1)

	session.Exit()
	session.Exit()
	waitSettled(t, session)

	view := session.View()
	if view.State != enums.CheckoutStateExited {
		t.Fatalf("expected exited, got %s", view.State)
	}
	if view.Summary != nil || view.PricingError != "" {
		t.Fatalf("late pricing result must not land: %+v", view)
	}
	if h.field.isAttached() {
		t.Fatal("field must be detached after exit")
	}
	if h.orch.Current() != nil {
		t.Fatal("orchestrator must forget the exited session")
	}

	if err := h.cart.AddItem(context.Background(), item("V2", 100)); err != nil {
		t.Fatalf("add: %v", err)
	}
	if got := h.pricer.count(); got != 1 {
		t.Fatalf("exited session must not reprice, got %d calls", got)
	}
}

func TestEnterAgainExitsPrevious(t *testing.T) {
	t.Parallel()

	h := newHarness(t, item("V1", 500))
	first := enterReady(t, h)
	second := enterReady(t, h)

	if first.View().State != enums.CheckoutStateExited {
		t.Fatalf("expected first session exited, got %s", first.View().State)
	}
	if h.orch.Current() != second {
		t.Fatal("expected second session to be current")
	}
	if !h.field.isAttached() {
		t.Fatal("second session must own an attached field")
	}
	if h.field.detaches != 1 || h.field.attaches != 2 {
		t.Fatalf("unexpected field lifecycle attaches=%d detaches=%d", h.field.attaches, h.field.detaches)
	}
}

func waitForCalls(t *testing.T, p *fakePricer, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for p.count() < n {
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for %d pricing calls", n)
		}
		time.Sleep(time.Millisecond)
	}
}

func waitForPricingSettled(t *testing.T, s *Session) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for s.View().PricingPending {
		if time.Now().After(deadline) {
			t.Fatal("timed out waiting for pricing")
		}
		time.Sleep(time.Millisecond)
	}
}

type scriptedProvider struct {
	sdk *scriptedSDK
}

func (p *scriptedProvider) Payments(context.Context, payments.SDKConfig) (payments.SDK, error) {
	return p.sdk, nil
}

type scriptedSDK struct {
	mu       sync.Mutex
	result   payments.TokenResult
	destroys int
}

func (s *scriptedSDK) Card(context.Context) (payments.Card, error) {
	return &scriptedCard{sdk: s}, nil
}

func (s *scriptedSDK) setResult(result payments.TokenResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.result = result
}

func (s *scriptedSDK) destroyed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.destroys
}

type scriptedCard struct {
	sdk *scriptedSDK
}

func (c *scriptedCard) Attach(context.Context, string) error {
	return nil
}

func (c *scriptedCard) Tokenize(context.Context) (payments.TokenResult, error) {
	c.sdk.mu.Lock()
	defer c.sdk.mu.Unlock()
	return c.sdk.result, nil
}

func (c *scriptedCard) Destroy() error {
	c.sdk.mu.Lock()
	defer c.sdk.mu.Unlock()
	c.sdk.destroys++
	return nil
}
