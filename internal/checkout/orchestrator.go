// Package checkout validates shipping details and drives a single order
// submission through cash on delivery or the online payment gateway.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/fjod/autoparts-storefront/internal/domain"
	"github.com/fjod/autoparts-storefront/internal/events"
	"github.com/fjod/autoparts-storefront/internal/metrics"
	"github.com/google/uuid"
)

// Cart is the shopper's cart as seen by checkout. Settle removes the ordered
// quantities and must update the persisted copy too; once nothing is left the
// persisted copy is gone.
type Cart interface {
	Items() []domain.LineItem
	Settle(ctx context.Context, ordered []domain.OrderItem) error
}

// Backend is the order API. Every call carries an idempotency key derived
// from its payload.
type Backend interface {
	CreateCODOrder(ctx context.Context, req domain.OrderRequest, idempotencyKey string) (*domain.Order, error)
	CreatePaymentIntent(ctx context.Context, amount float64, currency, idempotencyKey string) (*domain.PaymentIntent, error)
	VerifyPayment(ctx context.Context, req domain.VerifyRequest, idempotencyKey string) (*domain.VerifyResult, error)
}

// ScriptLoader makes sure the gateway checkout script can be served before a
// payment intent is created.
type ScriptLoader interface {
	Load(ctx context.Context) error
}

type Config struct {
	SessionID string
	Currency  string
	Scripts   ScriptLoader
	Publisher events.Publisher
	Validator *Validator
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
	Now       func() time.Time
}

type pendingPayment struct {
	intent   domain.PaymentIntent
	order    domain.OrderRequest
	userID   string
	openedAt time.Time
}

// Orchestrator allows one attempt at a time. Its mutex guards the state only
// and is never held across a backend call.
type Orchestrator struct {
	mu           sync.Mutex
	state        State
	method       domain.PaymentMethod
	pending      *pendingPayment
	lastErr      error
	confirmation *domain.Confirmation
	unresolved   *VerificationError
	series       uuid.UUID

	cart      Cart
	backend   Backend
	scripts   ScriptLoader
	publisher events.Publisher
	validator *Validator
	sessionID string
	currency  string
	log       *slog.Logger
	metrics   *metrics.Metrics
	now       func() time.Time
}

func New(cart Cart, backend Backend, cfg Config) *Orchestrator {
	o := &Orchestrator{
		state:     StateIdle,
		series:    uuid.New(),
		cart:      cart,
		backend:   backend,
		scripts:   cfg.Scripts,
		publisher: cfg.Publisher,
		validator: cfg.Validator,
		sessionID: cfg.SessionID,
		currency:  cfg.Currency,
		log:       cfg.Logger,
		metrics:   cfg.Metrics,
		now:       cfg.Now,
	}
	if o.currency == "" {
		o.currency = "INR"
	}
	if o.publisher == nil {
		o.publisher = events.Noop{}
	}
	if o.validator == nil {
		o.validator = NewValidator()
	}
	if o.log == nil {
		o.log = slog.Default()
	}
	if o.now == nil {
		o.now = time.Now
	}
	o.log = o.log.With("session_id", cfg.SessionID)
	return o
}

// SubmitCOD places a cash on delivery order. Once issued the request is not
// cancelled with ctx and carries no client timeout. On failure the cart is
// untouched and the orchestrator is idle again.
func (o *Orchestrator) SubmitCOD(ctx context.Context, addr domain.ShippingAddress) (*domain.Confirmation, error) {
	o.mu.Lock()
	req, err := o.begin(addr, domain.PaymentCOD, StateSubmitting)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	key := o.idempotencyKey("orders/cod", req)
	o.mu.Unlock()

	order, err := o.backend.CreateCODOrder(context.WithoutCancel(ctx), req, key)

	o.mu.Lock()
	if err == nil && (order == nil || order.ID == "") {
		err = errors.New("backend returned no order")
	}
	if err != nil {
		oerr := &OrderError{Op: "create order", Err: err}
		o.fail(oerr)
		o.mu.Unlock()
		o.metrics.CheckoutAttempt(string(domain.PaymentCOD), "failed")
		o.log.WarnContext(ctx, "cod order failed", "error", err)
		return nil, oerr
	}
	conf := o.confirmLocked(*order, domain.PaymentCOD)
	o.mu.Unlock()

	o.afterConfirm(ctx, conf, req, userID(ctx))
	return &conf, nil
}

// StartOnline validates the address, makes sure the gateway script loads and
// creates a payment intent for the cart total. The orchestrator then waits in
// GatewayOpen for CompleteOnline.
func (o *Orchestrator) StartOnline(ctx context.Context, addr domain.ShippingAddress) (*domain.PaymentIntent, error) {
	o.mu.Lock()
	req, err := o.begin(addr, domain.PaymentOnline, StateAwaitingGateway)
	if err != nil {
		o.mu.Unlock()
		return nil, err
	}
	key := o.idempotencyKey("payment/create-order", req)
	o.mu.Unlock()

	if o.scripts != nil {
		if err := o.scripts.Load(ctx); err != nil {
			return nil, o.abort(ctx, fmt.Errorf("%w: %w", ErrGatewayUnavailable, err), "gateway_unavailable")
		}
	}

	intent, err := o.backend.CreatePaymentIntent(ctx, req.TotalPrice, o.currency, key)
	if err == nil && (intent == nil || intent.ID == "") {
		err = errors.New("backend returned no payment intent")
	}
	if err != nil {
		return nil, o.abort(ctx, &OrderError{Op: "create payment intent", Err: err}, "failed")
	}

	o.mu.Lock()
	defer o.mu.Unlock()
	if err := o.transition(StateGatewayOpen); err != nil {
		return nil, err
	}
	o.pending = &pendingPayment{intent: *intent, order: req, userID: userID(ctx), openedAt: o.now()}
	return intent, nil
}

// CompleteOnline resolves the open payment window with the gateway outcome.
// Only a verified payment creates an order and clears the cart.
func (o *Orchestrator) CompleteOnline(ctx context.Context, outcome Outcome) (*domain.Confirmation, error) {
	o.mu.Lock()
	if o.state != StateGatewayOpen || o.pending == nil {
		o.mu.Unlock()
		return nil, ErrNoPendingPayment
	}

	var receipt domain.GatewayReceipt
	switch out := outcome.(type) {
	case Cancelled:
		o.fail(ErrPaymentCancelled)
		o.mu.Unlock()
		o.metrics.CheckoutAttempt(string(domain.PaymentOnline), "cancelled")
		return nil, ErrPaymentCancelled
	case Failed:
		perr := &PaymentFailedError{Code: out.Code, Reason: out.Reason}
		o.fail(perr)
		o.mu.Unlock()
		o.metrics.CheckoutAttempt(string(domain.PaymentOnline), "payment_failed")
		o.log.InfoContext(ctx, "gateway reported failed payment", "code", out.Code, "reason", out.Reason)
		return nil, perr
	case Succeeded:
		receipt = out.Receipt
	default:
		o.mu.Unlock()
		return nil, ErrUnknownOutcome
	}

	if err := o.transition(StateVerifying); err != nil {
		o.mu.Unlock()
		return nil, err
	}
	pending := o.pending
	verifyReq := domain.VerifyRequest{GatewayReceipt: receipt, OrderData: pending.order}
	key := o.idempotencyKey("payment/verify", verifyReq)
	o.mu.Unlock()

	result, err := o.backend.VerifyPayment(context.WithoutCancel(ctx), verifyReq, key)
	if err == nil && (result == nil || !result.Success || result.Order == nil) {
		err = errors.New("backend did not confirm the payment")
	}

	o.mu.Lock()
	if err != nil {
		verr := &VerificationError{GatewayOrderID: receipt.OrderID, PaymentID: receipt.PaymentID, Err: err}
		o.fail(verr)
		o.unresolved = verr
		o.mu.Unlock()

		o.metrics.CheckoutAttempt(string(domain.PaymentOnline), "verification_failed")
		o.log.ErrorContext(ctx, "payment verification failed",
			"gateway_order_id", receipt.OrderID, "payment_id", receipt.PaymentID, "error", err)
		o.publish(ctx, events.Event{
			Type:           events.TypeCheckoutVerificationFailed,
			UserID:         pending.userID,
			PaymentMethod:  string(domain.PaymentOnline),
			Amount:         pending.order.TotalPrice,
			Currency:       pending.intent.Currency,
			GatewayOrderID: receipt.OrderID,
			PaymentID:      receipt.PaymentID,
			Reason:         err.Error(),
		})
		return nil, verr
	}
	conf := o.confirmLocked(*result.Order, domain.PaymentOnline)
	o.mu.Unlock()

	o.afterConfirm(ctx, conf, pending.order, pending.userID)
	return &conf, nil
}

// PayOnline runs the whole online flow with ui standing in for the gateway
// window.
func (o *Orchestrator) PayOnline(ctx context.Context, addr domain.ShippingAddress, ui PaymentUI) (*domain.Confirmation, error) {
	intent, err := o.StartOnline(ctx, addr)
	if err != nil {
		return nil, err
	}

	outcome, err := ui.Open(ctx, *intent)
	if err != nil {
		o.log.WarnContext(ctx, "payment window failed", "error", err)
		outcome = Cancelled{}
	}
	return o.CompleteOnline(ctx, outcome)
}

// ExpireGateway returns an abandoned payment window to Idle. It reports
// whether anything was expired.
func (o *Orchestrator) ExpireGateway(maxAge time.Duration) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.state != StateGatewayOpen || o.pending == nil {
		return false
	}
	if o.now().Sub(o.pending.openedAt) < maxAge {
		return false
	}
	o.fail(ErrPaymentCancelled)
	o.metrics.CheckoutAttempt(string(domain.PaymentOnline), "abandoned")
	return true
}

// Acknowledge clears an unresolved verification failure once the shopper has
// been pointed to support.
func (o *Orchestrator) Acknowledge() {
	o.mu.Lock()
	defer o.mu.Unlock()

	o.unresolved = nil
	o.lastErr = nil
}

// State is the current checkout state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// HasUnresolved reports whether a verification failure awaits Acknowledge.
func (o *Orchestrator) HasUnresolved() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.unresolved != nil
}

func (o *Orchestrator) LastError() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastErr
}

// begin runs the entry checks of a new attempt and moves to next. Must hold o.mu.
func (o *Orchestrator) begin(addr domain.ShippingAddress, method domain.PaymentMethod, next State) (domain.OrderRequest, error) {
	if o.state.InFlight() {
		return domain.OrderRequest{}, ErrCheckoutInProgress
	}
	if o.unresolved != nil {
		return domain.OrderRequest{}, ErrUnresolvedPayment
	}

	items := o.cart.Items()
	if len(items) == 0 {
		return domain.OrderRequest{}, ErrEmptyCart
	}

	addr, err := o.validator.Address(addr)
	if err != nil {
		o.metrics.CheckoutAttempt(string(method), "invalid")
		return domain.OrderRequest{}, err
	}

	if err := o.transition(next); err != nil {
		return domain.OrderRequest{}, err
	}
	o.method = method
	o.lastErr = nil
	o.confirmation = nil
	o.pending = nil
	return domain.NewOrderRequest(items, addr, method), nil
}

// Must hold o.mu.
func (o *Orchestrator) transition(next State) error {
	if !CanTransitionTo(o.state, next) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, o.state, next)
	}
	o.state = next
	return nil
}

// fail returns to Idle keeping err for Status. Must hold o.mu.
func (o *Orchestrator) fail(err error) {
	o.state = StateIdle
	o.pending = nil
	o.lastErr = err
}

func (o *Orchestrator) abort(ctx context.Context, err error, result string) error {
	o.mu.Lock()
	o.fail(err)
	method := o.method
	o.mu.Unlock()

	o.metrics.CheckoutAttempt(string(method), result)
	o.log.WarnContext(ctx, "checkout aborted", "method", method, "error", err)
	return err
}

// Must hold o.mu.
func (o *Orchestrator) confirmLocked(order domain.Order, method domain.PaymentMethod) domain.Confirmation {
	conf := domain.Confirmation{OrderID: order.ID, Order: order, PaymentMethod: method}
	o.state = StateConfirmed
	o.pending = nil
	o.lastErr = nil
	o.confirmation = &conf
	o.series = uuid.New()
	return conf
}

func (o *Orchestrator) afterConfirm(ctx context.Context, conf domain.Confirmation, req domain.OrderRequest, userID string) {
	if err := o.cart.Settle(context.WithoutCancel(ctx), req.Items); err != nil {
		o.log.ErrorContext(ctx, "order placed but cart could not be settled", "order_id", conf.OrderID, "error", err)
	}
	o.metrics.CheckoutAttempt(string(conf.PaymentMethod), "confirmed")
	o.log.InfoContext(ctx, "order confirmed", "order_id", conf.OrderID, "method", conf.PaymentMethod)

	o.publish(ctx, events.Event{
		Type:          events.TypeCheckoutConfirmed,
		UserID:        userID,
		OrderID:       conf.OrderID,
		PaymentMethod: string(conf.PaymentMethod),
		Amount:        req.TotalPrice,
		Currency:      o.currency,
	})
}

func (o *Orchestrator) publish(ctx context.Context, event events.Event) {
	event.SessionID = o.sessionID
	event.OccurredAt = o.now().UTC()
	if err := o.publisher.Publish(context.WithoutCancel(ctx), event); err != nil {
		o.log.WarnContext(ctx, "failed to publish checkout event", "type", event.Type, "error", err)
	}
}

func userID(ctx context.Context) string {
	if user := domain.UserFrom(ctx); user != nil {
		return user.ID
	}
	return ""
}

// idempotencyKey is stable for an identical payload within one series, so a
// retry after a lost response reaches the backend with the same key. Must
// hold o.mu.
func (o *Orchestrator) idempotencyKey(op string, payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return uuid.NewString()
	}
	return uuid.NewSHA1(o.series, append([]byte(op+"\n"), data...)).String()
}
