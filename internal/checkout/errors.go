package checkout

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrEmptyCart          = errors.New("cart is empty, nothing to checkout")
	ErrCheckoutInProgress = errors.New("a checkout is already in progress")
	ErrGatewayUnavailable = errors.New("payment gateway could not be loaded")
	ErrPaymentCancelled   = errors.New("payment was cancelled")
	ErrUnresolvedPayment  = errors.New("a previous payment could not be verified, please contact support before trying again")
	ErrNoPendingPayment   = errors.New("no payment window is open")
	ErrIllegalTransition  = errors.New("illegal transition of checkout state")
	ErrUnknownOutcome     = errors.New("unknown payment outcome")
)

// ValidationError carries one message per failing field, keyed by the json
// field name of domain.ShippingAddress.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return "invalid shipping details: " + strings.Join(names, ", ")
}

// OrderError is a failed backend call while placing an order. The cart is
// left untouched and the shopper may retry.
type OrderError struct {
	Op  string
	Err error
}

func (e *OrderError) Error() string {
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *OrderError) Unwrap() error {
	return e.Err
}

// PaymentFailedError is reported by the gateway UI when a payment is declined.
type PaymentFailedError struct {
	Code   string
	Reason string
}

func (e *PaymentFailedError) Error() string {
	if e.Reason == "" {
		return "payment failed"
	}
	return "payment failed: " + e.Reason
}

// VerificationError means the gateway may have captured funds but the backend
// did not confirm the order. It must be resolved through support, not retried.
type VerificationError struct {
	GatewayOrderID string
	PaymentID      string
	Err            error
}

func (e *VerificationError) Error() string {
	msg := "payment could not be verified, please contact support"
	if e.PaymentID != "" {
		msg += " with payment id " + e.PaymentID
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *VerificationError) Unwrap() error {
	return e.Err
}
