// Package events publishes checkout outcomes for back-office consumers.
package events

import (
	"context"
	"time"
)

const (
	TypeCheckoutConfirmed          = "checkout.confirmed"
	TypeCheckoutVerificationFailed = "checkout.verification_failed"
)

// Event is the payload of every checkout message. OrderID is empty for
// verification failures; GatewayOrderID and PaymentID identify the captured
// payment support has to reconcile.
type Event struct {
	Type           string    `json:"type"`
	SessionID      string    `json:"sessionId"`
	UserID         string    `json:"userId,omitempty"`
	OrderID        string    `json:"orderId,omitempty"`
	PaymentMethod  string    `json:"paymentMethod"`
	Amount         float64   `json:"amount"`
	Currency       string    `json:"currency,omitempty"`
	GatewayOrderID string    `json:"gatewayOrderId,omitempty"`
	PaymentID      string    `json:"paymentId,omitempty"`
	Reason         string    `json:"reason,omitempty"`
	OccurredAt     time.Time `json:"occurredAt"`
}

// Key orders messages of one order or payment on a single partition.
func (e Event) Key() string {
	switch {
	case e.OrderID != "":
		return e.OrderID
	case e.GatewayOrderID != "":
		return e.GatewayOrderID
	default:
		return e.SessionID
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Noop discards every event. It is used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }

func (Noop) Close() error { return nil }
