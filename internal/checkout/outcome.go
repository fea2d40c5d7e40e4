package checkout

import (
	"context"

	"github.com/fjod/autoparts-storefront/internal/domain"
)

// Outcome is the single result of the gateway payment window: Succeeded,
// Failed or Cancelled.
type Outcome interface {
	outcome()
}

// Succeeded carries the signed confirmation returned by the gateway.
type Succeeded struct {
	Receipt domain.GatewayReceipt
}

// Failed is a payment the gateway declined.
type Failed struct {
	Code      string
	Reason    string
	PaymentID string
}

// Cancelled means the shopper closed the payment window.
type Cancelled struct{}

func (Succeeded) outcome() {}
func (Failed) outcome()    {}
func (Cancelled) outcome() {}

// PaymentUI opens the gateway window for intent and waits for its outcome.
type PaymentUI interface {
	Open(ctx context.Context, intent domain.PaymentIntent) (Outcome, error)
}
