package checkout

import "github.com/fjod/autoparts-storefront/internal/domain"

type UnresolvedPayment struct {
	GatewayOrderID string `json:"gatewayOrderId,omitempty"`
	PaymentID      string `json:"paymentId,omitempty"`
	Message        string `json:"message"`
}

// Status is a point-in-time view of the orchestrator for the UI.
type Status struct {
	State        State                 `json:"state"`
	Method       domain.PaymentMethod  `json:"paymentMethod,omitempty"`
	Intent       *domain.PaymentIntent `json:"intent,omitempty"`
	LastError    string                `json:"lastError,omitempty"`
	Confirmation *domain.Confirmation  `json:"confirmation,omitempty"`
	Unresolved   *UnresolvedPayment    `json:"unresolved,omitempty"`
}

func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()

	st := Status{State: o.state}
	if o.state != StateIdle || o.confirmation != nil {
		st.Method = o.method
	}
	if o.pending != nil {
		intent := o.pending.intent
		st.Intent = &intent
	}
	if o.lastErr != nil {
		st.LastError = o.lastErr.Error()
	}
	if o.confirmation != nil {
		conf := *o.confirmation
		st.Confirmation = &conf
	}
	if o.unresolved != nil {
		st.Unresolved = &UnresolvedPayment{
			GatewayOrderID: o.unresolved.GatewayOrderID,
			PaymentID:      o.unresolved.PaymentID,
			Message:        o.unresolved.Error(),
		}
	}
	return st
}
