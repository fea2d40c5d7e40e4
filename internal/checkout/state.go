package checkout

type State string

const (
	StateIdle            State = "IDLE"
	StateSubmitting      State = "SUBMITTING"
	StateAwaitingGateway State = "AWAITING_GATEWAY"
	StateGatewayOpen     State = "GATEWAY_OPEN"
	StateVerifying       State = "VERIFYING"
	StateConfirmed       State = "CONFIRMED"
)

var transitions = map[State][]State{
	StateIdle:            {StateSubmitting, StateAwaitingGateway},
	StateSubmitting:      {StateConfirmed, StateIdle},
	StateAwaitingGateway: {StateGatewayOpen, StateIdle},
	StateGatewayOpen:     {StateVerifying, StateIdle},
	StateVerifying:       {StateConfirmed, StateIdle},
	// a confirmed attempt is over; the next cart starts a fresh one
	StateConfirmed: {StateSubmitting, StateAwaitingGateway, StateIdle},
}

func CanTransitionTo(from, to State) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InFlight reports whether an attempt is underway and a new submission must
// be refused.
func (s State) InFlight() bool {
	switch s {
	case StateSubmitting, StateAwaitingGateway, StateGatewayOpen, StateVerifying:
		return true
	}
	return false
}

func (s State) String() string {
	return string(s)
}
