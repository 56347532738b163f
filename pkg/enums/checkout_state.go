package enums

import "fmt"

// CheckoutState tracks where a checkout session is in its lifecycle.
type CheckoutState string

const (
	CheckoutStateEntering   CheckoutState = "entering"
	CheckoutStateReady      CheckoutState = "ready"
	CheckoutStateSubmitting CheckoutState = "submitting"
	CheckoutStateCompleted  CheckoutState = "completed"
	CheckoutStateRedirected CheckoutState = "redirected"
	CheckoutStateExited     CheckoutState = "exited"
)

var validCheckoutStates = []CheckoutState{
	CheckoutStateEntering,
	CheckoutStateReady,
	CheckoutStateSubmitting,
	CheckoutStateCompleted,
	CheckoutStateRedirected,
	CheckoutStateExited,
}

// String implements fmt.Stringer.
func (c CheckoutState) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutState.
func (c CheckoutState) IsValid() bool {
	for _, candidate := range validCheckoutStates {
		if candidate == c {
			return true
		}
	}
	return false
}

// IsTerminal reports whether the session can no longer change state.
func (c CheckoutState) IsTerminal() bool {
	switch c {
	case CheckoutStateCompleted, CheckoutStateRedirected, CheckoutStateExited:
		return true
	default:
		return false
	}
}

// ParseCheckoutState converts raw input into a CheckoutState.
func ParseCheckoutState(value string) (CheckoutState, error) {
	for _, candidate := range validCheckoutStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout state %q", value)
}
