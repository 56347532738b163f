package enums

import "fmt"

// PaymentFieldState is the lifecycle of the hosted card field.
type PaymentFieldState string

const (
	PaymentFieldUninitialized PaymentFieldState = "uninitialized"
	PaymentFieldSDKReady      PaymentFieldState = "sdk_ready"
	PaymentFieldAttached      PaymentFieldState = "field_attached"
	PaymentFieldTokenizing    PaymentFieldState = "tokenizing"
	PaymentFieldTokenIssued   PaymentFieldState = "token_issued"
	PaymentFieldTokenFailed   PaymentFieldState = "token_failed"
)

var validPaymentFieldStates = []PaymentFieldState{
	PaymentFieldUninitialized,
	PaymentFieldSDKReady,
	PaymentFieldAttached,
	PaymentFieldTokenizing,
	PaymentFieldTokenIssued,
	PaymentFieldTokenFailed,
}

// String implements fmt.Stringer.
func (p PaymentFieldState) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentFieldState.
func (p PaymentFieldState) IsValid() bool {
	for _, candidate := range validPaymentFieldStates {
		if candidate == p {
			return true
		}
	}
	return false
}

// HasField reports whether a card field is alive in this state.
func (p PaymentFieldState) HasField() bool {
	switch p {
	case PaymentFieldAttached, PaymentFieldTokenizing, PaymentFieldTokenIssued, PaymentFieldTokenFailed:
		return true
	default:
		return false
	}
}

// ParsePaymentFieldState converts raw input into a PaymentFieldState.
func ParsePaymentFieldState(value string) (PaymentFieldState, error) {
	for _, candidate := range validPaymentFieldStates {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment field state %q", value)
}
