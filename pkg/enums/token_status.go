package enums

import "fmt"

// TokenStatus is the status a card provider reports for a tokenize call.
type TokenStatus string

const (
	TokenStatusOK                   TokenStatus = "OK"
	TokenStatusInvalid              TokenStatus = "Invalid"
	TokenStatusError                TokenStatus = "Error"
	TokenStatusAbort                TokenStatus = "Abort"
	TokenStatusCancel               TokenStatus = "Cancel"
	TokenStatusUnknown              TokenStatus = "Unknown"
	TokenStatusVerificationRequired TokenStatus = "VerificationRequired"
)

var validTokenStatuses = []TokenStatus{
	TokenStatusOK,
	TokenStatusInvalid,
	TokenStatusError,
	TokenStatusAbort,
	TokenStatusCancel,
	TokenStatusUnknown,
	TokenStatusVerificationRequired,
}

// String implements fmt.Stringer.
func (t TokenStatus) String() string {
	return string(t)
}

// IsValid reports whether the value is a known TokenStatus.
func (t TokenStatus) IsValid() bool {
	for _, candidate := range validTokenStatuses {
		if candidate == t {
			return true
		}
	}
	return false
}

// ParseTokenStatus converts raw input into a TokenStatus.
func ParseTokenStatus(value string) (TokenStatus, error) {
	for _, candidate := range validTokenStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid token status %q", value)
}
