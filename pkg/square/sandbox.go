package square

import (
	"strconv"
	"strings"
	"time"
	"unicode"

	sq "github.com/square/square-go-sdk"
)

// Sandbox payment source nonces accepted by the Square sandbox. Each one drives a
// deterministic payment outcome when used to create a payment.
const (
	NonceOK                 = "cnon:card-nonce-ok"
	NonceDeclined           = "cnon:card-nonce-declined"
	NonceRejectedCVV        = "cnon:card-nonce-rejected-cvv"
	NonceRejectedPostalCode = "cnon:card-nonce-rejected-postalcode"
	NonceRejectedExpiration = "cnon:card-nonce-rejected-expiration"
)

// Card entry error codes as reported by Square.
const (
	ErrorCodeInvalidCard       sq.ErrorCode = "INVALID_CARD"
	ErrorCodeCardExpired       sq.ErrorCode = "CARD_EXPIRED"
	ErrorCodeInvalidExpiration sq.ErrorCode = "INVALID_EXPIRATION"
	ErrorCodeInvalidCVV        sq.ErrorCode = "INVALID_CVV"
	ErrorCodeInvalidPostalCode sq.ErrorCode = "INVALID_POSTAL_CODE"
)

// Sandbox test values that select a rejecting nonce.
const (
	sandboxDeclinedCardNumber = "4000000000000002"
	sandboxRejectedCVV        = "911"
	sandboxRejectedPostalCode = "99999"
)

// CardEntry is the raw input typed into a hosted card field.
type CardEntry struct {
	Number     string `json:"number"`
	ExpMonth   int    `json:"exp_month"`
	ExpYear    int    `json:"exp_year"`
	CVV        string `json:"cvv"`
	PostalCode string `json:"postal_code"`
}

// CardSummary is the non-sensitive description of a tokenized card.
type CardSummary struct {
	Brand    string
	Last4    string
	ExpMonth int
	ExpYear  int
}

// SandboxTokenize validates entry the way the hosted field does and, when valid, returns
// the sandbox nonce matching the entered test values. A non-empty error slice means the
// entry was rejected and no nonce was issued.
func SandboxTokenize(entry CardEntry, now time.Time) (string, CardSummary, []*sq.Error) {
	number := digitsOnly(entry.Number)
	var errs []*sq.Error

	if len(number) < 12 || len(number) > 19 || !luhnValid(number) {
		errs = append(errs, fieldError(ErrorCodeInvalidCard, "cardNumber", "Card number is not valid."))
	}

	switch {
	case entry.ExpMonth < 1 || entry.ExpMonth > 12 || entry.ExpYear <= 0:
		errs = append(errs, fieldError(ErrorCodeInvalidExpiration, "expirationDate", "Expiration date is not valid."))
	case expired(entry.ExpMonth, normalizeYear(entry.ExpYear), now):
		errs = append(errs, fieldError(ErrorCodeCardExpired, "expirationDate", "Card is expired."))
	}

	cvv := strings.TrimSpace(entry.CVV)
	if !allDigits(cvv) || len(cvv) < 3 || len(cvv) > 4 {
		errs = append(errs, fieldError(ErrorCodeInvalidCVV, "cvv", "CVV is not valid."))
	}

	postal := strings.TrimSpace(entry.PostalCode)
	if postal == "" {
		errs = append(errs, fieldError(ErrorCodeInvalidPostalCode, "postalCode", "Postal code is required."))
	}

	if len(errs) > 0 {
		return "", CardSummary{}, errs
	}

	summary := CardSummary{
		Brand:    CardBrand(number),
		Last4:    number[len(number)-4:],
		ExpMonth: entry.ExpMonth,
		ExpYear:  normalizeYear(entry.ExpYear),
	}

	switch {
	case number == sandboxDeclinedCardNumber:
		return NonceDeclined, summary, nil
	case cvv == sandboxRejectedCVV:
		return NonceRejectedCVV, summary, nil
	case postal == sandboxRejectedPostalCode:
		return NonceRejectedPostalCode, summary, nil
	default:
		return NonceOK, summary, nil
	}
}

// CardBrand names the card network for a card number using Square's brand names.
func CardBrand(number string) string {
	number = digitsOnly(number)
	prefix := func(n int) int {
		if len(number) < n {
			return -1
		}
		v, _ := strconv.Atoi(number[:n])
		return v
	}
	switch {
	case strings.HasPrefix(number, "4"):
		return "VISA"
	case prefix(2) >= 51 && prefix(2) <= 55, prefix(4) >= 2221 && prefix(4) <= 2720:
		return "MASTERCARD"
	case prefix(2) == 34, prefix(2) == 37:
		return "AMERICAN_EXPRESS"
	case strings.HasPrefix(number, "6011"), strings.HasPrefix(number, "65"):
		return "DISCOVER"
	case prefix(2) == 35:
		return "JCB"
	default:
		return "OTHER_BRAND"
	}
}

func fieldError(code sq.ErrorCode, field, detail string) *sq.Error {
	return &sq.Error{
		Category: sq.ErrorCategoryInvalidRequestError,
		Code:     code,
		Field:    &field,
		Detail:   &detail,
	}
}

func luhnValid(number string) bool {
	sum := 0
	double := false
	for i := len(number) - 1; i >= 0; i-- {
		d := int(number[i] - '0')
		if double {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		double = !double
	}
	return sum%10 == 0
}

func expired(month, year int, now time.Time) bool {
	// a card is valid through the last day of its expiration month
	firstOfNextMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, time.UTC)
	return !now.UTC().Before(firstOfNextMonth)
}

func normalizeYear(year int) int {
	if year < 100 {
		return 2000 + year
	}
	return year
}

func digitsOnly(value string) string {
	var b strings.Builder
	for _, r := range value {
		if unicode.IsDigit(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func allDigits(value string) bool {
	for _, r := range value {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return value != ""
}
