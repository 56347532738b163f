package square

import (
	"testing"
	"time"
)

var sandboxNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func TestSandboxTokenize_IssuesNonceForValidCard(t *testing.T) {
	nonce, summary, errs := SandboxTokenize(CardEntry{
		Number:     "4111 1111 1111 1111",
		ExpMonth:   12,
		ExpYear:    28,
		CVV:        "111",
		PostalCode: "12345",
	}, sandboxNow)
	if len(errs) != 0 {
		t.Fatalf("unexpected errors %v", errs)
	}
	if nonce != NonceOK {
		t.Fatalf("expected ok nonce, got %q", nonce)
	}
	if summary.Brand != "VISA" || summary.Last4 != "1111" || summary.ExpYear != 2028 {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSandboxTokenize_SelectsRejectingNonces(t *testing.T) {
	base := CardEntry{Number: "4111111111111111", ExpMonth: 1, ExpYear: 2030, CVV: "123", PostalCode: "94103"}

	declined := base
	declined.Number = "4000000000000002"
	if nonce, _, errs := SandboxTokenize(declined, sandboxNow); len(errs) != 0 || nonce != NonceDeclined {
		t.Fatalf("expected declined nonce, got %q %v", nonce, errs)
	}

	cvv := base
	cvv.CVV = "911"
	if nonce, _, errs := SandboxTokenize(cvv, sandboxNow); len(errs) != 0 || nonce != NonceRejectedCVV {
		t.Fatalf("expected cvv nonce, got %q %v", nonce, errs)
	}

	postal := base
	postal.PostalCode = "99999"
	if nonce, _, errs := SandboxTokenize(postal, sandboxNow); len(errs) != 0 || nonce != NonceRejectedPostalCode {
		t.Fatalf("expected postal nonce, got %q %v", nonce, errs)
	}
}

func TestSandboxTokenize_ReportsEveryInvalidField(t *testing.T) {
	nonce, _, errs := SandboxTokenize(CardEntry{
		Number:     "4111111111111112",
		ExpMonth:   9,
		ExpYear:    2026,
		CVV:        "12",
		PostalCode: "",
	}, sandboxNow)
	if nonce != "" {
		t.Fatalf("expected no nonce, got %q", nonce)
	}
	want := []string{
		string(ErrorCodeInvalidCard),
		string(ErrorCodeCardExpired),
		string(ErrorCodeInvalidCVV),
		string(ErrorCodeInvalidPostalCode),
	}
	if len(errs) != len(want) {
		t.Fatalf("expected %d errors, got %d", len(want), len(errs))
	}
	for i, code := range want {
		if string(errs[i].Code) != code {
			t.Fatalf("error %d: expected %s, got %s", i, code, errs[i].Code)
		}
		if errs[i].Detail == nil || *errs[i].Detail == "" {
			t.Fatalf("error %d missing detail", i)
		}
	}
}

func TestSandboxTokenize_CardValidThroughExpiryMonth(t *testing.T) {
	entry := CardEntry{Number: "4111111111111111", ExpMonth: 10, ExpYear: 2026, CVV: "123", PostalCode: "1"}
	if _, _, errs := SandboxTokenize(entry, sandboxNow); len(errs) != 0 {
		t.Fatalf("card expiring this month should be accepted, got %v", errs)
	}
	entry.ExpMonth = 13
	if _, _, errs := SandboxTokenize(entry, sandboxNow); len(errs) != 1 || errs[0].Code != ErrorCodeInvalidExpiration {
		t.Fatalf("expected invalid expiration, got %v", errs)
	}
}

func TestCardBrand(t *testing.T) {
	tests := map[string]string{
		"4111111111111111": "VISA",
		"5105105105105100": "MASTERCARD",
		"2223000048400011": "MASTERCARD",
		"340000000000009":  "AMERICAN_EXPRESS",
		"6011000990139424": "DISCOVER",
		"3530111333300000": "JCB",
		"9999":             "OTHER_BRAND",
	}
	for number, want := range tests {
		if got := CardBrand(number); got != want {
			t.Fatalf("CardBrand(%s) = %s, want %s", number, got, want)
		}
	}
}
