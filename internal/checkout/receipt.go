package checkout

import (
	"strings"

	sq "github.com/square/square-go-sdk"

	"github.com/angelmondragon/rmjobsites-storefront/pkg/money"
	"github.com/angelmondragon/rmjobsites-storefront/pkg/storefront"
)

// Receipt is what order creation returned. It is handed to the confirmation view and
// never persisted.
type Receipt struct {
	Order   *storefront.Order `json:"order"`
	Payment *sq.Payment       `json:"payment,omitempty"`
}

// ConfirmationLine is one formatted order line.
type ConfirmationLine struct {
	Name     string `json:"name"`
	Quantity string `json:"quantity"`
	Total    string `json:"total"`
}

// Confirmation is the display form of a receipt.
type Confirmation struct {
	OrderID       string             `json:"order_id"`
	PaymentID     string             `json:"payment_id,omitempty"`
	CreatedAt     string             `json:"created_at,omitempty"`
	Status        string             `json:"status"`
	Lines         []ConfirmationLine `json:"lines"`
	Subtotal      string             `json:"subtotal"`
	Tax           string             `json:"tax"`
	ServiceCharge string             `json:"service_charge"`
	Total         string             `json:"total"`
	CardBrand     string             `json:"card_brand,omitempty"`
	CardLast4     string             `json:"card_last_4,omitempty"`
}

// Confirmation formats the receipt for display. Payment status wins over the order
// state; the order creation time is used when the payment has none.
func (r *Receipt) Confirmation() Confirmation {
	if r == nil || r.Order == nil || r.Order.Order == nil {
		return Confirmation{}
	}
	order := r.Order
	out := Confirmation{
		OrderID:       str(order.GetID()),
		CreatedAt:     str(order.GetCreatedAt()),
		Subtotal:      money.FormatSquare(order.GetTotalLineItemsMoney()),
		Tax:           money.FormatSquare(order.GetTotalTaxMoney()),
		ServiceCharge: money.FormatSquare(order.GetTotalServiceChargeMoney()),
		Total:         money.FormatSquare(order.GetTotalMoney()),
	}
	if state := order.GetState(); state != nil {
		out.Status = string(*state)
	}

	for _, line := range order.GetLineItems() {
		if line == nil {
			continue
		}
		name := str(line.GetName())
		if variation := str(line.GetVariationName()); variation != "" && !strings.EqualFold(variation, "regular") {
			name = strings.TrimSpace(name + " - " + variation)
		}
		out.Lines = append(out.Lines, ConfirmationLine{
			Name:     name,
			Quantity: line.GetQuantity(),
			Total:    money.FormatSquare(line.GetTotalMoney()),
		})
	}

	if p := r.Payment; p != nil {
		out.PaymentID = str(p.GetID())
		if status := str(p.GetStatus()); status != "" {
			out.Status = status
		}
		if created := str(p.GetCreatedAt()); created != "" {
			out.CreatedAt = created
		}
		if card := p.GetCardDetails().GetCard(); card != nil {
			if brand := card.GetCardBrand(); brand != nil {
				out.CardBrand = string(*brand)
			}
			out.CardLast4 = str(card.GetLast4())
		}
	}
	return out
}

func str(ptr *string) string {
	if ptr == nil {
		return ""
	}
	return *ptr
}
