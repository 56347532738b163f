package storefront

import (
	"encoding/json"

	sq "github.com/square/square-go-sdk"
)

const totalLineItemsMoneyKey = "total_line_items_money"

// Order is the order body returned by POST /orders. The backend adds
// total_line_items_money, which the Square order type does not carry.
type Order struct {
	*sq.Order
	TotalLineItemsMoney *sq.Money `json:"total_line_items_money,omitempty"`
}

// GetTotalLineItemsMoney returns the line item subtotal, or nil.
func (o *Order) GetTotalLineItemsMoney() *sq.Money {
	if o == nil {
		return nil
	}
	return o.TotalLineItemsMoney
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var order sq.Order
	if err := json.Unmarshal(data, &order); err != nil {
		return err
	}
	var extra struct {
		TotalLineItemsMoney *sq.Money `json:"total_line_items_money"`
	}
	if err := json.Unmarshal(data, &extra); err != nil {
		return err
	}
	o.Order = &order
	o.TotalLineItemsMoney = extra.TotalLineItemsMoney
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	fields := map[string]json.RawMessage{}
	if o.Order != nil {
		raw, err := json.Marshal(o.Order)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, err
		}
	}
	if o.TotalLineItemsMoney != nil {
		raw, err := json.Marshal(o.TotalLineItemsMoney)
		if err != nil {
			return nil, err
		}
		fields[totalLineItemsMoneyKey] = raw
	}
	return json.Marshal(fields)
}
