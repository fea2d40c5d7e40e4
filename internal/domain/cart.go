package domain

import (
	"encoding/json"

	"github.com/shopspring/decimal"
)

var (
	// FreeShippingThreshold is exclusive: a subtotal must exceed it to ship for free.
	FreeShippingThreshold = decimal.NewFromInt(999)
	StandardShippingFee   = decimal.NewFromInt(99)
)

// Product is the catalog snapshot a line item is created from.
type Product struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image string  `json:"image"`
	Price float64 `json:"price"`
}

// LineItem is one product entry in a cart. The json tags are the persisted
// format of the cart storage key.
type LineItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// NewLineItem captures the display and price snapshot of p at add-time.
func NewLineItem(p Product, quantity int) LineItem {
	return LineItem{
		ID:       p.ID,
		Name:     p.Name,
		Image:    p.Image,
		Price:    p.Price,
		Quantity: quantity,
	}
}

func (li LineItem) LineTotal() decimal.Decimal {
	return decimal.NewFromFloat(li.Price).Mul(decimal.NewFromInt(int64(li.Quantity)))
}

type Totals struct {
	Subtotal    decimal.Decimal
	ShippingFee decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals derives subtotal, shipping fee and total from items.
func ComputeTotals(items []LineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}

	shipping := StandardShippingFee
	if subtotal.GreaterThan(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal:    subtotal,
		ShippingFee: shipping,
		Total:       subtotal.Add(shipping),
	}
}

// MarshalJSON renders amounts as JSON numbers rather than decimal's quoted strings.
func (t Totals) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Subtotal    json.Number `json:"subtotal"`
		ShippingFee json.Number `json:"shippingFee"`
		Total       json.Number `json:"total"`
	}{
		Subtotal:    json.Number(t.Subtotal.String()),
		ShippingFee: json.Number(t.ShippingFee.String()),
		Total:       json.Number(t.Total.String()),
	})
}
