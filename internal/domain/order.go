package domain

import (
	"encoding/json"
	"fmt"
	"net/url"
)

type PaymentMethod string

const (
	PaymentCOD    PaymentMethod = "COD"
	PaymentOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) Valid() bool {
	return m == PaymentCOD || m == PaymentOnline
}

type OrderItem struct {
	Product  string  `json:"product"`
	Name     string  `json:"name"`
	Image    string  `json:"image,omitempty"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

// OrderRequest is the order submission payload. The backend becomes the source
// of truth once it accepts it.
type OrderRequest struct {
	Items           []OrderItem     `json:"items"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	PaymentMethod   PaymentMethod   `json:"paymentMethod"`
	ItemsPrice      float64         `json:"itemsPrice"`
	ShippingPrice   float64         `json:"shippingPrice"`
	TotalPrice      float64         `json:"totalPrice"`
}

// NewOrderRequest composes the payload from the finalized cart.
func NewOrderRequest(items []LineItem, addr ShippingAddress, method PaymentMethod) OrderRequest {
	totals := ComputeTotals(items)
	orderItems := make([]OrderItem, 0, len(items))
	for _, item := range items {
		orderItems = append(orderItems, OrderItem{
			Product:  item.ID,
			Name:     item.Name,
			Image:    item.Image,
			Price:    item.Price,
			Quantity: item.Quantity,
		})
	}
	return OrderRequest{
		Items:           orderItems,
		ShippingAddress: addr,
		PaymentMethod:   method,
		ItemsPrice:      totals.Subtotal.InexactFloat64(),
		ShippingPrice:   totals.ShippingFee.InexactFloat64(),
		TotalPrice:      totals.Total.InexactFloat64(),
	}
}

// Order is the backend's view of a created order. Only the id is interpreted,
// the rest travels as an opaque snapshot to the confirmation view.
type Order struct {
	ID       string          `json:"_id"`
	Snapshot json.RawMessage `json:"-"`
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var head struct {
		ID  string `json:"_id"`
		Alt string `json:"id"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}
	o.ID = head.ID
	if o.ID == "" {
		o.ID = head.Alt
	}
	o.Snapshot = append(json.RawMessage(nil), data...)
	return nil
}

func (o Order) MarshalJSON() ([]byte, error) {
	if len(o.Snapshot) > 0 {
		return o.Snapshot, nil
	}
	return json.Marshal(map[string]string{"_id": o.ID})
}

// PaymentIntent is the gateway order intent issued by the backend.
type PaymentIntent struct {
	ID       string  `json:"id"`
	Amount   float64 `json:"amount"`
	Currency string  `json:"currency"`
}

// GatewayReceipt is the signed confirmation the payment UI hands back after the
// user completes a payment.
type GatewayReceipt struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

type VerifyRequest struct {
	GatewayReceipt
	OrderData OrderRequest `json:"orderData"`
}

type VerifyResult struct {
	Success bool   `json:"success"`
	Order   *Order `json:"order"`
}

// Confirmation is what the UI navigates to once an order exists.
type Confirmation struct {
	OrderID       string        `json:"orderId"`
	Order         Order         `json:"order"`
	PaymentMethod PaymentMethod `json:"paymentMethod"`
}

func (c Confirmation) Redirect() string {
	return fmt.Sprintf("/order-confirmation/%s", url.PathEscape(c.OrderID))
}
