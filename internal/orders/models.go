package orders

import "time"

type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

type Order struct {
	ID         string      `json:"id"`
	UserID     string      `json:"userId"`
	Status     Status      `json:"status"`
	TotalCents int64       `json:"totalCents"`
	Currency   string      `json:"currency"`
	Items      []OrderItem `json:"items"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// OrderItem captures the price at order creation, not at cart-add time.
type OrderItem struct {
	ID         string `json:"id,omitempty"`
	OrderID    string `json:"-"`
	ProductID  string `json:"productId"`
	Qty        int    `json:"qty"`
	PriceCents int64  `json:"priceCents"`
}

type Payment struct {
	ID                    string
	OrderID               string
	StripePaymentIntentID string
	AmountCents           int64
	Status                string
	CreatedAt             time.Time
}

// NewOrder is everything CreateOrder writes in one transaction. The payment
// row is written only when PaymentIntentID is set.
type NewOrder struct {
	UserID          string
	Currency        string
	Status          Status
	Items           []OrderItem
	PaymentIntentID string
	PaymentStatus   string
}

func (n NewOrder) TotalCents() int64 {
	var total int64
	for _, it := range n.Items {
		total += it.PriceCents * int64(it.Qty)
	}
	return total
}
