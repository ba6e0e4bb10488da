package types

import "github.com/shopspring/decimal"

// CheckoutFields are the shipping/contact inputs collected at checkout.
type CheckoutFields struct {
	Address string `json:"address" validate:"required"`
	Phone   string `json:"phone" validate:"required"`
	Email   string `json:"email" validate:"required,email"`
}

// OrderLine is a cart line frozen into an order payload.
type OrderLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// Order is the finalized purchase request built from the cart and customer
// fields. It is immutable after construction and never persisted locally;
// the remote service is its system of record.
type Order struct {
	CustomerName string          `json:"customer_name"`
	Address      string          `json:"address"`
	Phone        string          `json:"phone"`
	Email        string          `json:"email"`
	Lines        []OrderLine     `json:"lines"`
	Total        decimal.Decimal `json:"total"`
}

// OrderConfirmation echoes what the remote service accepted.
type OrderConfirmation struct {
	OrderID string      `json:"order_id"`
	Lines   []OrderLine `json:"lines"`
}
