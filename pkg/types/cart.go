package types

import "github.com/shopspring/decimal"

// CartLine is one product's quantity entry in the shopping cart. Name, price,
// and image are snapshotted at add time so the cart renders even when the
// catalog later changes or fails to load.
type CartLine struct {
	ItemID    string          `json:"item_id"`
	Name      string          `json:"name"`
	Image     string          `json:"image"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Quantity  int             `json:"quantity"`
}
