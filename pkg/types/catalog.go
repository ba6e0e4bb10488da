package types

import "github.com/shopspring/decimal"

// CatalogItem is one product in the remote catalog. Items are immutable once
// fetched; other stores refer to them by ID only.
type CatalogItem struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	CategoryID string          `json:"category_id"`
}

// Category groups catalog items for the filtered browse view.
type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// CatalogSnapshot is the in-memory copy of the remote product/category list.
type CatalogSnapshot struct {
	Items      []CatalogItem `json:"items"`
	Categories []Category    `json:"categories"`
}
