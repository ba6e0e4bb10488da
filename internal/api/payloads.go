package api

import (
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/petalworks/storefront-core/pkg/types"
)

// The wire shapes tolerate the service's loose typing: ids arrive as numbers,
// prices as either numbers or strings.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginResponse struct {
	Access  string         `json:"access"`
	Refresh string         `json:"refresh"`
	Client  profilePayload `json:"client"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type profilePayload struct {
	ID        json.Number `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Phone     string      `json:"phone"`
	Address   string      `json:"address"`
	Image     string      `json:"image"`
}

func (p profilePayload) toProfile() types.Profile {
	return types.Profile{
		ID:        p.ID.String(),
		FirstName: p.FirstName,
		LastName:  p.LastName,
		Email:     p.Email,
		Phone:     p.Phone,
		Address:   p.Address,
		Image:     p.Image,
	}
}

type catalogResponse struct {
	Flowers    []flowerPayload   `json:"flowers"`
	Categories []categoryPayload `json:"categories"`
}

type flowerPayload struct {
	ID         json.Number     `json:"id"`
	Name       string          `json:"name"`
	Price      decimal.Decimal `json:"price"`
	Image      string          `json:"image"`
	CategoryID json.Number     `json:"categoryId"`
}

type categoryPayload struct {
	ID   json.Number `json:"id"`
	Name string      `json:"name"`
}

func (c catalogResponse) toSnapshot() types.CatalogSnapshot {
	snapshot := types.CatalogSnapshot{
		Items:      make([]types.CatalogItem, 0, len(c.Flowers)),
		Categories: make([]types.Category, 0, len(c.Categories)),
	}
	for _, flower := range c.Flowers {
		snapshot.Items = append(snapshot.Items, types.CatalogItem{
			ID:         flower.ID.String(),
			Name:       flower.Name,
			Price:      flower.Price,
			Image:      flower.Image,
			CategoryID: flower.CategoryID.String(),
		})
	}
	for _, category := range c.Categories {
		snapshot.Categories = append(snapshot.Categories, types.Category{
			ID:   category.ID.String(),
			Name: category.Name,
		})
	}
	return snapshot
}

type orderItemPayload struct {
	FlowerID string `json:"flower_id"`
	Name     string `json:"name"`
	Image    string `json:"image"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
}

type orderRequest struct {
	CustomerName string             `json:"customer_name"`
	Address      string             `json:"address"`
	Phone        string             `json:"phone"`
	Email        string             `json:"email"`
	Total        string             `json:"total"`
	OrderItems   []orderItemPayload `json:"order_items"`
}

func orderRequestFrom(order types.Order) orderRequest {
	items := make([]orderItemPayload, 0, len(order.Lines))
	for _, line := range order.Lines {
		items = append(items, orderItemPayload{
			FlowerID: line.ItemID,
			Name:     line.Name,
			Image:    line.Image,
			Quantity: line.Quantity,
			Price:    line.UnitPrice.StringFixed(2),
		})
	}
	return orderRequest{
		CustomerName: order.CustomerName,
		Address:      order.Address,
		Phone:        order.Phone,
		Email:        order.Email,
		Total:        order.Total.StringFixed(2),
		OrderItems:   items,
	}
}

type orderResponse struct {
	Order struct {
		ID json.Number `json:"id"`
	} `json:"order"`
	OrderItems []orderItemPayload `json:"order_items"`
}

func (o orderResponse) toConfirmation() (types.OrderConfirmation, error) {
	lines := make([]types.OrderLine, 0, len(o.OrderItems))
	for _, item := range o.OrderItems {
		price, err := decimal.NewFromString(item.Price)
		if err != nil {
			return types.OrderConfirmation{}, err
		}
		lines = append(lines, types.OrderLine{
			ItemID:    item.FlowerID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			UnitPrice: price,
		})
	}
	return types.OrderConfirmation{
		OrderID: o.Order.ID.String(),
		Lines:   lines,
	}, nil
}

// errorResponse covers both error body shapes the service produces.
type errorResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func (e errorResponse) text() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

// RegisterInput carries the sign-up form fields.
type RegisterInput struct {
	Email     string `json:"email"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Password  string `json:"password"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
}

type passwordResetRequest struct {
	Email string `json:"email"`
}

type passwordVerifyRequest struct {
	Email       string `json:"email"`
	Code        string `json:"code"`
	NewPassword string `json:"new_password"`
}
