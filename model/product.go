package model

import "github.com/shopspring/decimal"

// UnlimitedStock is the quantity the catalog reports for products without stock tracking.
const UnlimitedStock = -1

type Product struct {
	ID          int64           `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Active      bool            `json:"is_active"`
}

func (p Product) Unlimited() bool { return p.Quantity == UnlimitedStock }

// Available reports whether qty units are in stock according to the last
// catalog snapshot. It is advisory only; the Order Service decides.
func (p Product) Available(qty int) bool {
	return p.Unlimited() || p.Quantity >= qty
}

type Category struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"is_active"`
}
