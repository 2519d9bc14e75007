package model

import "github.com/shopspring/decimal"

// CartLine is one product in a cart. Title and Price are copied from the
// product when the line is created and are not re-synced afterwards.
type CartLine struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

func (l CartLine) Subtotal() decimal.Decimal {
	return l.Price.Mul(decimal.NewFromInt(int64(l.Quantity)))
}
