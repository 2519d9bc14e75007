package service

import (
	"context"

	"github.com/shopspring/decimal"

	"pos-terminal/model"
)

type ServiceInterface interface {
	Products(query string, categoryID *int64) []model.Product
	Categories() []model.Category
	Suggest(query string) []model.Product
	RefreshCatalog(ctx context.Context) error

	AddToCart(userID, productID int64, qty int) (CartDTO, error)
	ChangeQuantity(userID, productID int64, delta int) (CartDTO, error)
	SetQuantity(userID, productID int64, qty int) (CartDTO, error)
	RemoveFromCart(userID, productID int64) (CartDTO, error)
	ClearCart(userID int64) (CartDTO, error)
	GetCart(userID int64) (CartDTO, error)
	Checkout(ctx context.Context, userID int64) (*model.Order, error)

	ListOrders(ctx context.Context, status string, userID int64) ([]model.Order, error)
	GetOrder(ctx context.Context, orderID int64) (*model.Order, error)
	UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*model.Order, error)
	AddOrderItem(ctx context.Context, orderID, productID int64, qty int, price *decimal.Decimal) (*model.Order, error)
	UpdateOrderItem(ctx context.Context, orderID, itemID int64, qty *int, price *decimal.Decimal) (*model.Order, error)
	RemoveOrderItem(ctx context.Context, orderID, itemID int64) (*model.Order, error)
	DeleteOrder(ctx context.Context, orderID int64) error
}
