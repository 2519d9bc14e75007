package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/cart"
	"pos-terminal/model"
	"pos-terminal/orderclient"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrInvalidUser     = errors.New("user_id required")
	ErrInvalidQuantity = errors.New("quantity must be > 0")
	ErrQuantityLimit   = fmt.Errorf("quantity exceeds %d per line", cart.MaxLineQuantity)
	ErrInvalidPrice    = errors.New("price must be >= 0")
	ErrInvalidOrder    = errors.New("order id required")
	ErrNothingToUpdate = errors.New("quantity or price required")
	ErrOrderClosed     = errors.New("order is completed or cancelled")
)

// Catalog is the read side the service needs from *catalog.Catalog.
type Catalog interface {
	Load(ctx context.Context) error
	Lookup(id int64) (model.Product, bool)
	Products() []model.Product
	Categories() []model.Category
	Filter(query string, categoryID *int64) []model.Product
	Suggest(query string, limit int) []model.Product
}

// Orders is the Order Service surface, satisfied by *orderclient.Client.
type Orders interface {
	cart.OrderCreator
	List(ctx context.Context) ([]model.Order, error)
	ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error)
	ListByUser(ctx context.Context, userID int64) ([]model.Order, error)
	Get(ctx context.Context, orderID int64) (*model.Order, error)
	UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error)
	AddItem(ctx context.Context, orderID int64, item orderclient.Item) (*model.Order, error)
	UpdateItem(ctx context.Context, orderID, itemID int64, upd orderclient.ItemUpdate) (*model.Order, error)
	RemoveItem(ctx context.Context, orderID, itemID int64) (*model.Order, error)
	Delete(ctx context.Context, orderID int64) error
}

type Service struct {
	catalog Catalog
	orders  Orders
	log     *zap.Logger

	// carts maps user id to *cart.Manager.
	carts   sync.Map
	evictMu sync.RWMutex
}

func NewService(c Catalog, o Orders, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{catalog: c, orders: o, log: log}
}

// withCart runs fn against the user's cart. With create false an unknown
// user gets nil. Eviction takes evictMu exclusively, so a manager handed to
// fn stays registered until fn returns.
func (s *Service) withCart(userID int64, create bool, fn func(m *cart.Manager)) {
	s.evictMu.RLock()
	defer s.evictMu.RUnlock()
	v, ok := s.carts.Load(userID)
	if !ok && create {
		v, _ = s.carts.LoadOrStore(userID, cart.New(s.orders, cart.WithLogger(s.log.With(zap.Int64("user_id", userID)))))
		ok = true
	}
	if !ok {
		fn(nil)
		return
	}
	fn(v.(*cart.Manager))
}

// evict drops m once it is empty and idle.
func (s *Service) evict(userID int64, m *cart.Manager) {
	s.evictMu.Lock()
	defer s.evictMu.Unlock()
	if m.Empty() && !m.Submitting() {
		s.carts.CompareAndDelete(userID, m)
	}
}

func (s *Service) Products(query string, categoryID *int64) []model.Product {
	return s.catalog.Filter(query, categoryID)
}

func (s *Service) Categories() []model.Category { return s.catalog.Categories() }

func (s *Service) Suggest(query string) []model.Product {
	return s.catalog.Suggest(query, 0)
}

func (s *Service) RefreshCatalog(ctx context.Context) error {
	return s.catalog.Load(ctx)
}

func (s *Service) AddToCart(userID, productID int64, qty int) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	if qty <= 0 {
		return CartDTO{}, ErrInvalidQuantity
	}
	if qty > cart.MaxLineQuantity {
		return CartDTO{}, ErrQuantityLimit
	}
	p, ok := s.catalog.Lookup(productID)
	if !ok {
		return CartDTO{}, ErrProductNotFound
	}
	var (
		view CartDTO
		err  error
	)
	s.withCart(userID, true, func(m *cart.Manager) {
		if !m.Add(p, qty) {
			err = ErrQuantityLimit
		}
		view = cartView(userID, m)
	})
	return view, err
}

func (s *Service) ChangeQuantity(userID, productID int64, delta int) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	var (
		view CartDTO
		err  error
	)
	s.withCart(userID, false, func(m *cart.Manager) {
		if m == nil {
			view = emptyView(userID)
			return
		}
		if l, ok := m.Line(productID); ok && delta > 0 && l.Quantity > cart.MaxLineQuantity-delta {
			err = ErrQuantityLimit
		} else {
			m.ChangeQuantity(productID, delta)
		}
		view = cartView(userID, m)
	})
	return view, err
}

// SetQuantity replaces a line's quantity; zero or less removes it.
func (s *Service) SetQuantity(userID, productID int64, qty int) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	if qty > cart.MaxLineQuantity {
		return CartDTO{}, ErrQuantityLimit
	}
	return s.mutate(userID, func(m *cart.Manager) { m.SetQuantity(productID, qty) }), nil
}

func (s *Service) RemoveFromCart(userID, productID int64) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	return s.mutate(userID, func(m *cart.Manager) { m.Remove(productID) }), nil
}

func (s *Service) ClearCart(userID int64) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	return s.mutate(userID, func(m *cart.Manager) { m.Clear() }), nil
}

// GetCart never registers a cart; unknown users see an empty one.
func (s *Service) GetCart(userID int64) (CartDTO, error) {
	if userID <= 0 {
		return CartDTO{}, ErrInvalidUser
	}
	return s.mutate(userID, func(*cart.Manager) {}), nil
}

// mutate applies fn to an existing cart. Users without one get an empty view.
func (s *Service) mutate(userID int64, fn func(m *cart.Manager)) CartDTO {
	var view CartDTO
	s.withCart(userID, false, func(m *cart.Manager) {
		if m == nil {
			view = emptyView(userID)
			return
		}
		fn(m)
		view = cartView(userID, m)
	})
	return view
}

// Checkout submits the user's cart. Errors are the cart's:
// cart.ErrEmptyCart, cart.ErrSubmitInProgress or *cart.SubmitError.
// A cart left empty by a successful submission is dropped.
func (s *Service) Checkout(ctx context.Context, userID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, ErrInvalidUser
	}
	var m *cart.Manager
	s.withCart(userID, false, func(found *cart.Manager) { m = found })
	if m == nil {
		return nil, cart.ErrEmptyCart
	}
	o, err := m.Submit(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.evict(userID, m)
	return o, nil
}

// ListOrders lists every order, narrowed to one user when userID is set
// and to one status when status is set.
func (s *Service) ListOrders(ctx context.Context, status string, userID int64) ([]model.Order, error) {
	if userID < 0 {
		return nil, ErrInvalidUser
	}
	var st model.OrderStatus
	if status != "" {
		parsed, err := model.ParseOrderStatus(status)
		if err != nil {
			return nil, err
		}
		st = parsed
	}
	switch {
	case userID > 0:
		orders, err := s.orders.ListByUser(ctx, userID)
		if err != nil || st == "" {
			return orders, err
		}
		out := make([]model.Order, 0, len(orders))
		for _, o := range orders {
			if o.Status == st {
				out = append(out, o)
			}
		}
		return out, nil
	case st != "":
		return s.orders.ListByStatus(ctx, st)
	default:
		return s.orders.List(ctx)
	}
}

func (s *Service) GetOrder(ctx context.Context, orderID int64) (*model.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrder
	}
	return s.orders.Get(ctx, orderID)
}

func (s *Service) UpdateOrderStatus(ctx context.Context, orderID int64, status string) (*model.Order, error) {
	if orderID <= 0 {
		return nil, ErrInvalidOrder
	}
	st, err := model.ParseOrderStatus(status)
	if err != nil {
		return nil, err
	}
	o, err := s.orders.UpdateStatus(ctx, orderID, st)
	if err != nil {
		return nil, err
	}
	s.log.Info("order status changed", zap.Int64("order_id", orderID), zap.String("status", string(st)))
	return o, nil
}

// AddOrderItem appends a product to an existing order. Without an explicit
// price the catalog price is used.
func (s *Service) AddOrderItem(ctx context.Context, orderID, productID int64, qty int, price *decimal.Decimal) (*model.Order, error) {
	if qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty > cart.MaxLineQuantity {
		return nil, ErrQuantityLimit
	}
	item := orderclient.Item{ProductID: productID, Quantity: qty}
	switch {
	case price != nil:
		if price.IsNegative() {
			return nil, ErrInvalidPrice
		}
		item.Price = *price
	default:
		p, ok := s.catalog.Lookup(productID)
		if !ok {
			return nil, ErrProductNotFound
		}
		item.Price = p.Price
	}
	if err := s.editable(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.AddItem(ctx, orderID, item)
}

func (s *Service) UpdateOrderItem(ctx context.Context, orderID, itemID int64, qty *int, price *decimal.Decimal) (*model.Order, error) {
	if qty == nil && price == nil {
		return nil, ErrNothingToUpdate
	}
	if qty != nil && *qty <= 0 {
		return nil, ErrInvalidQuantity
	}
	if qty != nil && *qty > cart.MaxLineQuantity {
		return nil, ErrQuantityLimit
	}
	if price != nil && price.IsNegative() {
		return nil, ErrInvalidPrice
	}
	if err := s.editable(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.UpdateItem(ctx, orderID, itemID, orderclient.ItemUpdate{Quantity: qty, Price: price})
}

func (s *Service) RemoveOrderItem(ctx context.Context, orderID, itemID int64) (*model.Order, error) {
	if err := s.editable(ctx, orderID); err != nil {
		return nil, err
	}
	return s.orders.RemoveItem(ctx, orderID, itemID)
}

func (s *Service) DeleteOrder(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return ErrInvalidOrder
	}
	if err := s.orders.Delete(ctx, orderID); err != nil {
		return err
	}
	s.log.Info("order deleted", zap.Int64("order_id", orderID))
	return nil
}

// editable fetches the order and refuses edits once it is final.
func (s *Service) editable(ctx context.Context, orderID int64) error {
	if orderID <= 0 {
		return ErrInvalidOrder
	}
	o, err := s.orders.Get(ctx, orderID)
	if err != nil {
		return err
	}
	if o.Status.Final() {
		return ErrOrderClosed
	}
	return nil
}

func emptyView(userID int64) CartDTO {
	return CartDTO{UserID: userID, Lines: []CartLineDTO{}, Total: decimal.Zero}
}

func cartView(userID int64, m *cart.Manager) CartDTO {
	lines := m.Lines()
	out := CartDTO{UserID: userID, Lines: make([]CartLineDTO, 0, len(lines)), Total: decimal.Zero, Submitting: m.Submitting()}
	for _, l := range lines {
		sub := l.Subtotal()
		out.Lines = append(out.Lines, CartLineDTO{
			ProductID: l.ProductID,
			Title:     l.Title,
			Price:     l.Price,
			Quantity:  l.Quantity,
			Subtotal:  sub,
		})
		out.Total = out.Total.Add(sub)
		out.ItemCount += l.Quantity
	}
	return out
}

// DTOs
type CartLineDTO struct {
	ProductID int64           `json:"product_id"`
	Title     string          `json:"title"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type CartDTO struct {
	UserID     int64           `json:"user_id"`
	Lines      []CartLineDTO   `json:"lines"`
	Total      decimal.Decimal `json:"total"`
	ItemCount  int             `json:"item_count"`
	Submitting bool            `json:"submitting"`
}
