// Package cart holds the terminal's in-memory cart and submits it as an order.
//
// A Manager owns one cart. Every mutation is applied under the manager's
// lock against the latest lines, so concurrent requests for the same product
// never lose an increment. The only suspension point is Submit, which is
// guarded so that a second Submit fails fast while one is in flight.
package cart

import (
	"context"
	"errors"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/model"
	"pos-terminal/orderclient"
)

// MaxLineQuantity bounds a single line. Mutations that would go past it
// are ignored like any other rejected mutation.
const MaxLineQuantity = 1_000_000

var (
	ErrEmptyCart        = errors.New("cart is empty")
	ErrSubmitInProgress = errors.New("order submission already in progress")
	ErrNoUser           = errors.New("user id required")
)

// OrderCreator is the one Order Service call the cart needs.
type OrderCreator interface {
	Create(ctx context.Context, userID int64, items []orderclient.Item) (*model.Order, error)
}

type Manager struct {
	orders      OrderCreator
	log         *zap.Logger
	onSubmitted func(model.Order)

	mu    sync.Mutex
	lines []model.CartLine
	// inflight holds, per product, the units of the submission in flight
	// that are still in the cart. nil when nothing is being submitted.
	inflight map[int64]int

	submitting atomic.Bool
}

type Option func(*Manager)

func WithLogger(l *zap.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// OnSubmitted registers fn to run once after every successful submission.
func OnSubmitted(fn func(model.Order)) Option {
	return func(m *Manager) { m.onSubmitted = fn }
}

func New(orders OrderCreator, opts ...Option) *Manager {
	m := &Manager{orders: orders, log: zap.NewNop()}
	for _, o := range opts {
		o(m)
	}
	return m
}

// update runs fn against the current lines and stores its result.
// fn returns false when it made no change.
func (m *Manager) update(fn func(lines []model.CartLine) ([]model.CartLine, bool)) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	next, changed := fn(m.lines)
	if !changed {
		return false
	}
	m.lines = next
	for id, qty := range m.inflight {
		i := indexOf(next, id)
		switch {
		case i < 0:
			delete(m.inflight, id)
		case next[i].Quantity < qty:
			m.inflight[id] = next[i].Quantity
		}
	}
	return true
}

// AddOne adds a single unit of p.
func (m *Manager) AddOne(p model.Product) bool { return m.Add(p, 1) }

// Add puts qty units of p in the cart, merging into an existing line.
// Inactive products and non-positive quantities are ignored. Stock is not
// checked here; the Order Service is the authority on availability.
func (m *Manager) Add(p model.Product, qty int) bool {
	if !p.Active || p.ID <= 0 || qty <= 0 || qty > MaxLineQuantity {
		return false
	}
	return m.update(func(lines []model.CartLine) ([]model.CartLine, bool) {
		if i := indexOf(lines, p.ID); i >= 0 {
			if lines[i].Quantity > MaxLineQuantity-qty {
				return lines, false
			}
			next := slices.Clone(lines)
			next[i].Quantity += qty
			return next, true
		}
		return append(slices.Clone(lines), model.CartLine{
			ProductID: p.ID,
			Title:     p.Title,
			Price:     p.Price,
			Quantity:  qty,
		}), true
	})
}

// ChangeQuantity adds delta to the line for productID, dropping the line
// when it reaches zero or below. Unknown products are ignored.
func (m *Manager) ChangeQuantity(productID int64, delta int) bool {
	if delta == 0 {
		return false
	}
	return m.update(func(lines []model.CartLine) ([]model.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines, false
		}
		if delta > 0 && lines[i].Quantity > MaxLineQuantity-delta {
			return lines, false
		}
		if lines[i].Quantity+delta <= 0 {
			return slices.Delete(slices.Clone(lines), i, i+1), true
		}
		next := slices.Clone(lines)
		next[i].Quantity += delta
		return next, true
	})
}

// SetQuantity replaces the line quantity. qty <= 0 removes the line.
func (m *Manager) SetQuantity(productID int64, qty int) bool {
	if qty <= 0 {
		return m.Remove(productID)
	}
	if qty > MaxLineQuantity {
		return false
	}
	return m.update(func(lines []model.CartLine) ([]model.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 || lines[i].Quantity == qty {
			return lines, false
		}
		next := slices.Clone(lines)
		next[i].Quantity = qty
		return next, true
	})
}

func (m *Manager) Remove(productID int64) bool {
	return m.update(func(lines []model.CartLine) ([]model.CartLine, bool) {
		i := indexOf(lines, productID)
		if i < 0 {
			return lines, false
		}
		return slices.Delete(slices.Clone(lines), i, i+1), true
	})
}

func (m *Manager) Clear() {
	m.update(func(lines []model.CartLine) ([]model.CartLine, bool) {
		return nil, len(lines) > 0
	})
}

// Lines returns a copy of the cart in insertion order.
func (m *Manager) Lines() []model.CartLine {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.lines)
}

func (m *Manager) Line(productID int64) (model.CartLine, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := indexOf(m.lines, productID); i >= 0 {
		return m.lines[i], true
	}
	return model.CartLine{}, false
}

func (m *Manager) Empty() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lines) == 0
}

// Total is the advisory sum of price times quantity. The Order Service
// computes the authoritative figure.
func (m *Manager) Total() decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return total(m.lines)
}

func (m *Manager) ItemCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, l := range m.lines {
		n += l.Quantity
	}
	return n
}

// Submitting reports whether a submission is in flight.
func (m *Manager) Submitting() bool { return m.submitting.Load() }

func total(lines []model.CartLine) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		sum = sum.Add(l.Subtotal())
	}
	return sum
}

func indexOf(lines []model.CartLine, productID int64) int {
	return slices.IndexFunc(lines, func(l model.CartLine) bool { return l.ProductID == productID })
}
