package cart

import (
	"context"
	"errors"
	"slices"

	"go.uber.org/zap"

	"pos-terminal/model"
	"pos-terminal/orderclient"
)

// GenericSubmitMessage is shown when the Order Service gave no usable reason.
const GenericSubmitMessage = "could not submit order"

// SubmitError is the single failure kind Submit reports. Message is meant
// for the person at the terminal; the cart is untouched when it is returned.
type SubmitError struct {
	Message string
	Err     error
}

func (e *SubmitError) Error() string { return e.Message }

func (e *SubmitError) Unwrap() error { return e.Err }

func newSubmitError(err error) *SubmitError {
	var apiErr *orderclient.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return &SubmitError{Message: apiErr.Message, Err: err}
	}
	return &SubmitError{Message: GenericSubmitMessage, Err: err}
}

// Submit sends the cart to the Order Service on behalf of userID.
//
// An empty cart returns ErrEmptyCart without any request. A call made while
// another is in flight returns ErrSubmitInProgress. On success the submitted
// lines leave the cart and the OnSubmitted hook runs once. On failure the
// cart is left exactly as it was and a *SubmitError is returned.
//
// Cancelling ctx does not abort a submission that has started; the HTTP
// client timeout bounds it instead.
func (m *Manager) Submit(ctx context.Context, userID int64) (*model.Order, error) {
	if userID <= 0 {
		return nil, ErrNoUser
	}
	if !m.submitting.CompareAndSwap(false, true) {
		return nil, ErrSubmitInProgress
	}
	defer m.submitting.Store(false)

	m.mu.Lock()
	snapshot := slices.Clone(m.lines)
	if len(snapshot) > 0 {
		m.inflight = make(map[int64]int, len(snapshot))
		for _, l := range snapshot {
			m.inflight[l.ProductID] = l.Quantity
		}
	}
	m.mu.Unlock()

	if len(snapshot) == 0 {
		return nil, ErrEmptyCart
	}

	items := make([]orderclient.Item, 0, len(snapshot))
	for _, l := range snapshot {
		items = append(items, orderclient.Item{ProductID: l.ProductID, Quantity: l.Quantity, Price: l.Price})
	}

	order, err := m.orders.Create(context.WithoutCancel(ctx), userID, items)
	if err != nil {
		m.mu.Lock()
		m.inflight = nil
		m.mu.Unlock()
		serr := newSubmitError(err)
		m.log.Warn("order submission failed",
			zap.Int64("user_id", userID), zap.Int("lines", len(items)),
			zap.String("message", serr.Message), zap.Error(err))
		return nil, serr
	}
	if order == nil {
		order = &model.Order{UserID: userID}
	}

	m.settle()
	m.log.Info("order submitted", zap.Int64("user_id", userID), zap.Int64("order_id", order.ID), zap.Int("lines", len(items)))

	if m.onSubmitted != nil {
		m.onSubmitted(*order)
	}
	return order, nil
}

// settle removes the submitted units still in the cart. Lines added while
// the request ran survive, and units already removed by the user by then
// (Remove, Clear, a lower quantity) are not taken twice.
func (m *Manager) settle() {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := make([]model.CartLine, 0, len(m.lines))
	for _, l := range m.lines {
		l.Quantity -= m.inflight[l.ProductID]
		if l.Quantity > 0 {
			next = append(next, l)
		}
	}
	m.lines = next
	m.inflight = nil
}
