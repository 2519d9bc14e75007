package cart_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
	"github.com/shopspring/decimal"

	"pos-terminal/cart"
	"pos-terminal/model"
	"pos-terminal/orderclient"
)

type stubOrders struct {
	reject string
	calls  int
}

func (s *stubOrders) Create(ctx context.Context, userID int64, items []orderclient.Item) (*model.Order, error) {
	s.calls++
	if s.reject != "" {
		return nil, &orderclient.APIError{StatusCode: 400, Message: s.reject}
	}
	return &model.Order{ID: int64(s.calls), UserID: userID, Status: model.StatusPending}, nil
}

type cartTestContext struct {
	products  map[int64]model.Product
	orders    *stubOrders
	manager   *cart.Manager
	successes int
	err       error
}

func (c *cartTestContext) reset() {
	c.products = map[int64]model.Product{}
	c.orders = &stubOrders{}
	c.successes = 0
	c.err = nil
	c.manager = cart.New(c.orders, cart.OnSubmitted(func(model.Order) { c.successes++ }))
}

func (c *cartTestContext) anEmptyCart() error {
	if !c.manager.Empty() {
		return errors.New("cart not empty")
	}
	return nil
}

func (c *cartTestContext) aProductPriced(id int, title, price string) error {
	p, err := decimal.NewFromString(price)
	if err != nil {
		return err
	}
	c.products[int64(id)] = model.Product{ID: int64(id), Title: title, Price: p, Quantity: model.UnlimitedStock, Active: true}
	return nil
}

func (c *cartTestContext) theOrderServiceAcceptsOrders() error {
	c.orders.reject = ""
	return nil
}

func (c *cartTestContext) theOrderServiceRejectsOrdersWith(msg string) error {
	c.orders.reject = msg
	return nil
}

func (c *cartTestContext) product(id int) (model.Product, error) {
	p, ok := c.products[int64(id)]
	if !ok {
		return model.Product{}, fmt.Errorf("product %d not defined", id)
	}
	return p, nil
}

func (c *cartTestContext) iAddProduct(id int) error {
	return c.iAddNOfProduct(1, id)
}

func (c *cartTestContext) iAddNOfProduct(n, id int) error {
	p, err := c.product(id)
	if err != nil {
		return err
	}
	c.manager.Add(p, n)
	return nil
}

func (c *cartTestContext) iChangeProductBy(id, delta int) error {
	c.manager.ChangeQuantity(int64(id), delta)
	return nil
}

func (c *cartTestContext) iRemoveProduct(id int) error {
	c.manager.Remove(int64(id))
	return nil
}

func (c *cartTestContext) iClearTheCart() error {
	c.manager.Clear()
	return nil
}

func (c *cartTestContext) iSubmitTheCartAsUser(userID int) error {
	_, c.err = c.manager.Submit(context.Background(), int64(userID))
	return nil
}

func (c *cartTestContext) theCartHasLines(n int) error {
	if got := len(c.manager.Lines()); got != n {
		return fmt.Errorf("expected %d lines, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) productHasQuantity(id, qty int) error {
	l, ok := c.manager.Line(int64(id))
	if !ok {
		return fmt.Errorf("no line for product %d", id)
	}
	if l.Quantity != qty {
		return fmt.Errorf("expected quantity %d, got %d", qty, l.Quantity)
	}
	return nil
}

func (c *cartTestContext) theCartTotalIs(total string) error {
	want, err := decimal.NewFromString(total)
	if err != nil {
		return err
	}
	if got := c.manager.Total(); !got.Equal(want) {
		return fmt.Errorf("expected total %s, got %s", want, got)
	}
	return nil
}

func (c *cartTestContext) theItemCountIs(n int) error {
	if got := c.manager.ItemCount(); got != n {
		return fmt.Errorf("expected item count %d, got %d", n, got)
	}
	return nil
}

func (c *cartTestContext) theCartIsEmpty() error {
	if !c.manager.Empty() {
		return fmt.Errorf("expected empty cart, got %+v", c.manager.Lines())
	}
	return nil
}

func (c *cartTestContext) noOrderRequestWasSent() error {
	if c.orders.calls != 0 {
		return fmt.Errorf("expected no request, got %d", c.orders.calls)
	}
	if !errors.Is(c.err, cart.ErrEmptyCart) {
		return fmt.Errorf("expected ErrEmptyCart, got %v", c.err)
	}
	return nil
}

func (c *cartTestContext) theErrorShownIs(msg string) error {
	var serr *cart.SubmitError
	if !errors.As(c.err, &serr) {
		return fmt.Errorf("expected submit error, got %v", c.err)
	}
	if serr.Message != msg {
		return fmt.Errorf("expected %q, got %q", msg, serr.Message)
	}
	return nil
}

func (c *cartTestContext) theSuccessSignalFired(n int) error {
	if c.err != nil {
		return fmt.Errorf("unexpected error: %v", c.err)
	}
	if c.successes != n {
		return fmt.Errorf("expected %d success signals, got %d", n, c.successes)
	}
	return nil
}

func InitializeScenario(ctx *godog.ScenarioContext) {
	tc := &cartTestContext{}

	ctx.Before(func(ctx context.Context, sc *godog.Scenario) (context.Context, error) {
		tc.reset()
		return ctx, nil
	})

	// Given steps
	ctx.Step(`^an empty cart$`, tc.anEmptyCart)
	ctx.Step(`^product (\d+) "([^"]*)" priced ([0-9.]+)$`, tc.aProductPriced)
	ctx.Step(`^the order service accepts orders$`, tc.theOrderServiceAcceptsOrders)
	ctx.Step(`^the order service rejects orders with "([^"]*)"$`, tc.theOrderServiceRejectsOrdersWith)

	// When steps
	ctx.Step(`^I add product (\d+)$`, tc.iAddProduct)
	ctx.Step(`^I add (\d+) of product (\d+)$`, tc.iAddNOfProduct)
	ctx.Step(`^I change product (\d+) by (-?\d+)$`, tc.iChangeProductBy)
	ctx.Step(`^I remove product (\d+)$`, tc.iRemoveProduct)
	ctx.Step(`^I clear the cart$`, tc.iClearTheCart)
	ctx.Step(`^I submit the cart as user (\d+)$`, tc.iSubmitTheCartAsUser)

	// Then steps
	ctx.Step(`^the cart has (\d+) lines?$`, tc.theCartHasLines)
	ctx.Step(`^product (\d+) has quantity (\d+)$`, tc.productHasQuantity)
	ctx.Step(`^the cart total is ([0-9.]+)$`, tc.theCartTotalIs)
	ctx.Step(`^the item count is (\d+)$`, tc.theItemCountIs)
	ctx.Step(`^the cart is empty$`, tc.theCartIsEmpty)
	ctx.Step(`^no order request was sent$`, tc.noOrderRequestWasSent)
	ctx.Step(`^the error shown is "([^"]*)"$`, tc.theErrorShownIs)
	ctx.Step(`^the success signal fired (\d+) times?$`, tc.theSuccessSignalFired)
}

func TestFeatures(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"../features/cart.feature"},
			Strict:   true,
			TestingT: t,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
