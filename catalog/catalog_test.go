package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"pos-terminal/model"
)

type fakeSource struct {
	ProductsFn   func(ctx context.Context) ([]model.Product, error)
	CategoriesFn func(ctx context.Context) ([]model.Category, error)
}

func (f *fakeSource) Products(ctx context.Context) ([]model.Product, error) { return f.ProductsFn(ctx) }
func (f *fakeSource) Categories(ctx context.Context) ([]model.Category, error) {
	return f.CategoriesFn(ctx)
}

func ptr[T any](v T) *T { return &v }

func sampleSource() *fakeSource {
	return &fakeSource{
		ProductsFn: func(ctx context.Context) ([]model.Product, error) {
			return []model.Product{
				{ID: 1, Title: "Espresso", Description: "Strong coffee", CategoryID: ptr(int64(10)), Quantity: -1, Price: decimal.NewFromInt(3), Active: true},
				{ID: 2, Title: "Latte", Description: "Milk coffee", CategoryID: ptr(int64(10)), Quantity: 5, Price: decimal.NewFromInt(4), Active: true},
				{ID: 3, Title: "Croissant", Description: "Butter pastry", CategoryID: ptr(int64(20)), Quantity: 0, Price: decimal.NewFromInt(2), Active: true},
				{ID: 4, Title: "Old Brew", Quantity: 3, Price: decimal.NewFromInt(1), Active: false},
				{ID: 5, Title: "Water", Quantity: 9, Price: decimal.NewFromInt(1), Active: true},
			}, nil
		},
		CategoriesFn: func(ctx context.Context) ([]model.Category, error) {
			return []model.Category{
				{ID: 10, Name: "Coffee", Active: true},
				{ID: 20, Name: "Bakery", Active: true},
				{ID: 30, Name: "Seasonal", Active: false},
			}, nil
		},
	}
}

func loaded(t *testing.T) *Catalog {
	t.Helper()
	c := New(sampleSource(), nil)
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestLoadKeepsOnlyActive(t *testing.T) {
	c := loaded(t)

	require.Len(t, c.Products(), 4)
	require.Len(t, c.Categories(), 2)
	_, ok := c.Lookup(4)
	require.False(t, ok, "inactive product must not be addressable")
	p, ok := c.Lookup(2)
	require.True(t, ok)
	require.Equal(t, "Latte", p.Title)
}

func TestLoadErrorKeepsPreviousSnapshot(t *testing.T) {
	src := sampleSource()
	c := New(src, nil)
	require.NoError(t, c.Load(context.Background()))

	src.CategoriesFn = func(ctx context.Context) ([]model.Category, error) {
		return nil, errors.New("catalog down")
	}
	err := c.Load(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "catalog down")
	require.Len(t, c.Products(), 4)
}

func TestFilter(t *testing.T) {
	c := loaded(t)

	ids := func(ps []model.Product) []int64 {
		out := []int64{}
		for _, p := range ps {
			out = append(out, p.ID)
		}
		return out
	}

	require.Equal(t, []int64{1, 2, 3, 5}, ids(c.Filter("", nil)))
	require.Equal(t, []int64{1, 2}, ids(c.Filter("COFFEE", nil)), "description matches too")
	require.Equal(t, []int64{3}, ids(c.Filter("", ptr(int64(20)))))
	require.Equal(t, []int64{2}, ids(c.Filter("lat", ptr(int64(10)))))
	require.Empty(t, c.Filter("espresso", ptr(int64(20))))
}

func TestSuggest(t *testing.T) {
	c := loaded(t)

	require.Empty(t, c.Suggest("   ", 0))
	got := c.Suggest("e", 2)
	require.Len(t, got, 2)
	require.Equal(t, int64(1), got[0].ID)

	// title only, description "coffee" must not match
	require.Empty(t, c.Suggest("coffee", 0))
}

func TestHTTPSourceValidatesEntries(t *testing.T) {
	var auth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		switch r.URL.Path {
		case "/products":
			_, _ = w.Write([]byte(`{"products": [
				{"id": 1, "title": "Espresso", "description": null, "category_id": 10, "quantity": -1, "price": 3.5, "is_active": true},
				{"id": 2, "title": "  ", "quantity": 1, "price": 1, "is_active": true},
				{"id": 3, "title": "Bad Price", "quantity": 1, "price": -2, "is_active": true},
				{"id": 4, "title": "Bad Qty", "quantity": -5, "price": 2, "is_active": true},
				{"id": 5, "title": "No Flag", "quantity": 2, "price": "1.25", "extra": "ignored"}
			], "total": 5}`))
		case "/categories":
			_, _ = w.Write([]byte(`{"categories": [{"id": 10, "name": "Coffee", "is_active": true}, {"id": 0, "name": "x"}]}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	src := NewHTTPSource(srv.URL+"/", "tok", time.Second, nil)

	products, err := src.Products(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	require.Equal(t, int64(1), products[0].ID)
	require.True(t, products[0].Unlimited())
	require.True(t, products[0].Price.Equal(decimal.RequireFromString("3.5")))
	require.Equal(t, int64(10), *products[0].CategoryID)
	require.True(t, products[1].Active, "missing is_active defaults to active")
	require.True(t, products[1].Price.Equal(decimal.RequireFromString("1.25")))

	require.Equal(t, "Bearer tok", auth)

	cats, err := src.Categories(context.Background())
	require.NoError(t, err)
	require.Equal(t, []model.Category{{ID: 10, Name: "Coffee", Active: true}}, cats)
}

func TestHTTPSourceStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewHTTPSource(srv.URL, "", time.Second, nil).Products(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "503")
}

func TestEmptyCatalogListsAreNotNil(t *testing.T) {
	c := New(sampleSource(), nil)

	cats, err := json.Marshal(c.Categories())
	require.NoError(t, err)
	require.Equal(t, "[]", string(cats))
	prods, err := json.Marshal(c.Products())
	require.NoError(t, err)
	require.Equal(t, "[]", string(prods))
	require.NotNil(t, c.Filter("", nil))
	require.NotNil(t, c.Suggest("x", 0))
}
