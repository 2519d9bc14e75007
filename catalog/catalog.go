// Package catalog keeps the terminal's snapshot of sellable products and
// categories and answers the search box and category tabs from it.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.uber.org/zap"

	"pos-terminal/model"
)

// DefaultSuggestLimit caps the search-as-you-type list.
const DefaultSuggestLimit = 8

type Catalog struct {
	src Source
	log *zap.Logger

	mu         sync.RWMutex
	products   []model.Product
	byID       map[int64]model.Product
	categories []model.Category
}

func New(src Source, log *zap.Logger) *Catalog {
	if log == nil {
		log = zap.NewNop()
	}
	return &Catalog{
		src:        src,
		log:        log,
		products:   []model.Product{},
		byID:       map[int64]model.Product{},
		categories: []model.Category{},
	}
}

// Load fetches products and categories together and replaces the snapshot
// with their active subset. On error the previous snapshot is kept.
func (c *Catalog) Load(ctx context.Context) error {
	var (
		wg                sync.WaitGroup
		products          []model.Product
		categories        []model.Category
		errProds, errCats error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		products, errProds = c.src.Products(ctx)
	}()
	go func() {
		defer wg.Done()
		categories, errCats = c.src.Categories(ctx)
	}()
	wg.Wait()
	if err := errors.Join(errProds, errCats); err != nil {
		return fmt.Errorf("load catalog: %w", err)
	}

	active := make([]model.Product, 0, len(products))
	byID := make(map[int64]model.Product, len(products))
	for _, p := range products {
		if !p.Active {
			continue
		}
		active = append(active, p)
		byID[p.ID] = p
	}
	cats := make([]model.Category, 0, len(categories))
	for _, cat := range categories {
		if cat.Active {
			cats = append(cats, cat)
		}
	}

	c.mu.Lock()
	c.products, c.byID, c.categories = active, byID, cats
	c.mu.Unlock()

	c.log.Info("catalog loaded", zap.Int("products", len(active)), zap.Int("categories", len(cats)))
	return nil
}

// Lookup returns an active product by id.
func (c *Catalog) Lookup(id int64) (model.Product, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	p, ok := c.byID[id]
	return p, ok
}

func (c *Catalog) Products() []model.Product {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.products)
}

func (c *Catalog) Categories() []model.Category {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Clone(c.categories)
}

// Filter returns products whose title or description contains query
// (case-insensitive) and, when categoryID is set, that belong to it.
func (c *Catalog) Filter(query string, categoryID *int64) []model.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Product{}
	for _, p := range c.products {
		if categoryID != nil && (p.CategoryID == nil || *p.CategoryID != *categoryID) {
			continue
		}
		if q != "" &&
			!strings.Contains(strings.ToLower(p.Title), q) &&
			!strings.Contains(strings.ToLower(p.Description), q) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Suggest matches titles only and returns at most limit products.
// A blank query suggests nothing.
func (c *Catalog) Suggest(query string, limit int) []model.Product {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return []model.Product{}
	}
	if limit <= 0 {
		limit = DefaultSuggestLimit
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := []model.Product{}
	for _, p := range c.products {
		if strings.Contains(strings.ToLower(p.Title), q) {
			out = append(out, p)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
