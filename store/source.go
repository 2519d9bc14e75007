package store

import (
	"context"

	"go.uber.org/zap"

	"pos-terminal/model"
)

// Source adapts a Store to catalog.Source. Log may be nil.
type Source struct {
	Store Store
	Log   *zap.Logger
}

func (s Source) logger() *zap.Logger {
	if s.Log == nil {
		return zap.NewNop()
	}
	return s.Log
}

func (s Source) Products(ctx context.Context) ([]model.Product, error) {
	rows, err := s.Store.ListProducts(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(rows))
	for _, r := range rows {
		if r.Quantity < model.UnlimitedStock || r.Price.IsNegative() {
			s.logger().Warn("dropping invalid product", zap.Int64("product_id", r.ID),
				zap.Int("quantity", r.Quantity), zap.Bool("negative_price", r.Price.IsNegative()))
			continue
		}
		p := model.Product{
			ID:       r.ID,
			Title:    r.Title,
			Quantity: r.Quantity,
			Price:    r.Price,
			Active:   r.IsActive,
		}
		if r.Description.Valid {
			p.Description = r.Description.String
		}
		if r.CategoryID.Valid {
			id := r.CategoryID.Int64
			p.CategoryID = &id
		}
		out = append(out, p)
	}
	return out, nil
}

func (s Source) Categories(ctx context.Context) ([]model.Category, error) {
	rows, err := s.Store.ListCategories(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(rows))
	for _, r := range rows {
		out = append(out, model.Category{ID: r.ID, Name: r.Name, Active: r.IsActive})
	}
	return out, nil
}
