package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/model"
)

// Source lists the catalog. Implementations return products and categories
// already validated; inactive entries are included.
type Source interface {
	Products(ctx context.Context) ([]model.Product, error)
	Categories(ctx context.Context) ([]model.Category, error)
}

// HTTPSource reads {base}/products and {base}/categories.
type HTTPSource struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zap.Logger
}

func NewHTTPSource(baseURL, token string, timeout time.Duration, log *zap.Logger) *HTTPSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &HTTPSource{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

// The catalog JSON is loosely typed; everything optional is a pointer so the
// validation step can tell missing from zero.
type productDTO struct {
	ID          int64            `json:"id"`
	Title       string           `json:"title"`
	Description *string          `json:"description"`
	CategoryID  *int64           `json:"category_id"`
	Quantity    *int             `json:"quantity"`
	Price       *decimal.Decimal `json:"price"`
	IsActive    *bool            `json:"is_active"`
}

type categoryDTO struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	IsActive *bool  `json:"is_active"`
}

func (s *HTTPSource) Products(ctx context.Context) ([]model.Product, error) {
	var resp struct {
		Products []productDTO `json:"products"`
	}
	if err := s.get(ctx, "/products", &resp); err != nil {
		return nil, err
	}
	out := make([]model.Product, 0, len(resp.Products))
	for _, dto := range resp.Products {
		p, err := dto.validate()
		if err != nil {
			s.log.Warn("dropping invalid product", zap.Int64("product_id", dto.ID), zap.Error(err))
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *HTTPSource) Categories(ctx context.Context) ([]model.Category, error) {
	var resp struct {
		Categories []categoryDTO `json:"categories"`
	}
	if err := s.get(ctx, "/categories", &resp); err != nil {
		return nil, err
	}
	out := make([]model.Category, 0, len(resp.Categories))
	for _, dto := range resp.Categories {
		c, err := dto.validate()
		if err != nil {
			s.log.Warn("dropping invalid category", zap.Int64("category_id", dto.ID), zap.Error(err))
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (s *HTTPSource) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.token != "" {
		req.Header.Set("Authorization", "Bearer "+s.token)
	}
	resp, err := s.http.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("GET %s: unexpected status %d", path, resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}

func (d productDTO) validate() (model.Product, error) {
	if d.ID <= 0 {
		return model.Product{}, fmt.Errorf("invalid id %d", d.ID)
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		return model.Product{}, fmt.Errorf("title required")
	}
	if d.Price == nil || d.Price.IsNegative() {
		return model.Product{}, fmt.Errorf("price must be >= 0")
	}
	if d.Quantity == nil || *d.Quantity < model.UnlimitedStock {
		return model.Product{}, fmt.Errorf("quantity must be >= %d", model.UnlimitedStock)
	}
	p := model.Product{
		ID:         d.ID,
		Title:      title,
		CategoryID: d.CategoryID,
		Quantity:   *d.Quantity,
		Price:      *d.Price,
		Active:     d.IsActive == nil || *d.IsActive,
	}
	if d.Description != nil {
		p.Description = *d.Description
	}
	return p, nil
}

func (d categoryDTO) validate() (model.Category, error) {
	if d.ID <= 0 {
		return model.Category{}, fmt.Errorf("invalid id %d", d.ID)
	}
	name := strings.TrimSpace(d.Name)
	if name == "" {
		return model.Category{}, fmt.Errorf("name required")
	}
	return model.Category{ID: d.ID, Name: name, Active: d.IsActive == nil || *d.IsActive}, nil
}
