// Package orderclient talks to the external Order Service over its JSON REST API.
package orderclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"pos-terminal/model"
)

// ErrNotFound matches (via errors.Is) an APIError carrying a 404.
var ErrNotFound = errors.New("not found")

// PayloadShape selects how Create encodes the user id and the items.
type PayloadShape string

const (
	// ShapeBody sends {"user_id": N, "items": [...]}.
	ShapeBody PayloadShape = "body"
	// ShapeQuery sends the bare items array and ?user_id=N.
	ShapeQuery PayloadShape = "query"
)

func ParseShape(s string) (PayloadShape, error) {
	switch PayloadShape(strings.ToLower(s)) {
	case ShapeBody:
		return ShapeBody, nil
	case ShapeQuery:
		return ShapeQuery, nil
	}
	return "", fmt.Errorf("unknown order payload shape %q", s)
}

// APIError is a non-2xx answer from the Order Service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("order service returned %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Item is one order line as the Order Service accepts it.
type Item struct {
	ProductID int64
	Quantity  int
	Price     decimal.Decimal
}

// ItemUpdate changes an existing order line. Nil fields are left alone.
type ItemUpdate struct {
	Quantity *int
	Price    *decimal.Decimal
}

type Config struct {
	BaseURL string
	Shape   PayloadShape
	Token   string
	Timeout time.Duration
}

type Client struct {
	baseURL string
	shape   PayloadShape
	token   string
	http    *http.Client
	log     *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

func New(cfg Config, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		shape:   cfg.Shape,
		token:   cfg.Token,
		http:    &http.Client{Timeout: cfg.Timeout},
		log:     zap.NewNop(),
	}
	if c.shape == "" {
		c.shape = ShapeBody
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Create submits a new order for userID.
func (c *Client) Create(ctx context.Context, userID int64, items []Item) (*model.Order, error) {
	wire := make([]itemPayload, 0, len(items))
	for _, it := range items {
		wire = append(wire, toPayload(it))
	}

	var (
		query url.Values
		body  any
	)
	switch c.shape {
	case ShapeQuery:
		query = url.Values{"user_id": {strconv.FormatInt(userID, 10)}}
		body = wire
	default:
		body = createRequest{UserID: userID, Items: wire}
	}

	var dto orderDTO
	raw, err := c.do(ctx, http.MethodPost, "", query, body)
	if err != nil {
		return nil, err
	}
	// The cart only needs the 2xx; an unreadable body still counts as created.
	if len(bytes.TrimSpace(raw)) == 0 {
		return &model.Order{UserID: userID}, nil
	}
	if err := json.Unmarshal(raw, &dto); err != nil {
		c.log.Warn("created order body not decodable", zap.Int64("user_id", userID), zap.Error(err))
		return &model.Order{UserID: userID}, nil
	}
	o, err := dto.toModel()
	if err != nil {
		c.log.Warn("created order body malformed", zap.Int64("user_id", userID), zap.Int64("order_id", dto.ID), zap.Error(err))
		return &model.Order{ID: dto.ID, UserID: userID}, nil
	}
	return o, nil
}

func (c *Client) List(ctx context.Context) ([]model.Order, error) {
	return c.list(ctx, "")
}

func (c *Client) ListByStatus(ctx context.Context, status model.OrderStatus) ([]model.Order, error) {
	return c.list(ctx, "/status/"+url.PathEscape(string(status)))
}

// ListByUser lists the orders placed by userID.
func (c *Client) ListByUser(ctx context.Context, userID int64) ([]model.Order, error) {
	return c.list(ctx, "/user/"+strconv.FormatInt(userID, 10))
}

func (c *Client) list(ctx context.Context, path string) ([]model.Order, error) {
	raw, err := c.do(ctx, http.MethodGet, path, nil, nil)
	if err != nil {
		return nil, err
	}
	resp, err := decodeOrders(raw)
	if err != nil {
		return nil, err
	}
	out := make([]model.Order, 0, len(resp.Orders))
	for _, dto := range resp.Orders {
		o, err := dto.toModel()
		if err != nil {
			c.log.Warn("skipping malformed order", zap.Int64("order_id", dto.ID), zap.Error(err))
			continue
		}
		out = append(out, *o)
	}
	return out, nil
}

func (c *Client) Get(ctx context.Context, orderID int64) (*model.Order, error) {
	return c.orderCall(ctx, http.MethodGet, orderPath(orderID), nil)
}

func (c *Client) UpdateStatus(ctx context.Context, orderID int64, status model.OrderStatus) (*model.Order, error) {
	return c.orderCall(ctx, http.MethodPatch, orderPath(orderID)+"/status", statusRequest{Status: string(status)})
}

func (c *Client) AddItem(ctx context.Context, orderID int64, item Item) (*model.Order, error) {
	return c.orderCall(ctx, http.MethodPost, orderPath(orderID)+"/items", toPayload(item))
}

func (c *Client) UpdateItem(ctx context.Context, orderID, itemID int64, upd ItemUpdate) (*model.Order, error) {
	req := itemUpdatePayload{Quantity: upd.Quantity}
	if upd.Price != nil {
		n := json.Number(upd.Price.String())
		req.Price = &n
	}
	return c.orderCall(ctx, http.MethodPut, itemPath(orderID, itemID), req)
}

func (c *Client) RemoveItem(ctx context.Context, orderID, itemID int64) (*model.Order, error) {
	return c.orderCall(ctx, http.MethodDelete, itemPath(orderID, itemID), nil)
}

func (c *Client) Delete(ctx context.Context, orderID int64) error {
	_, err := c.do(ctx, http.MethodDelete, orderPath(orderID), nil, nil)
	return err
}

func (c *Client) orderCall(ctx context.Context, method, path string, body any) (*model.Order, error) {
	raw, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return nil, err
	}
	var dto orderDTO
	if err := json.Unmarshal(raw, &dto); err != nil {
		return nil, fmt.Errorf("decode order: %w", err)
	}
	return dto.toModel()
}

// do sends one request and returns the raw body of a 2xx response.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) ([]byte, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	reqID := uuid.NewString()
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("order service unreachable",
			zap.String("request_id", reqID), zap.String("method", method), zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, target, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
		c.log.Info("order service rejected request",
			zap.String("request_id", reqID), zap.String("method", method), zap.String("path", path),
			zap.Int("status", resp.StatusCode), zap.String("detail", apiErr.Message))
		return nil, apiErr
	}
	c.log.Debug("order service call", zap.String("request_id", reqID), zap.String("method", method),
		zap.String("path", path), zap.Int("status", resp.StatusCode))
	return raw, nil
}

func orderPath(orderID int64) string {
	return "/" + strconv.FormatInt(orderID, 10)
}

func itemPath(orderID, itemID int64) string {
	return orderPath(orderID) + "/items/" + strconv.FormatInt(itemID, 10)
}
