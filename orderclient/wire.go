package orderclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"pos-terminal/model"
)

// Prices go out as bare JSON numbers built from the decimal text so no
// precision is lost on the way.
type itemPayload struct {
	ProductID int64       `json:"product_id"`
	Quantity  int         `json:"quantity"`
	Price     json.Number `json:"price"`
}

func toPayload(it Item) itemPayload {
	return itemPayload{ProductID: it.ProductID, Quantity: it.Quantity, Price: json.Number(it.Price.String())}
}

type createRequest struct {
	UserID int64         `json:"user_id"`
	Items  []itemPayload `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type itemUpdatePayload struct {
	Quantity *int         `json:"quantity,omitempty"`
	Price    *json.Number `json:"price,omitempty"`
}

type ordersResponse struct {
	Orders []orderDTO `json:"orders"`
	Total  int        `json:"total"`
}

// decodeOrders accepts {"orders": [...]} and a bare array.
func decodeOrders(raw []byte) (ordersResponse, error) {
	var resp ordersResponse
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &resp.Orders); err != nil {
			return ordersResponse{}, fmt.Errorf("decode orders: %w", err)
		}
		resp.Total = len(resp.Orders)
		return resp, nil
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return ordersResponse{}, fmt.Errorf("decode orders: %w", err)
	}
	return resp, nil
}

type orderItemDTO struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	ProductID int64           `json:"product_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

// orderDTO mirrors the service JSON. Timestamps stay strings because the
// service emits them without a zone.
type orderDTO struct {
	ID        int64           `json:"id"`
	UserID    int64           `json:"user_id"`
	Status    string          `json:"status"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt string          `json:"created_at"`
	UpdatedAt *string         `json:"updated_at"`
	Items     []orderItemDTO  `json:"items"`
}

func (d orderDTO) toModel() (*model.Order, error) {
	status, err := model.ParseOrderStatus(d.Status)
	if err != nil {
		return nil, err
	}
	o := &model.Order{
		ID:     d.ID,
		UserID: d.UserID,
		Status: status,
		Total:  d.Total,
		Items:  make([]model.OrderItem, 0, len(d.Items)),
	}
	if d.CreatedAt != "" {
		ts, err := parseTimestamp(d.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
		o.CreatedAt = ts
	}
	if d.UpdatedAt != nil && *d.UpdatedAt != "" {
		ts, err := parseTimestamp(*d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("updated_at: %w", err)
		}
		o.UpdatedAt = &ts
	}
	for _, it := range d.Items {
		o.Items = append(o.Items, model.OrderItem{
			ID:        it.ID,
			OrderID:   it.OrderID,
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Price:     it.Price,
			Subtotal:  it.Subtotal,
		})
	}
	return o, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp treats zone-less timestamps as UTC.
func parseTimestamp(s string) (time.Time, error) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", s)
}

// errorMessage pulls the human readable text out of an error body. It
// understands {"detail": "..."}, validation lists {"detail": [{"msg": ...}]},
// {"message": "..."} and {"error": "..."}.
func errorMessage(body []byte) string {
	var payload struct {
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if len(payload.Detail) > 0 {
		var s string
		if err := json.Unmarshal(payload.Detail, &s); err == nil && s != "" {
			return s
		}
		var list []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &list); err == nil {
			msgs := make([]string, 0, len(list))
			for _, e := range list {
				if e.Msg != "" {
					msgs = append(msgs, e.Msg)
				}
			}
			if len(msgs) > 0 {
				return strings.Join(msgs, "; ")
			}
		}
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}
