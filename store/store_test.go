package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const (
	productsQuery   = `SELECT id, title, description, category_id, quantity, price, is_active FROM products ORDER BY id`
	categoriesQuery = `SELECT id, name, is_active FROM categories ORDER BY id`
)

func TestListProducts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()
	s := &PostgresStore{DB: db}

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category_id", "quantity", "price", "is_active"}).
		AddRow(int64(1), "Espresso", "Strong", int64(10), -1, "3.50", true).
		AddRow(int64(2), "Latte", nil, nil, 4, "4.25", false)
	mock.ExpectQuery(regexp.QuoteMeta(productsQuery)).WillReturnRows(rows)

	got, err := s.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}
	if len(got) != 2 || got[0].Title != "Espresso" || !got[0].CategoryID.Valid || got[1].Description.Valid {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if !got[1].Price.Equal(decimal.RequireFromString("4.25")) {
		t.Fatalf("expected price 4.25, got %s", got[1].Price)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListCategories(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	s := &PostgresStore{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(categoriesQuery)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "is_active"}).AddRow(int64(10), "Coffee", true))

	got, err := s.ListCategories(context.Background())
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(got) != 1 || got[0].Name != "Coffee" || !got[0].IsActive {
		t.Fatalf("unexpected rows: %+v", got)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListProducts_QueryError(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	s := &PostgresStore{DB: db}

	mock.ExpectQuery(regexp.QuoteMeta(productsQuery)).WillReturnError(errors.New("connection reset"))

	if _, err := s.ListProducts(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSourceConvertsRows(t *testing.T) {
	db, mock, _ := sqlmock.New()
	defer db.Close()
	core, logs := observer.New(zapcore.WarnLevel)
	src := Source{Store: &PostgresStore{DB: db}, Log: zap.New(core)}

	rows := sqlmock.NewRows([]string{"id", "title", "description", "category_id", "quantity", "price", "is_active"}).
		AddRow(int64(1), "Espresso", "Strong", int64(10), -1, "3.50", true).
		AddRow(int64(2), "Broken", nil, nil, -7, "1.00", true).
		AddRow(int64(3), "Tea", nil, nil, 2, "2.00", false)
	mock.ExpectQuery(regexp.QuoteMeta(productsQuery)).WillReturnRows(rows)

	got, err := src.Products(context.Background())
	if err != nil {
		t.Fatalf("Products failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 products, got %+v", got)
	}
	if got[0].Description != "Strong" || got[0].CategoryID == nil || *got[0].CategoryID != 10 || !got[0].Unlimited() {
		t.Fatalf("unexpected product: %+v", got[0])
	}
	if got[1].ID != 3 || got[1].Active || got[1].CategoryID != nil {
		t.Fatalf("unexpected product: %+v", got[1])
	}
	dropped := logs.FilterMessage("dropping invalid product").All()
	if len(dropped) != 1 || dropped[0].ContextMap()["product_id"] != int64(2) {
		t.Fatalf("expected one warning for product 2, got %+v", dropped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
