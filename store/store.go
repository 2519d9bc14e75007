package store

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	"github.com/shopspring/decimal"
)

// ProductRow and CategoryRow are simple structs representing DB rows
type ProductRow struct {
	ID          int64
	Title       string
	Description sql.NullString
	CategoryID  sql.NullInt64
	Quantity    int
	Price       decimal.Decimal
	IsActive    bool
}

type CategoryRow struct {
	ID       int64
	Name     string
	IsActive bool
}

// PostgresStore reads the catalog tables directly.
type PostgresStore struct {
	DB *sql.DB
}

func NewPostgresStore(dsn string) (*PostgresStore, error) {
	DB, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := DB.Ping(); err != nil {
		_ = DB.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}
	return &PostgresStore{DB: DB}, nil
}

func (s *PostgresStore) Close() error { return s.DB.Close() }

func (s *PostgresStore) ListProducts(ctx context.Context) ([]ProductRow, error) {
	rows, err := s.DB.QueryContext(ctx,
		`SELECT id, title, description, category_id, quantity, price, is_active FROM products ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []ProductRow{}
	for rows.Next() {
		var p ProductRow
		if err := rows.Scan(&p.ID, &p.Title, &p.Description, &p.CategoryID, &p.Quantity, &p.Price, &p.IsActive); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT id, name, is_active FROM categories ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []CategoryRow{}
	for rows.Next() {
		var c CategoryRow
		if err := rows.Scan(&c.ID, &c.Name, &c.IsActive); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
