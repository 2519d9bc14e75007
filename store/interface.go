package store

import "context"

// Store is the read-only view of the Order Service database the terminal
// may use instead of the HTTP catalog. It never writes.
type Store interface {
	ListProducts(ctx context.Context) ([]ProductRow, error)
	ListCategories(ctx context.Context) ([]CategoryRow, error)

	Close() error
}
