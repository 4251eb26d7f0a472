// Package repository implements the record store for harvested orders and
// customers.
package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/procsift/procsift/internal/models"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrCustomerNotFound = errors.New("customer not found")
)

// Store persists Customer and Order records keyed by their natural external
// identifiers. Duplicate suppression is the caller's job (read-then-write);
// implementations tolerate duplicate rows with last-match-wins lookups.
type Store interface {
	// UpsertCustomer inserts a customer unless customer_id already exists.
	// Returns true when an insert occurred.
	UpsertCustomer(ctx context.Context, customerID, url string, payload json.RawMessage) (bool, error)

	// GetCustomer looks a customer up by its natural key.
	// Returns ErrCustomerNotFound when absent.
	GetCustomer(ctx context.Context, customerID string) (*models.Customer, error)

	// InsertOrder appends an order row with sent=false.
	InsertOrder(ctx context.Context, order *models.Order) error

	// GetOrder looks an order up by its natural key, last match wins.
	// Returns ErrOrderNotFound when absent.
	GetOrder(ctx context.Context, orderID string) (*models.Order, error)

	// OrderIDs returns the set of all known order IDs. The ingestion
	// orchestrator snapshots this once per page for duplicate suppression.
	OrderIDs(ctx context.Context) (map[string]struct{}, error)

	// ListUnsentOrders returns all orders with sent=false in insertion order.
	ListUnsentOrders(ctx context.Context) ([]*models.Order, error)

	// MarkSent sets sent=true and clears both payload columns in the same
	// mutation. A missing order_id is a no-op, not an error.
	MarkSent(ctx context.Context, orderID string) error

	Close()
}
