package repository

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/procsift/procsift/internal/models"
)

// InMemoryStore keeps records in insertion order. Used for tests and dry runs.
type InMemoryStore struct {
	mu        sync.RWMutex
	orders    []*models.Order
	customers []*models.Customer
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Close() {}

func (s *InMemoryStore) UpsertCustomer(ctx context.Context, customerID, url string, payload json.RawMessage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.customers {
		if c.CustomerID == customerID {
			return false, nil
		}
	}
	s.customers = append(s.customers, &models.Customer{
		CustomerID: customerID,
		URL:        url,
		Payload:    append(json.RawMessage(nil), payload...),
		CreatedAt:  time.Now(),
	})
	return true, nil
}

func (s *InMemoryStore) GetCustomer(ctx context.Context, customerID string) (*models.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Last match wins, mirroring the SQL implementation.
	for i := len(s.customers) - 1; i >= 0; i-- {
		if s.customers[i].CustomerID == customerID {
			c := *s.customers[i]
			return &c, nil
		}
	}
	return nil, ErrCustomerNotFound
}

func (s *InMemoryStore) InsertOrder(ctx context.Context, order *models.Order) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	o := *order
	o.RawPayload = append(json.RawMessage(nil), order.RawPayload...)
	o.DetailPayload = append(json.RawMessage(nil), order.DetailPayload...)
	if o.CreatedAt.IsZero() {
		o.CreatedAt = time.Now()
	}
	s.orders = append(s.orders, &o)
	return nil
}

func (s *InMemoryStore) GetOrder(ctx context.Context, orderID string) (*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for i := len(s.orders) - 1; i >= 0; i-- {
		if s.orders[i].OrderID == orderID {
			o := *s.orders[i]
			return &o, nil
		}
	}
	return nil, ErrOrderNotFound
}

func (s *InMemoryStore) OrderIDs(ctx context.Context) (map[string]struct{}, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make(map[string]struct{}, len(s.orders))
	for _, o := range s.orders {
		ids[o.OrderID] = struct{}{}
	}
	return ids, nil
}

func (s *InMemoryStore) ListUnsentOrders(ctx context.Context) ([]*models.Order, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var unsent []*models.Order
	for _, o := range s.orders {
		if !o.Sent {
			c := *o
			unsent = append(unsent, &c)
		}
	}
	return unsent, nil
}

func (s *InMemoryStore) MarkSent(ctx context.Context, orderID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, o := range s.orders {
		if o.OrderID == orderID {
			o.Sent = true
			o.RawPayload = json.RawMessage(`{}`)
			o.DetailPayload = json.RawMessage(`{}`)
		}
	}
	return nil
}
