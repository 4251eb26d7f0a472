// Package normalizer turns persisted orders into the canonical outbound
// schema. Strategies are registered per order type; normalization is pure
// (no I/O) and a failure affects only the record being normalized.
package normalizer

import (
	"errors"
	"fmt"

	"github.com/procsift/procsift/internal/models"
)

// ErrUnsupported marks an order type with no registered strategy.
var ErrUnsupported = errors.New("order type not supported")

// Input carries everything a strategy may need: the stored order, its stored
// customer (may be nil), and the matched allow-list entry (may be nil).
type Input struct {
	Order      *models.Order
	Customer   *models.Customer
	Recognized *models.RecognizedCustomer
}

// Normalizer converts one order into its canonical form.
type Normalizer interface {
	Supports(orderType string) bool
	Normalize(in Input) (*models.CanonicalOrder, error)
}

// Registry holds ordered normalizers and picks the first match by order type.
type Registry struct {
	items []Normalizer
}

func NewRegistry(items ...Normalizer) *Registry {
	return &Registry{items: items}
}

// Normalize dispatches to the matching strategy. A panic inside a strategy
// is converted into an error so one malformed payload cannot abort a batch.
func (r *Registry) Normalize(in Input) (result *models.CanonicalOrder, err error) {
	if r == nil || in.Order == nil {
		return nil, fmt.Errorf("nothing to normalize")
	}

	var n Normalizer
	for _, item := range r.items {
		if item.Supports(in.Order.OrderType) {
			n = item
			break
		}
	}
	if n == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupported, in.Order.OrderType)
	}

	defer func() {
		if rec := recover(); rec != nil {
			result = nil
			err = fmt.Errorf("normalize %s: panic: %v", in.Order.OrderID, rec)
		}
	}()
	return n.Normalize(in)
}
