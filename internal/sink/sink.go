// Package sink delivers canonical orders to the downstream reporting API.
package sink

import (
	"context"

	"github.com/procsift/procsift/internal/models"
)

// Sink receives canonical orders. The dispatcher always sends single-element
// batches so one failure never poisons neighbours.
type Sink interface {
	Send(ctx context.Context, name string, batch []models.CanonicalOrder) error
	Close()
}

// Discard is the dry-run sink: every send succeeds without leaving the
// process.
type Discard struct{}

func (Discard) Send(ctx context.Context, name string, batch []models.CanonicalOrder) error {
	return nil
}

func (Discard) Close() {}
