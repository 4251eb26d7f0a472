package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/procsift/procsift/internal/audit"
	"github.com/procsift/procsift/internal/logging"
	"github.com/procsift/procsift/internal/metrics"
	"github.com/procsift/procsift/internal/models"
	"github.com/procsift/procsift/internal/normalizer"
	"github.com/procsift/procsift/internal/repository"
	"github.com/procsift/procsift/internal/sink"
)

// DispatchStats summarizes one dispatch run.
type DispatchStats struct {
	Sent   int
	Errors int
}

type DispatchConfig struct {
	// SourceName labels outgoing batches towards the reporting API.
	SourceName string
	// UpdateAfterSend false leaves successfully sent orders unsent in the
	// store, so the next run dispatches them again.
	UpdateAfterSend bool
}

// Dispatcher drains unsent orders: normalize, send one at a time, mark sent.
// Per-order failures are counted and skipped; the run keeps going.
type Dispatcher struct {
	store      repository.Store
	registry   *normalizer.Registry
	recognized []models.RecognizedCustomer
	out        sink.Sink
	audit      *audit.Writer
	cfg        DispatchConfig
	log        *logging.Logger
}

func NewDispatcher(
	store repository.Store,
	registry *normalizer.Registry,
	recognized []models.RecognizedCustomer,
	out sink.Sink,
	auditWriter *audit.Writer,
	cfg DispatchConfig,
	log *logging.Logger,
) *Dispatcher {
	return &Dispatcher{
		store:      store,
		registry:   registry,
		recognized: recognized,
		out:        out,
		audit:      auditWriter,
		cfg:        cfg,
		log:        log,
	}
}

func (d *Dispatcher) Run(ctx context.Context) (*DispatchStats, error) {
	stats := &DispatchStats{}
	name := d.cfg.SourceName

	orders, err := d.store.ListUnsentOrders(ctx)
	if err != nil {
		return stats, fmt.Errorf("failed to list unsent orders: %w", err)
	}
	d.log.Info("dispatch started", "source", name, "unsent", len(orders))

	sentThisRun := []models.CanonicalOrder{}
	for _, order := range orders {
		if err := ctx.Err(); err != nil {
			break
		}

		canonical, err := d.dispatchOne(ctx, order)
		if err != nil {
			stats.Errors++
			metrics.DispatchErrors.WithLabelValues(name).Inc()
			d.log.Warn("dispatch failed", "source", name, "order_id", order.OrderID, "error", err)
			continue
		}
		stats.Sent++
		metrics.OrdersSent.WithLabelValues(name).Inc()
		sentThisRun = append(sentThisRun, *canonical)
		d.log.Info("order sent", "source", name, "order_id", order.OrderID)
	}

	// The audit artifact is written even when nothing was sent, so the file
	// always reflects the latest run.
	if d.audit != nil {
		if err := d.audit.Write(sentThisRun); err != nil {
			d.log.Error("failed to write audit artifact", "error", err)
		}
	}

	d.log.Info("dispatch finished", "source", name, "sent", stats.Sent, "errors", stats.Errors)
	return stats, nil
}

// dispatchOne normalizes and sends a single order.
func (d *Dispatcher) dispatchOne(ctx context.Context, order *models.Order) (*models.CanonicalOrder, error) {
	customer, err := d.store.GetCustomer(ctx, order.CustomerID)
	if err != nil {
		if errors.Is(err, repository.ErrCustomerNotFound) {
			return nil, fmt.Errorf("customer %s not in store", order.CustomerID)
		}
		return nil, fmt.Errorf("failed to load customer %s: %w", order.CustomerID, err)
	}

	// An order whose customer fell off the allow-list stays unsent; it is a
	// guard against reporting for customers no longer in scope.
	recognized := d.matchRecognized(order.CustomerID, customer)
	if len(d.recognized) > 0 && recognized == nil {
		return nil, fmt.Errorf("customer %s not on the allow-list", order.CustomerID)
	}

	canonical, err := d.registry.Normalize(normalizer.Input{
		Order:      order,
		Customer:   customer,
		Recognized: recognized,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to normalize: %w", err)
	}

	// One order per batch, so a rejected payload never blocks the rest.
	if err := d.out.Send(ctx, d.cfg.SourceName, []models.CanonicalOrder{*canonical}); err != nil {
		return nil, fmt.Errorf("failed to send: %w", err)
	}

	if d.cfg.UpdateAfterSend {
		if err := d.store.MarkSent(ctx, order.OrderID); err != nil {
			// The send already happened; the order will be re-sent next run.
			d.log.Error("sent but failed to mark", "order_id", order.OrderID, "error", err)
		}
	}
	return canonical, nil
}

// matchRecognized matches by code when the entry carries one, otherwise by
// the INN found in the stored customer payload.
func (d *Dispatcher) matchRecognized(customerID string, customer *models.Customer) *models.RecognizedCustomer {
	inn := customerINN(customer)
	for i := range d.recognized {
		rc := &d.recognized[i]
		if rc.Code != "" {
			if rc.Code == customerID {
				return rc
			}
			continue
		}
		if rc.INN != "" && rc.INN == inn {
			return rc
		}
	}
	return nil
}

// customerINN digs the INN out of a stored customer payload; sources nest it
// either top-level or under company.
func customerINN(c *models.Customer) string {
	if c == nil || len(c.Payload) == 0 {
		return ""
	}
	var payload struct {
		INN     string `json:"inn"`
		Company struct {
			INN string `json:"inn"`
		} `json:"company"`
	}
	if err := json.Unmarshal(c.Payload, &payload); err != nil {
		return ""
	}
	if payload.INN != "" {
		return payload.INN
	}
	return payload.Company.INN
}
