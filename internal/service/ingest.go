// Package service holds the two run orchestrators: ingestion and dispatch.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/procsift/procsift/internal/logging"
	"github.com/procsift/procsift/internal/metrics"
	"github.com/procsift/procsift/internal/models"
	"github.com/procsift/procsift/internal/repository"
	"github.com/procsift/procsift/internal/source"
	"github.com/procsift/procsift/internal/validator"
)

// IngestStats summarizes one ingestion run.
type IngestStats struct {
	Pages    int
	Seen     int
	Added    int
	Rejected int
	Errors   int
}

type IngestConfig struct {
	// EmptyPageThreshold terminates pagination after this many consecutive
	// pages that contributed zero new orders. <= 0 disables early exit.
	EmptyPageThreshold int
	// MaxPages caps pagination when the source reports no total.
	MaxPages int
}

// Ingestor walks the source's listing pages, validates records, resolves
// customers and details, and persists new orders.
type Ingestor struct {
	store     repository.Store
	validator *validator.Validator
	cfg       IngestConfig
	log       *logging.Logger
}

func NewIngestor(store repository.Store, v *validator.Validator, cfg IngestConfig, log *logging.Logger) *Ingestor {
	if cfg.MaxPages <= 0 {
		cfg.MaxPages = 50
	}
	return &Ingestor{store: store, validator: v, cfg: cfg, log: log}
}

func (ing *Ingestor) Run(ctx context.Context, src source.Source) (*IngestStats, error) {
	stats := &IngestStats{}
	name := src.Name()

	first, err := src.FetchPage(ctx, 1)
	if err != nil {
		return stats, fmt.Errorf("failed to fetch first page: %w", err)
	}

	totalPages := first.TotalPages
	if totalPages <= 0 || totalPages > ing.cfg.MaxPages {
		totalPages = ing.cfg.MaxPages
	}
	ing.log.Info("ingestion started", "source", name, "total_pages", totalPages)

	emptyStreak := 0
	page := first
	for n := 1; n <= totalPages; n++ {
		if n > 1 {
			if err := ctx.Err(); err != nil {
				return stats, err
			}
			page, err = src.FetchPage(ctx, n)
			if err != nil {
				// A failed page skips just that page.
				stats.Errors++
				metrics.FetchErrors.WithLabelValues(name).Inc()
				ing.log.Warn("page fetch failed", "source", name, "page", n, "error", err)
				continue
			}
		}
		stats.Pages++

		added, err := ing.ingestPage(ctx, src, page, stats)
		if err != nil {
			return stats, err
		}

		if added == 0 {
			emptyStreak++
			if ing.cfg.EmptyPageThreshold > 0 && emptyStreak >= ing.cfg.EmptyPageThreshold {
				ing.log.Info("no new orders on consecutive pages, stopping",
					"source", name, "page", n, "streak", emptyStreak)
				break
			}
		} else {
			emptyStreak = 0
		}
	}

	ing.log.Info("ingestion finished",
		"source", name,
		"pages", stats.Pages,
		"seen", stats.Seen,
		"added", stats.Added,
		"rejected", stats.Rejected,
		"errors", stats.Errors,
	)
	return stats, nil
}

// ingestPage validates and persists one page's records. Returns the number
// of orders added.
func (ing *Ingestor) ingestPage(ctx context.Context, src source.Source, page *source.Page, stats *IngestStats) (int, error) {
	name := src.Name()

	known, err := ing.store.OrderIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to snapshot known orders: %w", err)
	}
	seen := func(orderID string) bool {
		_, ok := known[orderID]
		return ok
	}

	added := 0
	for _, rec := range page.Records {
		stats.Seen++
		metrics.RecordsSeen.WithLabelValues(name).Inc()

		if err := ing.validator.Validate(rec, seen); err != nil {
			stats.Rejected++
			metrics.RecordsRejected.WithLabelValues(name).Inc()
			ing.log.Debug("record rejected", "source", name, "order_id", rec.OrderID, "reason", err)
			continue
		}

		if err := ing.resolveCustomer(ctx, src, rec); err != nil {
			stats.Errors++
			metrics.FetchErrors.WithLabelValues(name).Inc()
			ing.log.Warn("customer resolution failed",
				"source", name, "order_id", rec.OrderID, "customer_id", rec.CustomerID, "error", err)
			continue
		}

		detail, err := src.FetchDetail(ctx, rec)
		if err != nil {
			stats.Errors++
			metrics.FetchErrors.WithLabelValues(name).Inc()
			ing.log.Warn("detail fetch failed", "source", name, "order_id", rec.OrderID, "error", err)
			continue
		}

		order := &models.Order{
			OrderID:       rec.OrderID,
			OrderType:     rec.OrderType,
			URL:           rec.URL,
			RawPayload:    rec.Payload,
			DetailPayload: detail,
			CustomerID:    rec.CustomerID,
		}
		if err := ing.store.InsertOrder(ctx, order); err != nil {
			// The insert is treated as not having happened; the record is
			// picked up again on a later run.
			stats.Errors++
			ing.log.Error("failed to persist order",
				"source", name, "order_id", rec.OrderID, "error", err)
			continue
		}
		known[rec.OrderID] = struct{}{}
		added++
		stats.Added++
		metrics.RecordsAdded.WithLabelValues(name).Inc()
		ing.log.Info("order added", "source", name, "order_id", rec.OrderID)
	}
	return added, nil
}

// resolveCustomer fetches and stores the record's customer if absent.
func (ing *Ingestor) resolveCustomer(ctx context.Context, src source.Source, rec source.Record) error {
	_, err := ing.store.GetCustomer(ctx, rec.CustomerID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrCustomerNotFound) {
		return err
	}

	url, payload, err := src.FetchCustomer(ctx, rec.CustomerID)
	if err != nil {
		return err
	}
	_, err = ing.store.UpsertCustomer(ctx, rec.CustomerID, url, payload)
	return err
}
