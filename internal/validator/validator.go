// Package validator decides whether a fetched listing record is eligible for
// persistence. Checks run in order and short-circuit on the first failure;
// every rejection carries its reason.
package validator

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/procsift/procsift/internal/source"
)

var (
	ErrStatusNotAllowed = errors.New("status not accepted")
	ErrNumberMissing    = errors.New("reference number missing")
	ErrNumberSkipped    = errors.New("reference number on skip list")
	ErrEndDateMissing   = errors.New("end date missing or unparseable")
	ErrExpired          = errors.New("end date in the past")
	ErrCustomerMissing  = errors.New("customer reference missing")
	ErrDuplicate        = errors.New("order already in store")
)

type Config struct {
	// AllowedStatuses is the source's current allow-list. Empty means every
	// status passes (sources without a status field).
	AllowedStatuses []string
	// SkipNumbers lists reference numbers never to ingest (test orders).
	SkipNumbers []string
	// DateLayouts are tried in order against the record's end-date text.
	DateLayouts []string
	// Grace extends eligibility past the end date's midnight. The default
	// one-day window keeps a record eligible through its whole end day.
	Grace time.Duration
}

type Validator struct {
	cfg Config
	now func() time.Time
}

func New(cfg Config) *Validator {
	if cfg.Grace <= 0 {
		cfg.Grace = 24 * time.Hour
	}
	if len(cfg.DateLayouts) == 0 {
		cfg.DateLayouts = []string{"2006-01-02", "02.01.2006"}
	}
	return &Validator{cfg: cfg, now: time.Now}
}

// Validate returns nil when the record is eligible for persistence, or the
// reason it is not. seen reports whether an order ID is already in the store
// (the orchestrator passes a per-page snapshot).
func (v *Validator) Validate(rec source.Record, seen func(orderID string) bool) error {
	if len(v.cfg.AllowedStatuses) > 0 && !slices.Contains(v.cfg.AllowedStatuses, rec.StatusCode) {
		return fmt.Errorf("%w: %q", ErrStatusNotAllowed, rec.StatusCode)
	}

	if rec.Number == "" {
		return ErrNumberMissing
	}
	if slices.Contains(v.cfg.SkipNumbers, rec.Number) {
		return fmt.Errorf("%w: %q", ErrNumberSkipped, rec.Number)
	}

	end, err := v.parseEndDate(rec.EndDate)
	if err != nil {
		return err
	}
	if !v.now().Before(end.Add(v.cfg.Grace)) {
		return fmt.Errorf("%w: %s", ErrExpired, end.Format("2006-01-02"))
	}

	if rec.CustomerID == "" {
		return ErrCustomerMissing
	}

	if seen != nil && seen(rec.OrderID) {
		return fmt.Errorf("%w: %q", ErrDuplicate, rec.OrderID)
	}

	return nil
}

// parseEndDate accepts the raw end-date text; trailing time-of-day or
// timezone fragments after the first whitespace are ignored.
func (v *Validator) parseEndDate(text string) (time.Time, error) {
	if text == "" {
		return time.Time{}, ErrEndDateMissing
	}
	datePart := text
	if i := indexSpace(text); i >= 0 {
		datePart = text[:i]
	}
	for _, layout := range v.cfg.DateLayouts {
		if t, err := time.ParseInLocation(layout, datePart, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrEndDateMissing, text)
}

func indexSpace(s string) int {
	for i, r := range s {
		if r == ' ' || r == '\t' {
			return i
		}
	}
	return -1
}
