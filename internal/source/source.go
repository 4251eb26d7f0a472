// Package source defines the contract between the ingestion pipeline and
// concrete listing sources. Sources own pagination URLs and field extraction;
// the pipeline only sees extracted Records plus opaque payloads.
package source

import (
	"context"
	"encoding/json"
)

// Record is one listing-level entry with the identity and validation fields
// already extracted by the source. Payload keeps the original shape.
type Record struct {
	OrderID    string
	OrderType  string
	URL        string
	Number     string // tender/reference number
	StatusCode string // source status discriminator
	EndDate    string // raw end-date text, source-formatted
	CustomerID string // resolvable customer reference, empty if none
	Payload    json.RawMessage
}

// Page is one fetched listing page.
type Page struct {
	Records []Record
	// TotalPages as reported by the source; <= 0 when unknown.
	TotalPages int
}

// Source fetches listing pages and resolves per-record details.
type Source interface {
	Name() string

	// FetchPage returns the 1-based page n.
	FetchPage(ctx context.Context, n int) (*Page, error)

	// FetchDetail returns the richer per-record payload. May return nil when
	// the source has no separate detail endpoint.
	FetchDetail(ctx context.Context, rec Record) (json.RawMessage, error)

	// FetchCustomer resolves a customer reference into a navigable URL and a
	// source-shaped payload.
	FetchCustomer(ctx context.Context, customerID string) (string, json.RawMessage, error)
}
