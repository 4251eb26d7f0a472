package models

import (
	"encoding/json"
	"time"
)

// Customer is a procurement customer as persisted in the record store.
// Customers are created once per distinct CustomerID and never updated.
type Customer struct {
	CustomerID string          `json:"customer_id"`
	URL        string          `json:"url"`
	Payload    json.RawMessage `json:"payload"`
	CreatedAt  time.Time       `json:"created_at"`
}

// Order is a harvested procurement listing as persisted in the record store.
// OrderID is the natural deduplication key. Once Sent is set, RawPayload and
// DetailPayload are cleared by the same mutation (retention policy).
type Order struct {
	OrderID       string          `json:"order_id"`
	OrderType     string          `json:"order_type"`
	URL           string          `json:"url"`
	RawPayload    json.RawMessage `json:"raw_payload"`
	DetailPayload json.RawMessage `json:"detail_payload"`
	CustomerID    string          `json:"customer_id"`
	Sent          bool            `json:"sent"`
	CreatedAt     time.Time       `json:"created_at"`
}

// RecognizedCustomer is an allow-list entry for dispatch. Orders whose
// customer does not match any entry are skipped and counted as errors.
type RecognizedCustomer struct {
	Code        string `mapstructure:"code" json:"code,omitempty"`
	Value       string `mapstructure:"value" json:"value"`
	FactAddress string `mapstructure:"fact_address" json:"factAddress,omitempty"`
	INN         string `mapstructure:"inn" json:"inn"`
	KPP         string `mapstructure:"kpp" json:"kpp"`
}
