package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Ingestion metrics
	RecordsSeen = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_ingest_records_seen_total",
			Help: "Total listing records read from the source",
		},
		[]string{"source"},
	)

	RecordsAdded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_ingest_records_added_total",
			Help: "Total orders newly persisted to the store",
		},
		[]string{"source"},
	)

	RecordsRejected = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_ingest_records_rejected_total",
			Help: "Total records rejected by validation",
		},
		[]string{"source"},
	)

	FetchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_ingest_fetch_errors_total",
			Help: "Total page or detail fetches that failed",
		},
		[]string{"source"},
	)

	// Dispatch metrics
	OrdersSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_dispatch_orders_sent_total",
			Help: "Total orders delivered to the reporting sink",
		},
		[]string{"source"},
	)

	DispatchErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "procsift_dispatch_errors_total",
			Help: "Total orders that failed dispatch this run",
		},
		[]string{"source"},
	)
)
