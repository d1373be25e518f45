// Package metrics holds the Prometheus collectors shared across debtbook.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "debtbook"

var (
	// ExtractionRequests counts receipt extraction requests by outcome
	// (ok, not_a_receipt, safety_blocked, malformed, upstream_error, bad_request).
	ExtractionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "extraction_requests_total",
		Help:      "Receipt extraction requests by outcome.",
	}, []string{"outcome"})

	// ExtractionDuration observes the time spent waiting for the vision model.
	ExtractionDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "extraction_model_duration_seconds",
		Help:      "Latency of vision model calls.",
		Buckets:   []float64{0.5, 1, 2, 5, 10, 20, 40, 60},
	})

	// DiagnosticsRecords counts diagnostic records by result (written, dropped, failed).
	DiagnosticsRecords = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "diagnostics_records_total",
		Help:      "Diagnostic audit records by delivery result.",
	}, []string{"result"})

	// LedgerUpdates counts per-person ledger updates issued by commits.
	LedgerUpdates = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ledger_updates_total",
		Help:      "Per-person ledger updates by result.",
	}, []string{"result"})
)
