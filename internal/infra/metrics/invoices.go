package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

func init() {
	register(
		invoiceAggregationsTotal,
		invoiceAggregationDuration,
		invoiceAccountFetchTotal,
		invoiceOrphanedChargesTotal,
		invoiceDocumentsTotal,
	)
}

var (
	invoiceAggregationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_aggregations_total",
			Help: "Invoice aggregations by outcome.",
		},
		[]string{"result"}, // 'ok', 'partial', 'empty'
	)

	invoiceAggregationDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "invoice_aggregation_duration_seconds",
			Help:    "Wall time of one aggregation across all linked accounts.",
			Buckets: prometheus.DefBuckets,
		},
	)

	invoiceAccountFetchTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_account_fetch_total",
			Help: "Per-account fetches inside an aggregation, by outcome.",
		},
		[]string{"result"}, // 'ok', 'no_customer', 'skipped', 'credential_error', 'gateway_error'
	)

	invoiceOrphanedChargesTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "invoice_orphaned_charges_total",
			Help: "Subscription-linked charges dropped because the subscription was not listed.",
		},
	)

	invoiceDocumentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "invoice_documents_rendered_total",
			Help: "Invoice documents rendered by kind and outcome.",
		},
		[]string{"kind", "result"},
	)
)

func ObserveAggregation(result string, elapsed time.Duration) {
	invoiceAggregationsTotal.WithLabelValues(norm(result)).Inc()
	invoiceAggregationDuration.Observe(elapsed.Seconds())
}

func IncAccountFetch(result string) {
	invoiceAccountFetchTotal.WithLabelValues(norm(result)).Inc()
}

func IncOrphanedCharges(n int) {
	invoiceOrphanedChargesTotal.Add(float64(n))
}

func IncDocument(kind, result string) {
	invoiceDocumentsTotal.WithLabelValues(norm(kind), norm(result)).Inc()
}
