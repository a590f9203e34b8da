// Package metrics declares the Prometheus collectors of the service. They
// register with the default registry at init and are scraped at /metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "sicof"

var HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "requests_total",
	Help:      "HTTP requests by route pattern, method and status code.",
}, []string{"route", "method", "code"})

var HTTPDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Namespace: namespace,
	Subsystem: "http",
	Name:      "request_duration_seconds",
	Help:      "HTTP request latency by route pattern.",
	Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
}, []string{"route", "method"})

var Mutations = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "mutations_total",
	Help:      "Persisted writes by entity and operation.",
}, []string{"entity", "operation"})

var FundingRejections = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "ledger",
	Name:      "funding_rejections_total",
	Help:      "Expense writes rejected before persisting, by reason.",
}, []string{"reason"})

var ObligationsGenerated = promauto.NewCounter(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "accountability",
	Name:      "obligations_generated_total",
	Help:      "Accountability obligations created, first ones and successors.",
})

var EventsPublished = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "events",
	Name:      "published_total",
	Help:      "Domain events handed to the publisher, by type and result.",
}, []string{"type", "result"})

var ReportSyncs = promauto.NewCounterVec(prometheus.CounterOpts{
	Namespace: namespace,
	Subsystem: "worker",
	Name:      "report_syncs_total",
	Help:      "Report tab rewrites by report and result.",
}, []string{"report", "result"})

var StoreUp = promauto.NewGauge(prometheus.GaugeOpts{
	Namespace: namespace,
	Subsystem: "store",
	Name:      "up",
	Help:      "Whether the last connectivity check of the document store succeeded (1) or not (0).",
})

// ObserveHTTP records one finished request.
func ObserveHTTP(route, method string, code int, seconds float64) {
	HTTPRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	HTTPDuration.WithLabelValues(route, method).Observe(seconds)
}

// Result renders an error as a metric label.
func Result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// SetStoreUp mirrors a connectivity check.
func SetStoreUp(up bool) {
	if up {
		StoreUp.Set(1)
		return
	}
	StoreUp.Set(0)
}
