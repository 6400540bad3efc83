// Package metrics exposes Prometheus collectors for import runs and the
// dashboard API. A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "budgify"

// Metrics holds the collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	filesTotal        *prometheus.CounterVec
	rowErrorsTotal    *prometheus.CounterVec
	transactionsTotal *prometheus.CounterVec
	sinkWritesTotal   *prometheus.CounterVec
	sinkWriteDuration *prometheus.HistogramVec
	runDuration       prometheus.Histogram
	ledgerSize        prometheus.Gauge
	httpRequests      *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
}

// New registers the collectors with reg. Pass prometheus.NewRegistry() in
// tests so repeated construction does not collide.
func New(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		gatherer: reg,
		filesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_files_total",
				Help:      "Statement files processed by loader and status",
			},
			[]string{"loader", "status"},
		),
		rowErrorsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_row_errors_total",
				Help:      "Statement rows skipped because they failed to parse",
			},
			[]string{"loader"},
		),
		transactionsTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "import_transactions_total",
				Help:      "Candidate transactions by merge outcome (added, duplicate)",
			},
			[]string{"outcome"},
		),
		sinkWritesTotal: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "sink_writes_total",
				Help:      "Sink appends by sink and status",
			},
			[]string{"sink", "status"},
		),
		sinkWriteDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sink_write_duration_seconds",
				Help:      "Sink append duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"sink"},
		),
		runDuration: f.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "import_run_duration_seconds",
				Help:      "Import run duration",
				Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
			},
		),
		ledgerSize: f.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ledger_transactions",
				Help:      "Transactions in the current ledger snapshot",
			},
		),
		httpRequests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Dashboard API requests by route, method and status code",
			},
			[]string{"route", "method", "code"},
		),
		httpDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Dashboard API request duration",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route"},
		),
	}
}

// File records one processed statement file.
func (m *Metrics) File(loader string, err error, rowErrors int) {
	if m == nil {
		return
	}
	if loader == "" {
		loader = "none"
	}
	m.filesTotal.WithLabelValues(loader, status(err)).Inc()
	if rowErrors > 0 {
		m.rowErrorsTotal.WithLabelValues(loader).Add(float64(rowErrors))
	}
}

// Merge records merge outcomes.
func (m *Metrics) Merge(added, duplicates int) {
	if m == nil {
		return
	}
	m.transactionsTotal.WithLabelValues("added").Add(float64(added))
	m.transactionsTotal.WithLabelValues("duplicate").Add(float64(duplicates))
}

// SinkWrite records one sink append.
func (m *Metrics) SinkWrite(sink string, err error, d time.Duration) {
	if m == nil {
		return
	}
	m.sinkWritesTotal.WithLabelValues(sink, status(err)).Inc()
	m.sinkWriteDuration.WithLabelValues(sink).Observe(d.Seconds())
}

// Run records a finished import run and the resulting ledger size.
func (m *Metrics) Run(d time.Duration, ledgerSize int) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
	m.ledgerSize.Set(float64(ledgerSize))
}

// LedgerSize sets the ledger gauge.
func (m *Metrics) LedgerSize(n int) {
	if m == nil {
		return
	}
	m.ledgerSize.Set(float64(n))
}

// Request records one API request.
func (m *Metrics) Request(route, method string, code int, d time.Duration) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(route, method, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(d.Seconds())
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
