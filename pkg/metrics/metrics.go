// Package metrics provides Prometheus metrics for plan sync runs.
package metrics

import (
	"fmt"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

var (
	// RunsTotal tracks plan sync runs by group and outcome
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "run",
			Name:      "runs_total",
			Help:      "Total number of plan sync runs by status",
		},
		[]string{"group", "status"},
	)

	// RunDuration tracks run duration in seconds
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "run",
			Name:      "duration_seconds",
			Help:      "Duration of plan sync runs in seconds",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600, 1200},
		},
		[]string{"group"},
	)

	// ZipLookupsTotal tracks ZIP resolutions by outcome
	ZipLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "provider",
			Name:      "zip_lookups_total",
			Help:      "Total number of ZIP lookups by status",
		},
		[]string{"status"},
	)

	// PlanOffersFetched tracks the number of offers fetched per utility
	PlanOffersFetched = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "provider",
			Name:      "plan_offers_total",
			Help:      "Total number of plan offers fetched",
		},
		[]string{"duns"},
	)

	// HTTPRequestsTotal tracks outbound HTTP requests
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "http_client",
			Name:      "requests_total",
			Help:      "Total number of outbound HTTP requests",
		},
		[]string{"method", "status_code"},
	)

	// HTTPRequestDuration tracks outbound HTTP request duration
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "clover",
			Subsystem: "http_client",
			Name:      "request_duration_seconds",
			Help:      "Duration of outbound HTTP requests in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"method"},
	)

	// RowsUpserted tracks rows written per table
	RowsUpserted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "loader",
			Name:      "rows_upserted_total",
			Help:      "Total number of rows upserted by table",
		},
		[]string{"table"},
	)

	// RecordsSkipped tracks payload records that could not form a key
	RecordsSkipped = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "clover",
			Subsystem: "loader",
			Name:      "records_skipped_total",
			Help:      "Total number of payload records skipped for missing key fields",
		},
	)
)

// RecordRun records a finished run.
func RecordRun(group string, success bool, duration time.Duration) {
	status := "success"
	if !success {
		status = "failed"
	}
	RunsTotal.WithLabelValues(group, status).Inc()
	RunDuration.WithLabelValues(group).Observe(duration.Seconds())
}

// RecordZipLookup records a ZIP lookup outcome.
func RecordZipLookup(resolved bool) {
	status := "resolved"
	if !resolved {
		status = "failed"
	}
	ZipLookupsTotal.WithLabelValues(status).Inc()
}

// RecordHTTPRequest records an outbound HTTP request. A statusCode of 0
// means the request never got a response.
func RecordHTTPRequest(method string, statusCode int, duration time.Duration) {
	code := "error"
	if statusCode > 0 {
		code = strconv.Itoa(statusCode)
	}
	HTTPRequestsTotal.WithLabelValues(method, code).Inc()
	HTTPRequestDuration.WithLabelValues(method).Observe(duration.Seconds())
}

// RecordRows adds n upserted rows for a table.
func RecordRows(table string, n int) {
	if n > 0 {
		RowsUpserted.WithLabelValues(table).Add(float64(n))
	}
}

// Push sends every registered metric to a Prometheus Pushgateway. Batch jobs
// exit before a scrape could happen, so this is the only export path.
func Push(url, job, group string) error {
	err := push.New(url, job).
		Gatherer(prometheus.DefaultGatherer).
		Grouping("group", group).
		Push()
	if err != nil {
		return fmt.Errorf("failed to push metrics to %s: %w", url, err)
	}
	return nil
}
