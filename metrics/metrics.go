package metrics

import (
	"fmt"
	"io"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/common/expfmt"
)

const namespace = "grafcli"

var (
	// RequestsTotal tracks transport attempts per channel, method and outcome
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grafcli_backend_requests_total",
			Help: "Total number of backend request attempts",
		},
		[]string{"channel", "method", "outcome"},
	)

	// RetriesTotal tracks requests re-issued after a session refresh
	RetriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grafcli_backend_retries_total",
			Help: "Total number of requests retried after a session refresh",
		},
		[]string{"channel"},
	)

	// SessionRefreshesTotal tracks login ping probes by result
	SessionRefreshesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grafcli_session_refreshes_total",
			Help: "Total number of session refresh probes",
		},
		[]string{"result"},
	)

	// ClassifiedErrorsTotal tracks terminal failures by severity
	ClassifiedErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "grafcli_classified_errors_total",
			Help: "Total number of terminal request failures by severity",
		},
		[]string{"severity"},
	)

	// RequestLatency tracks transport attempt latency
	RequestLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "grafcli_backend_request_latency_seconds",
			Help:    "Backend request attempt latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"channel", "method"},
	)
)

// Dump writes this application's metric families from g in the Prometheus
// text format.
func Dump(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), namespace+"_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("failed to encode metric %s: %w", mf.GetName(), err)
		}
	}

	return nil
}
