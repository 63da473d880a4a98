package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRegistry creates a registry with all overlay metrics registered against a
// dedicated Prometheus registry, so multiple instances can coexist in tests.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}
	r.initVFSMetrics()
	return r
}

// Handler returns an HTTP handler serving this registry's metrics.
func (r *Registry) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// RecordOpen records an overlay file open with its resulting mode.
func (r *Registry) RecordOpen(mode string) {
	r.OpensTotal.WithLabelValues(mode).Inc()
}

// RecordHeaderDetection records a header detection outcome.
func (r *Registry) RecordHeaderDetection(outcome string) {
	r.HeaderDetectionsTotal.WithLabelValues(outcome).Inc()
}

// RecordLazyHeaderWrite records a lazy header materialization attempt.
func (r *Registry) RecordLazyHeaderWrite(status string) {
	r.HeaderLazyWritesTotal.WithLabelValues(status).Inc()
}

// RecordHeaderDegraded records a fallback to passthrough mode.
func (r *Registry) RecordHeaderDegraded(reason string) {
	r.HeaderDegradedTotal.WithLabelValues(reason).Inc()
}
