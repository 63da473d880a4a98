// Package metrics exposes Prometheus instrumentation for the overlay VFS.
// Header detection outcomes, degraded-mode transitions, and lazy header writes
// are deliberately observable: losing header metadata never fails an I/O call,
// so counters are the only way operators see it happen.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry holds all metrics for the overlay VFS
type Registry struct {
	// Open / detection metrics
	OpensTotal            *prometheus.CounterVec
	HeaderDetectionsTotal *prometheus.CounterVec

	// Header lifecycle metrics
	HeaderLazyWritesTotal *prometheus.CounterVec
	HeaderDegradedTotal   *prometheus.CounterVec

	registry *prometheus.Registry
}
