package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

func (r *Registry) initVFSMetrics() {
	r.OpensTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbvfs_opens_total",
			Help: "Total number of overlay file opens by resulting mode",
		},
		[]string{"mode"},
	)

	r.HeaderDetectionsTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbvfs_header_detections_total",
			Help: "Header detection outcomes at open time",
		},
		[]string{"outcome"},
	)

	r.HeaderLazyWritesTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbvfs_header_lazy_writes_total",
			Help: "Lazy header materializations by status",
		},
		[]string{"status"},
	)

	r.HeaderDegradedTotal = promauto.With(r.registry).NewCounterVec(
		prometheus.CounterOpts{
			Name: "dbvfs_header_degraded_total",
			Help: "Non-fatal header failures that fell back to passthrough",
		},
		[]string{"reason"},
	)
}
