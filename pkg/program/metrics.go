package program

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// DefaultNamespace is the metrics namespace used when none is given.
const DefaultNamespace = "domsync"

// Metrics holds the Prometheus collectors of render programs. One Metrics
// is shared by every Program of a process.
type Metrics struct {
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram
	patches       *prometheus.CounterVec
	requests      prometheus.Counter
	coalesced     prometheus.Counter
	events        *prometheus.CounterVec
	remounts      prometheus.Counter
}

// NewMetrics registers the collectors with registry.
func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	factory := promauto.With(registry)

	return &Metrics{
		cycles: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_cycles_total",
			Help:      "Total number of render cycles by outcome",
		}, []string{"status"}),

		cycleDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_cycle_duration_seconds",
			Help:      "Render cycle duration in seconds, render through host flush",
			Buckets:   []float64{.0005, .001, .002, .004, .008, .016, .032, .064, .128, .256},
		}),

		patches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "patches_applied_total",
			Help:      "Total number of patches applied to live documents by operation",
		}, []string{"op"}),

		requests: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_requests_total",
			Help:      "Total number of render requests",
		}),

		coalesced: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "render_requests_coalesced_total",
			Help:      "Total number of render requests served by an already scheduled cycle",
		}),

		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_dispatched_total",
			Help:      "Total number of native events dispatched by type",
		}, []string{"type"}),

		remounts: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "remounts_total",
			Help:      "Total number of full remounts after a failed cycle",
		}),
	}
}
