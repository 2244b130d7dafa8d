package remote

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the connection-level collectors shared by every session of
// a Server.
type Metrics struct {
	sessions      prometheus.Gauge
	sessionsTotal prometheus.Counter
	frames        *prometheus.CounterVec
	bytes         *prometheus.CounterVec
	dropped       *prometheus.CounterVec
}

// NewMetrics registers the remote collectors on registry.
func NewMetrics(registry prometheus.Registerer, namespace string) *Metrics {
	factory := promauto.With(registry)
	return &Metrics{
		sessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "sessions_active",
			Help:      "Connected sessions.",
		}),
		sessionsTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "sessions_total",
			Help:      "Sessions opened.",
		}),
		frames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "frames_total",
			Help:      "Frames exchanged, by direction and frame type.",
		}, []string{"direction", "type"}),
		bytes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "bytes_total",
			Help:      "Frame bytes exchanged, by direction.",
		}, []string{"direction"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "remote",
			Name:      "events_dropped_total",
			Help:      "Client events that could not be delivered, by reason.",
		}, []string{"reason"}),
	}
}

func (m *Metrics) frame(direction string, ft string, size int) {
	if m == nil {
		return
	}
	m.frames.WithLabelValues(direction, ft).Inc()
	m.bytes.WithLabelValues(direction).Add(float64(size))
}

func (m *Metrics) drop(reason string) {
	if m == nil {
		return
	}
	m.dropped.WithLabelValues(reason).Inc()
}

func (m *Metrics) opened() {
	if m == nil {
		return
	}
	m.sessions.Inc()
	m.sessionsTotal.Inc()
}

func (m *Metrics) closed() {
	if m == nil {
		return
	}
	m.sessions.Dec()
}
