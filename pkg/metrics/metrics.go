package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/gilchrisn/triangle-stream-service/pkg/triest"
)

const namespace = "triest"

// Metrics holds the Prometheus collectors of the streaming service
type Metrics struct {
	edgesTotal     *prometheus.CounterVec
	batchesTotal   prometheus.Counter
	batchEdges     prometheus.Histogram
	sessions       prometheus.Gauge
	globalEstimate *prometheus.GaugeVec
	reservoirSize  *prometheus.GaugeVec
	streamClock    *prometheus.GaugeVec
}

// New creates the collectors and registers them with reg
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		edgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "edges_total",
			Help:      "Edges offered to estimators by strategy and sampling decision",
		}, []string{"strategy", "decision"}),
		batchesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batches_total",
			Help:      "Edge batches ingested",
		}),
		batchEdges: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "batch_edges",
			Help:      "Edges per ingested batch",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		sessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions",
			Help:      "Open streaming sessions",
		}),
		globalEstimate: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "global_estimate",
			Help:      "Current global triangle estimate per session",
		}, []string{"session", "strategy"}),
		reservoirSize: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "reservoir_edges",
			Help:      "Edges currently held in the session reservoir",
		}, []string{"session", "strategy"}),
		streamClock: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "stream_clock",
			Help:      "Distinct edges counted by the session estimator",
		}, []string{"session", "strategy"}),
	}

	reg.MustRegister(
		m.edgesTotal,
		m.batchesTotal,
		m.batchEdges,
		m.sessions,
		m.globalEstimate,
		m.reservoirSize,
		m.streamClock,
	)
	return m
}

// ObserveBatch records the decisions taken for one batch
func (m *Metrics) ObserveBatch(strategy triest.Strategy, delta triest.Stats, edges int) {
	s := string(strategy)
	m.edgesTotal.WithLabelValues(s, triest.IgnoredSelfLoop.String()).Add(float64(delta.SelfLoops))
	m.edgesTotal.WithLabelValues(s, triest.IgnoredDuplicate.String()).Add(float64(delta.Duplicates))
	m.edgesTotal.WithLabelValues(s, triest.Admitted.String()).Add(float64(delta.Admitted - delta.Evictions))
	m.edgesTotal.WithLabelValues(s, triest.AdmittedWithEviction.String()).Add(float64(delta.Evictions))
	m.edgesTotal.WithLabelValues(s, triest.Rejected.String()).Add(float64(delta.Rejected))
	m.batchesTotal.Inc()
	m.batchEdges.Observe(float64(edges))
}

// SetSessionState publishes the estimator state of a session
func (m *Metrics) SetSessionState(session string, strategy triest.Strategy, estimate float64, reservoir int, clock int64) {
	m.globalEstimate.WithLabelValues(session, string(strategy)).Set(estimate)
	m.reservoirSize.WithLabelValues(session, string(strategy)).Set(float64(reservoir))
	m.streamClock.WithLabelValues(session, string(strategy)).Set(float64(clock))
}

// SessionOpened increments the open session gauge
func (m *Metrics) SessionOpened() {
	m.sessions.Inc()
}

// SessionClosed decrements the open session gauge and drops its series
func (m *Metrics) SessionClosed(session string, strategy triest.Strategy) {
	m.sessions.Dec()
	m.globalEstimate.DeleteLabelValues(session, string(strategy))
	m.reservoirSize.DeleteLabelValues(session, string(strategy))
	m.streamClock.DeleteLabelValues(session, string(strategy))
}
