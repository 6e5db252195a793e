package metrics

import "github.com/prometheus/client_golang/prometheus"

// SyncMetrics exposes counters/histograms for the data-sync layer.
type SyncMetrics struct {
	snapshotsTotal      *prometheus.CounterVec
	mutationsTotal      *prometheus.CounterVec
	activeSubscriptions prometheus.Gauge
	snapshotLatency     *prometheus.HistogramVec
}

func NewSyncMetrics(reg prometheus.Registerer) *SyncMetrics {
	m := &SyncMetrics{
		snapshotsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oncontrol",
			Subsystem: "sync",
			Name:      "snapshots_total",
			Help:      "Total collection snapshots applied to mirrors",
		}, []string{"collection"}),
		mutationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "oncontrol",
			Subsystem: "sync",
			Name:      "mutations_total",
			Help:      "Total mutation gateway operations",
		}, []string{"collection", "op", "status"}),
		activeSubscriptions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "oncontrol",
			Subsystem: "sync",
			Name:      "active_subscriptions",
			Help:      "Currently active live subscriptions",
		}),
		snapshotLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "oncontrol",
			Subsystem: "sync",
			Name:      "snapshot_apply_seconds",
			Help:      "Time spent decoding and applying a collection snapshot",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collection"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.snapshotsTotal, m.mutationsTotal, m.activeSubscriptions, m.snapshotLatency)
	return m
}

func (m *SyncMetrics) ObserveSnapshot(collection string, seconds float64) {
	if m == nil {
		return
	}
	m.snapshotsTotal.WithLabelValues(collection).Inc()
	m.snapshotLatency.WithLabelValues(collection).Observe(seconds)
}

func (m *SyncMetrics) ObserveMutation(collection, op, status string) {
	if m == nil {
		return
	}
	m.mutationsTotal.WithLabelValues(collection, op, status).Inc()
}

func (m *SyncMetrics) SubscriptionStarted() {
	if m == nil {
		return
	}
	m.activeSubscriptions.Inc()
}

func (m *SyncMetrics) SubscriptionStopped() {
	if m == nil {
		return
	}
	m.activeSubscriptions.Dec()
}
