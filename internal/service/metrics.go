package service

import (
	"github.com/prometheus/client_golang/prometheus"
)

// EngineMetrics holds the Prometheus collectors for the vote engine itself.
// All methods are nil-safe so tests can run without a registry.
type EngineMetrics struct {
	VotesTotal         *prometheus.CounterVec
	EventsPublished    *prometheus.CounterVec
	SubscribersActive  prometheus.Gauge
	SubscribersDropped prometheus.Counter
	PersistRetries     prometheus.Counter
	PersistQueueDepth  prometheus.Gauge
	ReconcileDrift     prometheus.Counter
	VoteContention     prometheus.Counter
}

// NewEngineMetrics registers and returns the engine collectors.
// Call once at startup.
func NewEngineMetrics() *EngineMetrics {
	m := &EngineMetrics{
		VotesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ideasvault_votes_total",
				Help: "Total vote operations, by transition kind.",
			},
			[]string{"transition"},
		),
		EventsPublished: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "ideasvault_events_published_total",
				Help: "Total delta events published, by topic kind.",
			},
			[]string{"topic"},
		),
		SubscribersActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ideasvault_subscribers_active",
				Help: "Number of currently connected hub subscribers.",
			},
		),
		SubscribersDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ideasvault_subscribers_dropped_total",
				Help: "Subscribers disconnected because their queue overflowed.",
			},
		),
		PersistRetries: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ideasvault_persist_retries_total",
				Help: "Storage writes that failed and were re-queued.",
			},
		),
		PersistQueueDepth: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "ideasvault_persist_queue_depth",
				Help: "Pending writes waiting in the persistence queue.",
			},
		),
		ReconcileDrift: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ideasvault_reconcile_drift_total",
				Help: "Tally corrections applied by the reconciliation sweep.",
			},
		),
		VoteContention: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "ideasvault_vote_contention_total",
				Help: "Vote operations that timed out waiting on a pair lock.",
			},
		),
	}

	prometheus.MustRegister(
		m.VotesTotal,
		m.EventsPublished,
		m.SubscribersActive,
		m.SubscribersDropped,
		m.PersistRetries,
		m.PersistQueueDepth,
		m.ReconcileDrift,
		m.VoteContention,
	)

	return m
}

func (m *EngineMetrics) ObserveVote(transition string) {
	if m == nil {
		return
	}
	m.VotesTotal.WithLabelValues(transition).Inc()
}

func (m *EngineMetrics) ObservePublish(topicKind string) {
	if m == nil {
		return
	}
	m.EventsPublished.WithLabelValues(topicKind).Inc()
}

func (m *EngineMetrics) SubscriberConnected() {
	if m == nil {
		return
	}
	m.SubscribersActive.Inc()
}

func (m *EngineMetrics) SubscriberGone() {
	if m == nil {
		return
	}
	m.SubscribersActive.Dec()
}

func (m *EngineMetrics) SubscriberOverflow() {
	if m == nil {
		return
	}
	m.SubscribersDropped.Inc()
}

func (m *EngineMetrics) PersistRetry() {
	if m == nil {
		return
	}
	m.PersistRetries.Inc()
}

func (m *EngineMetrics) SetPersistQueueDepth(n int) {
	if m == nil {
		return
	}
	m.PersistQueueDepth.Set(float64(n))
}

func (m *EngineMetrics) DriftCorrected() {
	if m == nil {
		return
	}
	m.ReconcileDrift.Inc()
}

func (m *EngineMetrics) Contention() {
	if m == nil {
		return
	}
	m.VoteContention.Inc()
}
