package providers

import (
	"songbook/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncStoreHits()
	IncStoreMisses()
	IncStoreErrors(op string)
	ObservePersistenceDuration(duration time.Duration)
	IncGateOutcome(outcome string)
	IncLockouts()
	IncPlaybackPersists(kind string)
}

// MountCounter reports how many players are currently mounted.
type MountCounter interface {
	MountedCount() int
}

type MetricsProvider struct {
	requestsTotal       *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
	storeHits           prometheus.Counter
	storeMisses         prometheus.Counter
	storeErrors         *prometheus.CounterVec
	persistenceDuration prometheus.Histogram
	gateOutcomes        *prometheus.CounterVec
	lockouts            prometheus.Counter
	playbackPersists    *prometheus.CounterVec
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncStoreHits() {
	m.storeHits.Inc()
}

func (m *MetricsProvider) IncStoreMisses() {
	m.storeMisses.Inc()
}

func (m *MetricsProvider) IncStoreErrors(op string) {
	m.storeErrors.WithLabelValues(op).Inc()
}

func (m *MetricsProvider) ObservePersistenceDuration(duration time.Duration) {
	m.persistenceDuration.Observe(duration.Seconds())
}

func (m *MetricsProvider) IncGateOutcome(outcome string) {
	m.gateOutcomes.WithLabelValues(outcome).Inc()
}

func (m *MetricsProvider) IncLockouts() {
	m.lockouts.Inc()
}

// IncPlaybackPersists counts playback state writes; kind is "forced" or "throttled".
func (m *MetricsProvider) IncPlaybackPersists(kind string) {
	m.playbackPersists.WithLabelValues(kind).Inc()
}

func httpStatusBucket(code int) string {
	switch {
	case code < 200:
		return "1xx"
	case code < 300:
		return "2xx"
	case code < 400:
		return "3xx"
	case code < 500:
		return "4xx"
	default:
		return "5xx"
	}
}

func NewMetricsProvider(conf *structures.Config, mounts MountCounter) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	m := &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "songbook_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "songbook_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		storeHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "songbook_store_hits_total",
			Help: "Key-value store reads that found a value",
		}),

		storeMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "songbook_store_misses_total",
			Help: "Key-value store reads that found nothing",
		}),

		storeErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "songbook_store_errors_total",
			Help: "Key-value store operations that failed",
		}, []string{"op"}),

		persistenceDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "songbook_persistence_duration_seconds",
			Help:    "Duration of store snapshot writes in seconds",
			Buckets: prometheus.DefBuckets,
		}),

		gateOutcomes: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "songbook_gate_submissions_total",
			Help: "Access gate submissions by outcome",
		}, []string{"outcome"}),

		lockouts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "songbook_gate_lockouts_total",
			Help: "Access gate lockouts started",
		}),

		playbackPersists: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "songbook_playback_persists_total",
			Help: "Playback state writes by kind",
		}, []string{"kind"}),
	}

	promauto.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "songbook_players_mounted",
		Help: "Players currently mounted",
	}, func() float64 {
		return float64(mounts.MountedCount())
	})

	return m
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

// NewNoopMetrics is for one-shot commands that never expose /metrics.
func NewNoopMetrics() MetricsProviderInterface {
	return &noopMetrics{}
}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncStoreHits()                                    {}
func (n *noopMetrics) IncStoreMisses()                                  {}
func (n *noopMetrics) IncStoreErrors(_ string)                          {}
func (n *noopMetrics) ObservePersistenceDuration(_ time.Duration)       {}
func (n *noopMetrics) IncGateOutcome(_ string)                          {}
func (n *noopMetrics) IncLockouts()                                     {}
func (n *noopMetrics) IncPlaybackPersists(_ string)                     {}
