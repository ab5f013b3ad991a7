package providers

import (
	"tally/internal/structures"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type MetricsProviderInterface interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncCacheHits()
	IncCacheMisses()
	IncIncrements()
	IncHeartbeats()
	SetOnlineIdentities(count int)
	AddEventsPruned(count int)
	SetStreamClients(count int)
}

type MetricsProvider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	increments      prometheus.Counter
	heartbeats      prometheus.Counter
	onlineIdent     prometheus.Gauge
	eventsPruned    prometheus.Counter
	streamClients   prometheus.Gauge
}

func (m *MetricsProvider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *MetricsProvider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *MetricsProvider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *MetricsProvider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *MetricsProvider) IncIncrements() {
	m.increments.Inc()
}

func (m *MetricsProvider) IncHeartbeats() {
	m.heartbeats.Inc()
}

func (m *MetricsProvider) SetOnlineIdentities(count int) {
	m.onlineIdent.Set(float64(count))
}

func (m *MetricsProvider) AddEventsPruned(count int) {
	m.eventsPruned.Add(float64(count))
}

func (m *MetricsProvider) SetStreamClients(count int) {
	m.streamClients.Set(float64(count))
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

func NewMetricsProvider(conf *structures.Config) MetricsProviderInterface {
	if !conf.Metrics.Enabled {
		return &noopMetrics{}
	}

	return &MetricsProvider{
		requestsTotal: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "tally_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "tally_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"endpoint"}),

		cacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tally_cache_hits_total",
			Help: "Total number of cache hits",
		}),

		cacheMisses: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tally_cache_misses_total",
			Help: "Total number of cache misses",
		}),

		increments: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tally_increments_total",
			Help: "Total number of applied counter increments",
		}),

		heartbeats: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tally_heartbeats_total",
			Help: "Total number of presence heartbeats",
		}),

		onlineIdent: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tally_online_identities",
			Help: "Identities seen within the online window at the last presence read",
		}),

		eventsPruned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "tally_events_pruned_total",
			Help: "Activity events archived and removed by retention",
		}),

		streamClients: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "tally_stream_clients",
			Help: "Connected live stream subscribers",
		}),
	}
}

// noopMetrics is a no-op implementation for when metrics are disabled.
type noopMetrics struct{}

func (n *noopMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (n *noopMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (n *noopMetrics) IncCacheHits()                                    {}
func (n *noopMetrics) IncCacheMisses()                                  {}
func (n *noopMetrics) IncIncrements()                                   {}
func (n *noopMetrics) IncHeartbeats()                                   {}
func (n *noopMetrics) SetOnlineIdentities(_ int)                        {}
func (n *noopMetrics) AddEventsPruned(_ int)                            {}
func (n *noopMetrics) SetStreamClients(_ int)                           {}
