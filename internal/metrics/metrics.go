// Package metrics exposes Prometheus instrumentation with a no-op fallback.
package metrics

import (
	"time"

	"cyclecoach/internal/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder is implemented by the Prometheus provider and the no-op
type Recorder interface {
	IncRequestsTotal(endpoint string, status int)
	ObserveRequestDuration(endpoint string, duration time.Duration)
	IncStreamFetch(source, outcome string)
	IncCacheHits()
	IncCacheMisses()
	ObserveSyncPhase(phase string, duration time.Duration)
	IncEventsPublished(outcome string)
	SetFitness(ctl, atl, tsb float64)
	SetFTP(ftp float64, source string)
}

// Provider records to a Prometheus registry
type Provider struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	streamFetches   *prometheus.CounterVec
	cacheHits       prometheus.Counter
	cacheMisses     prometheus.Counter
	syncDuration    *prometheus.HistogramVec
	eventsPublished *prometheus.CounterVec
	fitness         *prometheus.GaugeVec
	ftp             *prometheus.GaugeVec
}

// New returns a Provider registered on reg, or a no-op when metrics are
// disabled. A nil reg uses the default registerer.
func New(cfg config.MetricsConfig, reg prometheus.Registerer) Recorder {
	if !cfg.Enabled {
		return Noop{}
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)
	ns := cfg.Namespace

	return &Provider{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"endpoint", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"endpoint"}),

		streamFetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "power_stream_fetches_total",
			Help:      "Power stream lookups by source and outcome",
		}, []string{"source", "outcome"}),

		cacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stream_cache_hits_total",
			Help:      "Total number of stream cache hits",
		}),

		cacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "stream_cache_misses_total",
			Help:      "Total number of stream cache misses",
		}),

		syncDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "sync_phase_duration_seconds",
			Help:      "Duration of each sync phase in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900},
		}, []string{"phase"}),

		eventsPublished: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: ns,
			Name:      "events_published_total",
			Help:      "Snapshot events by publish outcome",
		}, []string{"outcome"}),

		fitness: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "training_load",
			Help:      "Latest fitness (ctl), fatigue (atl) and form (tsb)",
		}, []string{"metric"}),

		ftp: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: ns,
			Name:      "ftp_watts",
			Help:      "FTP used for the latest snapshot, by source",
		}, []string{"source"}),
	}
}

func (m *Provider) IncRequestsTotal(endpoint string, status int) {
	m.requestsTotal.WithLabelValues(endpoint, httpStatusBucket(status)).Inc()
}

func (m *Provider) ObserveRequestDuration(endpoint string, duration time.Duration) {
	m.requestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

func (m *Provider) IncStreamFetch(source, outcome string) {
	m.streamFetches.WithLabelValues(source, outcome).Inc()
}

func (m *Provider) IncCacheHits() {
	m.cacheHits.Inc()
}

func (m *Provider) IncCacheMisses() {
	m.cacheMisses.Inc()
}

func (m *Provider) ObserveSyncPhase(phase string, duration time.Duration) {
	m.syncDuration.WithLabelValues(phase).Observe(duration.Seconds())
}

func (m *Provider) IncEventsPublished(outcome string) {
	m.eventsPublished.WithLabelValues(outcome).Inc()
}

func (m *Provider) SetFitness(ctl, atl, tsb float64) {
	m.fitness.WithLabelValues("ctl").Set(ctl)
	m.fitness.WithLabelValues("atl").Set(atl)
	m.fitness.WithLabelValues("tsb").Set(tsb)
}

// SetFTP records the FTP under its source label, clearing the other sources
func (m *Provider) SetFTP(ftp float64, source string) {
	m.ftp.Reset()
	m.ftp.WithLabelValues(source).Set(ftp)
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

// Noop discards everything
type Noop struct{}

func (Noop) IncRequestsTotal(_ string, _ int)                 {}
func (Noop) ObserveRequestDuration(_ string, _ time.Duration) {}
func (Noop) IncStreamFetch(_, _ string)                       {}
func (Noop) IncCacheHits()                                    {}
func (Noop) IncCacheMisses()                                  {}
func (Noop) ObserveSyncPhase(_ string, _ time.Duration)       {}
func (Noop) IncEventsPublished(_ string)                      {}
func (Noop) SetFitness(_, _, _ float64)                       {}
func (Noop) SetFTP(_ float64, _ string)                       {}
