// Package metrics exposes Prometheus metrics for searches, syncs and HTTP traffic.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vocab"

// Search outcomes.
const (
	OutcomeOK       = "ok"
	OutcomeEmpty    = "empty"
	OutcomeError    = "error"
	OutcomeNotReady = "not_ready"
)

// Recorder records server metrics into its own registry. A nil *Recorder is
// valid and records nothing.
type Recorder struct {
	registry *prometheus.Registry

	searchRequests   *prometheus.CounterVec
	searchDuration   prometheus.Histogram
	searchRawHits    prometheus.Histogram
	searchResults    prometheus.Histogram
	syncDuration     *prometheus.HistogramVec
	indexedDocuments *prometheus.GaugeVec
	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
}

// NewRecorder creates a Recorder with all metrics registered.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		searchRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_requests_total",
				Help:      "Total number of search requests",
			},
			[]string{"outcome"},
		),
		searchDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Search duration in seconds, including aggregation",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		searchRawHits: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_raw_hits",
			Help:      "Number of per-field hits per search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		searchResults: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_aggregated_results",
			Help:      "Number of aggregated results per search",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 10),
		}),
		syncDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "sync_duration_seconds",
				Help:      "Source index rebuild duration in seconds",
				Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
			[]string{"source"},
		),
		indexedDocuments: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "indexed_documents",
				Help:      "Number of indexed assets per source and kind",
			},
			[]string{"source", "kind"},
		),
		httpRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		httpDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
	}

	r.registry.MustRegister(
		r.searchRequests,
		r.searchDuration,
		r.searchRawHits,
		r.searchResults,
		r.syncDuration,
		r.indexedDocuments,
		r.httpRequests,
		r.httpDuration,
	)
	return r
}

// Registry returns the registry holding the metrics.
func (r *Recorder) Registry() *prometheus.Registry {
	if r == nil {
		return nil
	}
	return r.registry
}

// Handler serves the metrics in the Prometheus exposition format.
func (r *Recorder) Handler() http.Handler {
	if r == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}

// ObserveSearch records one search request.
func (r *Recorder) ObserveSearch(outcome string, d time.Duration, rawHits, results int) {
	if r == nil {
		return
	}
	r.searchRequests.WithLabelValues(outcome).Inc()
	if outcome != OutcomeOK && outcome != OutcomeEmpty {
		return
	}
	r.searchDuration.Observe(d.Seconds())
	r.searchRawHits.Observe(float64(rawHits))
	r.searchResults.Observe(float64(results))
}

// ObserveSync records a source rebuild and its resulting document counts.
func (r *Recorder) ObserveSync(source string, d time.Duration, vocabularies, terms int) {
	if r == nil {
		return
	}
	r.syncDuration.WithLabelValues(source).Observe(d.Seconds())
	r.indexedDocuments.WithLabelValues(source, "vocabulary").Set(float64(vocabularies))
	r.indexedDocuments.WithLabelValues(source, "term").Set(float64(terms))
}

// ForgetSource drops the gauges of a source that is no longer configured.
func (r *Recorder) ForgetSource(source string) {
	if r == nil {
		return
	}
	r.indexedDocuments.DeleteLabelValues(source, "vocabulary")
	r.indexedDocuments.DeleteLabelValues(source, "term")
	r.syncDuration.DeleteLabelValues(source)
}
