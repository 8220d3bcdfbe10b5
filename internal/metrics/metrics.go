// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the prometheus collectors for ranking runs, the
// embedding cache, feed fetches and embedding calls. A nil *Metrics is
// valid and records nothing, so library code can take one optionally.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metric names.
const (
	MetricRunsTotal          = "paperscout_ranking_runs_total"
	MetricRunDuration        = "paperscout_ranking_run_duration_seconds"
	MetricCandidatesFetched  = "paperscout_candidates_fetched_total"
	MetricCandidatesDropped  = "paperscout_candidates_dropped_total"
	MetricFeedRequestsTotal  = "paperscout_feed_requests_total"
	MetricCacheLookupsTotal  = "paperscout_embedding_cache_lookups_total"
	MetricEmbeddingsComputed = "paperscout_embeddings_computed_total"
	MetricEmbeddingDuration  = "paperscout_embedding_duration_seconds"
	MetricCorpusSize         = "paperscout_corpus_size"
)

// Status label values.
const (
	StatusSuccess = "success"
	StatusFailure = "failure"
)

// Cache lookup result label values.
const (
	CacheHit      = "hit"
	CacheStoreHit = "store_hit"
	CacheMiss     = "miss"
)

// Metrics holds the collectors. All methods are safe for concurrent use.
type Metrics struct {
	runsTotal         *prometheus.CounterVec
	runDuration       prometheus.Histogram
	candidatesFetched prometheus.Counter
	candidatesDropped prometheus.Counter
	feedRequests      *prometheus.CounterVec
	cacheLookups      *prometheus.CounterVec
	embeddings        *prometheus.CounterVec
	embedDuration     *prometheus.HistogramVec
	corpusSize        prometheus.Gauge
}

// New creates the collectors. They are not registered; call Register.
func New() *Metrics {
	return &Metrics{
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricRunsTotal,
				Help: "Total number of ranking runs by status",
			},
			[]string{"status"},
		),
		runDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    MetricRunDuration,
				Help:    "Histogram of ranking run duration in seconds",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60, 120},
			},
		),
		candidatesFetched: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCandidatesFetched,
				Help: "Total number of candidates returned by the feed",
			},
		),
		candidatesDropped: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: MetricCandidatesDropped,
				Help: "Total number of candidates dropped because their embedding failed",
			},
		),
		feedRequests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricFeedRequestsTotal,
				Help: "Total number of feed fetches by feed and status",
			},
			[]string{"feed", "status"},
		),
		cacheLookups: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricCacheLookupsTotal,
				Help: "Total number of embedding cache lookups by result",
			},
			[]string{"result"},
		),
		embeddings: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: MetricEmbeddingsComputed,
				Help: "Total number of provider embedding calls by model and status",
			},
			[]string{"model", "status"},
		),
		embedDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    MetricEmbeddingDuration,
				Help:    "Histogram of provider embedding call duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"model"},
		),
		corpusSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: MetricCorpusSize,
				Help: "Number of entries in the current ranked corpus",
			},
		),
	}
}

// Register registers all collectors with reg.
func (m *Metrics) Register(reg prometheus.Registerer) error {
	for _, c := range m.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}

// Collectors returns all collectors.
func (m *Metrics) Collectors() []prometheus.Collector {
	return []prometheus.Collector{
		m.runsTotal,
		m.runDuration,
		m.candidatesFetched,
		m.candidatesDropped,
		m.feedRequests,
		m.cacheLookups,
		m.embeddings,
		m.embedDuration,
		m.corpusSize,
	}
}

// ObserveRun records one finished ranking run.
func (m *Metrics) ObserveRun(err error, seconds float64) {
	if m == nil {
		return
	}
	m.runsTotal.WithLabelValues(status(err)).Inc()
	m.runDuration.Observe(seconds)
}

// AddCandidates records fetched and dropped candidate counts of a run.
func (m *Metrics) AddCandidates(fetched, dropped int) {
	if m == nil {
		return
	}
	m.candidatesFetched.Add(float64(fetched))
	m.candidatesDropped.Add(float64(dropped))
}

// IncFeedRequest counts one feed fetch.
func (m *Metrics) IncFeedRequest(feed string, err error) {
	if m == nil {
		return
	}
	m.feedRequests.WithLabelValues(feed, status(err)).Inc()
}

// IncCacheLookup counts one cache lookup by result.
func (m *Metrics) IncCacheLookup(result string) {
	if m == nil {
		return
	}
	m.cacheLookups.WithLabelValues(result).Inc()
}

// ObserveEmbedding records one provider call.
func (m *Metrics) ObserveEmbedding(model string, err error, seconds float64) {
	if m == nil {
		return
	}
	m.embeddings.WithLabelValues(model, status(err)).Inc()
	m.embedDuration.WithLabelValues(model).Observe(seconds)
}

// SetCorpusSize records the size of the latest corpus.
func (m *Metrics) SetCorpusSize(n int) {
	if m == nil {
		return
	}
	m.corpusSize.Set(float64(n))
}

func status(err error) string {
	if err != nil {
		return StatusFailure
	}
	return StatusSuccess
}
