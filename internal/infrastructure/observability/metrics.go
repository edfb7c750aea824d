package observability

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Global metrics instance for singleton pattern
	globalCollector *Collector
	collectorMutex  sync.Mutex
)

// Collector holds all Prometheus metrics for the guide pipeline
type Collector struct {
	// Registry for this collector instance
	registry *prometheus.Registry

	// Generation metrics
	Generations        *prometheus.CounterVec
	GenerationDuration *prometheus.HistogramVec
	StreamFragments    prometheus.Counter

	// Cache metrics
	CacheHits   prometheus.Counter
	CacheMisses prometheus.Counter

	// Prefetch metrics
	PrefetchRuns     prometheus.Counter
	PrefetchMeetings *prometheus.CounterVec

	// Store metrics
	StoreOperations *prometheus.CounterVec
}

// NewCollector creates a new metrics collector with the given namespace
func NewCollector(namespace string) *Collector {
	// Use singleton pattern to avoid duplicate registration in tests
	collectorMutex.Lock()
	defer collectorMutex.Unlock()

	if globalCollector != nil {
		return globalCollector
	}

	registry := prometheus.NewRegistry()

	generations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guide_generations_total",
			Help:      "Total number of guide generation attempts",
		},
		[]string{"path", "status"},
	)

	generationDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "guide_generation_duration_seconds",
			Help:      "Guide generation duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"path"},
	)

	streamFragments := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stream_fragments_total",
			Help:      "Total number of streaming text fragments received",
		},
	)

	cacheHits := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guide_cache_hits_total",
			Help:      "Total number of guide cache hits",
		},
	)

	cacheMisses := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "guide_cache_misses_total",
			Help:      "Total number of guide cache misses",
		},
	)

	prefetchRuns := prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_runs_total",
			Help:      "Total number of prefetch scheduler runs",
		},
	)

	prefetchMeetings := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "prefetch_meetings_total",
			Help:      "Total number of meetings processed by prefetch",
		},
		[]string{"status"},
	)

	storeOperations := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "store_operations_total",
			Help:      "Total number of record store operations",
		},
		[]string{"operation", "status"},
	)

	registry.MustRegister(
		generations,
		generationDuration,
		streamFragments,
		cacheHits,
		cacheMisses,
		prefetchRuns,
		prefetchMeetings,
		storeOperations,
	)

	globalCollector = &Collector{
		registry:           registry,
		Generations:        generations,
		GenerationDuration: generationDuration,
		StreamFragments:    streamFragments,
		CacheHits:          cacheHits,
		CacheMisses:        cacheMisses,
		PrefetchRuns:       prefetchRuns,
		PrefetchMeetings:   prefetchMeetings,
		StoreOperations:    storeOperations,
	}
	return globalCollector
}

// Registry exposes the underlying registry for scraping or test assertions.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// ObserveGeneration records one generation attempt outcome with duration.
func (c *Collector) ObserveGeneration(path, status string, duration time.Duration) {
	c.Generations.WithLabelValues(path, status).Inc()
	c.GenerationDuration.WithLabelValues(path).Observe(duration.Seconds())
}
