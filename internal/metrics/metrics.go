// Package metrics declares the prometheus instrumentation exposed by
// cmd/literoomd's /metrics endpoint, grounded on the same
// promauto.NewCounterVec/NewHistogramVec/NewGauge idiom used throughout the
// retrieved pack's observability packages.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RenderDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "literoom",
		Name:      "render_duration_seconds",
		Help:      "Duration of a single pipeline render by backend and quality",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"backend", "quality"})

	RenderTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "literoom",
		Name:      "render_total",
		Help:      "Total renders completed, by backend and outcome",
	}, []string{"backend", "outcome"})

	BackendFallbackTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "literoom",
		Name:      "backend_fallback_total",
		Help:      "Total times a render fell back to CPU after a GPU failure or a low-memory check, by reason",
	}, []string{"reason"})

	StagingPoolExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "literoom",
		Name:      "staging_pool_exhausted_total",
		Help:      "Total renders that skipped histogram readback due to an empty staging buffer pool",
	})

	CacheHitTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "literoom",
		Name:      "cache_hit_total",
		Help:      "Thumbnail/preview cache lookups, by tier and outcome",
	}, []string{"tier", "outcome"})

	QueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "literoom",
		Name:      "render_queue_depth",
		Help:      "Number of pending thumbnail/preview requests",
	})

	ScanFilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "literoom",
		Name:      "catalog_scan_files_total",
		Help:      "Files processed during a catalog scan, by outcome",
	}, []string{"outcome"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "literoom",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections to the control plane",
	})

	WorkerQueueDepth = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "literoom",
		Name:      "worker_queue_depth",
		Help:      "Number of render requests pending in the worker's single-consumer inbox",
	})
)
