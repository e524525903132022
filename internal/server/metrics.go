package server

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readout_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)

	// Extraction metrics
	extractRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_extract_requests_total",
			Help: "Total number of extraction requests",
		},
		[]string{"type", "status"}, // type: bundle, image, websocket
	)

	extractDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readout_extract_duration_seconds",
			Help:    "Extraction duration in seconds",
			Buckets: []float64{.0001, .0005, .001, .005, .01, .05, .1, .5, 1, 5},
		},
		[]string{"type"},
	)

	recordKeys = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "readout_record_keys",
			Help:    "Number of keys in extracted records",
			Buckets: []float64{0, 1, 2, 3, 5, 10, 25, 50},
		},
		[]string{"type"},
	)

	unmatchedLabelsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_unmatched_labels_total",
			Help: "Labels with no value above them",
		},
		[]string{"type"},
	)

	degradedValuesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_degraded_values_total",
			Help: "Matched values kept as text because they did not parse",
		},
		[]string{"type"},
	)

	// Rate limiting metrics
	rateLimitHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_rate_limit_hits_total",
			Help: "Total number of rate limit hits",
		},
		[]string{"type"}, // type: minute, hour, requests, data
	)

	// Upload metrics
	uploadSizeBytes = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "readout_upload_size_bytes",
			Help:    "Size of request bodies in bytes",
			Buckets: []float64{256, 1024, 10 * 1024, 100 * 1024, 1024 * 1024, 10 * 1024 * 1024},
		},
	)

	// WebSocket metrics
	websocketConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "readout_websocket_active_connections",
			Help: "Number of active WebSocket connections",
		},
	)

	websocketMessagesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "readout_websocket_messages_total",
			Help: "Total number of WebSocket messages",
		},
		[]string{"direction"}, // direction: sent, received
	)
)
