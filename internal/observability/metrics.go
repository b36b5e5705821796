package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesRead = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finishline",
		Name:      "frames_read_total",
		Help:      "Total number of source frames pulled, including skipped ones",
	})

	FramesProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "finishline",
		Name:      "frames_processed_total",
		Help:      "Total number of frames detected, rendered and written",
	})

	DetectionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "finishline",
		Name:      "detections_total",
		Help:      "Total number of detections returned by the tracker",
	}, []string{"tracked"})

	InferenceDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "finishline",
		Name:      "inference_duration_seconds",
		Help:      "Duration of per-frame pipeline stages",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12),
	}, []string{"stage"})

	ActiveTracks = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "finishline",
		Name:      "active_tracks",
		Help:      "Number of tracks currently held by the tracker",
	})

	WinnerFrame = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "finishline",
		Name:      "winner_frame",
		Help:      "Frame index at which the winner was declared, 0 while undecided",
	})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "finishline",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	WSConnections = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "finishline",
		Name:      "ws_connections",
		Help:      "Number of active WebSocket connections",
	})
)
