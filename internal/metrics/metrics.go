// internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTPServerHandlingSeconds is a histogram for HTTP request latencies
	HTTPServerHandlingSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_server_handling_seconds",
			Help:    "Histogram of response latency (seconds) of HTTP requests handled by the server.",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"route", "method", "code"},
	)

	// TickDurationSeconds is a histogram for full detection tick latency
	TickDurationSeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detection_tick_duration_seconds",
			Help:    "Histogram of full pipeline latency (seconds) per completed detection tick.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// InferenceLatencySeconds is a histogram for inference-only latency
	InferenceLatencySeconds = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "inference_latency_seconds",
			Help:    "Histogram of inference latency (seconds) excluding pre- and postprocessing.",
			Buckets: []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
	)

	// DetectionsPerTick is a histogram of final detection counts per tick
	DetectionsPerTick = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "detections_per_tick",
			Help:    "Histogram of detections surviving suppression per completed tick.",
			Buckets: []float64{0, 1, 2, 4, 8, 16, 32, 64},
		},
	)

	// TicksSkippedTotal counts skipped ticks by reason
	TicksSkippedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "detection_ticks_skipped_total",
			Help: "Total number of detection ticks skipped, labeled by reason.",
		},
		[]string{"reason"},
	)

	// FramesIngestedTotal counts frames accepted from the portal front end
	FramesIngestedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "frames_ingested_total",
			Help: "Total number of frames accepted over the ingest endpoint.",
		},
	)

	// HealthStatus is a gauge indicating the health status of the service
	HealthStatus = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "health_status",
			Help: "Health status of the service (1 = healthy, 0 = unhealthy).",
		},
	)
)

// RecordHTTPLatency records the latency of an HTTP request
func RecordHTTPLatency(route, method, code string, seconds float64) {
	HTTPServerHandlingSeconds.WithLabelValues(route, method, code).Observe(seconds)
}

// RecordTick records the latency and result size of a completed tick
func RecordTick(seconds float64, detections int) {
	TickDurationSeconds.Observe(seconds)
	DetectionsPerTick.Observe(float64(detections))
}

// RecordInferenceLatency records the latency of an inference call
func RecordInferenceLatency(seconds float64) {
	InferenceLatencySeconds.Observe(seconds)
}

// RecordTickSkipped counts a skipped tick with the given reason
func RecordTickSkipped(reason string) {
	TicksSkippedTotal.WithLabelValues(reason).Inc()
}

// RecordFrameIngested counts an accepted frame
func RecordFrameIngested() {
	FramesIngestedTotal.Inc()
}

// SetHealthy sets the health status to healthy
func SetHealthy() {
	HealthStatus.Set(1)
}

// SetUnhealthy sets the health status to unhealthy
func SetUnhealthy() {
	HealthStatus.Set(0)
}
