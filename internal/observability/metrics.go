package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	Detections = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scansplit",
		Name:      "detections_total",
		Help:      "Total number of completed detections by the method that produced the photos",
	}, []string{"method"})

	PhotosDetected = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scansplit",
		Name:      "photos_detected_total",
		Help:      "Total number of photos returned",
	}, []string{"method"})

	VisionFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "scansplit",
		Name:      "vision_failures_total",
		Help:      "Vision model attempts that fell back to the histogram path",
	}, []string{"reason"})

	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scansplit",
		Name:      "stage_duration_seconds",
		Help:      "Duration of segmentation stages",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"stage"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "scansplit",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "path", "status"})
)
