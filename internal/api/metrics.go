package api

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	videosTotal = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "vidportal_videos_total",
		Help: "Number of videos in the metadata store",
	})

	uploadsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidportal_uploads_total",
		Help: "Upload attempts by outcome",
	}, []string{"status"})

	viewsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "vidportal_views_total",
		Help: "View increments recorded",
	})

	deletesTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidportal_deletes_total",
		Help: "Delete attempts by outcome",
	}, []string{"status"})

	errorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "vidportal_errors_total",
		Help: "Handler errors by kind",
	}, []string{"kind"})

	requestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "vidportal_http_request_duration_seconds",
		Help:    "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

func init() {
	prometheus.MustRegister(videosTotal)
	prometheus.MustRegister(uploadsTotal)
	prometheus.MustRegister(viewsTotal)
	prometheus.MustRegister(deletesTotal)
	prometheus.MustRegister(errorsTotal)
	prometheus.MustRegister(requestDuration)
}

// SetVideoCount sets the videos_total gauge.
func SetVideoCount(n int) {
	videosTotal.Set(float64(n))
}

func recordUpload(status string) {
	uploadsTotal.WithLabelValues(status).Inc()
}

func recordDelete(status string) {
	deletesTotal.WithLabelValues(status).Inc()
}

func recordError(kind string) {
	errorsTotal.WithLabelValues(kind).Inc()
}

func recordRequest(method, route string, status int, d time.Duration) {
	requestDuration.WithLabelValues(method, route, statusClass(status)).Observe(d.Seconds())
}

func statusClass(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
