// Package telemetry exposes Prometheus metrics for the HTTP surface and the
// delivery pipeline, plus a request-timing middleware. Slow requests are
// additionally logged so they show up without scraping.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"arenachat/pkg/logger"
)

var (
	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "arenachat",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency by method and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "status"})

	// MessagesSent counts sends that persisted successfully.
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arenachat",
		Subsystem: "delivery",
		Name:      "messages_sent_total",
		Help:      "Messages persisted through the send pipeline.",
	})

	// SendsRolledBack counts optimistic sends that failed and were rolled
	// back to their pre-send snapshot.
	SendsRolledBack = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arenachat",
		Subsystem: "delivery",
		Name:      "sends_rolled_back_total",
		Help:      "Optimistic sends rolled back after a backend failure.",
	})

	// RecordsDropped counts malformed inbound records the normalizer
	// silently skipped.
	RecordsDropped = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "arenachat",
		Subsystem: "normalize",
		Name:      "records_dropped_total",
		Help:      "Inbound records skipped during normalization.",
	})

	// StoreDiskBytes tracks the on-disk size of the message store.
	StoreDiskBytes = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "arenachat",
		Subsystem: "store",
		Name:      "disk_bytes",
		Help:      "Best-effort on-disk size of the Pebble store.",
	})
)

var slowThreshold = 200 * time.Millisecond

// SetSlowThreshold sets the duration above which requests get a log line.
func SetSlowThreshold(d time.Duration) {
	if d > 0 {
		slowThreshold = d
	}
}

// Handler serves the metrics scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request timing and logs slow requests.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(srw.status)).Observe(dur.Seconds())
		if dur > slowThreshold {
			logger.Warn("slow_request", "method", r.Method, "path", r.URL.Path, "status", srw.status, "duration_ms", dur.Milliseconds())
		}
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
