// Package metrics provides Prometheus metrics for the dirshare server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirshare_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "dirshare_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)

	bytesUploaded = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dirshare_upload_bytes_total",
			Help: "Total bytes written by multipart uploads",
		},
	)

	archivesStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "dirshare_zip_archives_total",
			Help: "Total number of zip downloads started",
		},
	)

	authAttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "dirshare_auth_attempts_total",
			Help: "Total login attempts",
		},
		[]string{"result"},
	)

	activeSessions = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "dirshare_active_sessions",
			Help: "Number of sessions currently held in the session table",
		},
	)
)

// RecordUploadBytes adds n to the upload byte counter.
func RecordUploadBytes(n int64) {
	if n > 0 {
		bytesUploaded.Add(float64(n))
	}
}

// RecordArchive counts one started zip download.
func RecordArchive() { archivesStarted.Inc() }

// RecordAuthAttempt counts a login attempt; result is "success" or "failure".
func RecordAuthAttempt(result string) { authAttemptsTotal.WithLabelValues(result).Inc() }

// SetActiveSessions updates the session gauge.
func SetActiveSessions(n int) { activeSessions.Set(float64(n)) }

// Handler exposes the metrics endpoint.
func Handler() http.Handler { return promhttp.Handler() }

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Middleware instruments every request with count and duration.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		httpRequestsTotal.WithLabelValues(r.Method, strconv.Itoa(rec.status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method).Observe(time.Since(start).Seconds())
	})
}
