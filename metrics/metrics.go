// ABOUTME: Prometheus collectors for board moves, bulk actions and HTTP traffic
// ABOUTME: Exposes Record helpers and an HTTP middleware labelled by chi route pattern
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	movesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeboard_moves_total",
			Help: "Total number of lead moves on the pipeline board",
		},
		[]string{"result"},
	)

	bulkActionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipeboard_bulk_actions_total",
			Help: "Total number of bulk actions dispatched",
		},
		[]string{"action", "result"},
	)

	bulkFailuresTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "pipeboard_bulk_failures_total",
			Help: "Total number of record ids skipped by bulk actions",
		},
	)

	openViews = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "pipeboard_open_views",
			Help: "Number of mounted view sessions",
		},
	)
)

// Move results.
const (
	ResultOK       = "ok"
	ResultNoop     = "noop"
	ResultInvalid  = "invalid"
	ResultReverted = "reverted"
	ResultPartial  = "partial"
	ResultFailed   = "failed"
)

func RecordMove(result string) {
	movesTotal.WithLabelValues(result).Inc()
}

// RecordBulk counts one dispatched action and the ids it skipped.
func RecordBulk(action, result string, skipped int) {
	bulkActionsTotal.WithLabelValues(action, result).Inc()
	if skipped > 0 {
		bulkFailuresTotal.Add(float64(skipped))
	}
}

func ViewOpened() { openViews.Inc() }
func ViewClosed() { openViews.Dec() }

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// Middleware records request count and latency. The path label is the matched
// route pattern so ids in the URL do not explode cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if p := rctx.RoutePattern(); p != "" {
				path = p
			}
		}
		status := strconv.Itoa(rw.statusCode)
		httpRequestsTotal.WithLabelValues(r.Method, path, status).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(time.Since(start).Seconds())
	})
}
