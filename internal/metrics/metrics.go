// Package metrics provides Prometheus metrics for the realms server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realms_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Feed metrics
	feedLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_feed_loads_total",
			Help: "Feed loads by realm and outcome (ok, error)",
		},
		[]string{"realm", "outcome"},
	)

	feedLoadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "realms_feed_load_duration_seconds",
			Help:    "Time from listing to emitted result",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"realm"},
	)

	feedItems = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "realms_feed_items",
			Help: "Items in the latest emitted feed per realm",
		},
		[]string{"realm"},
	)

	resolvesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_resolves_total",
			Help: "Access URL resolutions by outcome (ok, degraded)",
		},
		[]string{"outcome"},
	)

	resolvesInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realms_resolves_in_flight",
			Help: "Access URL resolutions currently running",
		},
	)

	supersededLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_superseded_loads_total",
			Help: "Loads discarded because a newer load for the realm started",
		},
		[]string{"realm"},
	)

	// Upload metrics
	uploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_uploads_total",
			Help: "Uploads by realm and status",
		},
		[]string{"realm", "status"},
	)

	uploadBytes = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "realms_upload_bytes_total",
			Help: "Total bytes accepted by the uploader",
		},
	)

	// SSE metrics
	sseConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "realms_sse_connections_active",
			Help: "Number of active SSE connections",
		},
	)

	sseEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realms_sse_events_total",
			Help: "Total events published",
		},
		[]string{"type"},
	)
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordHTTPRequest records an HTTP request metric.
func RecordHTTPRequest(method, route string, status int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	httpRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordFeedLoad records one emitted feed.
func RecordFeedLoad(realm string, ok bool, items int, duration time.Duration) {
	outcome := "ok"
	if !ok {
		outcome = "error"
	}
	feedLoadsTotal.WithLabelValues(realm, outcome).Inc()
	feedLoadDuration.WithLabelValues(realm).Observe(duration.Seconds())
	feedItems.WithLabelValues(realm).Set(float64(items))
}

// RecordResolve records one access URL resolution.
func RecordResolve(degraded bool) {
	outcome := "ok"
	if degraded {
		outcome = "degraded"
	}
	resolvesTotal.WithLabelValues(outcome).Inc()
}

// ResolveStarted and ResolveFinished bracket one in-flight resolution.
func ResolveStarted()  { resolvesInFlight.Inc() }
func ResolveFinished() { resolvesInFlight.Dec() }

// RecordSupersededLoad records a load whose result was discarded.
func RecordSupersededLoad(realm string) {
	supersededLoadsTotal.WithLabelValues(realm).Inc()
}

// RecordUpload records an upload attempt.
func RecordUpload(realm string, bytes int64, success bool) {
	status := "success"
	if !success {
		status = "error"
	} else {
		uploadBytes.Add(float64(bytes))
	}
	uploadsTotal.WithLabelValues(realm, status).Inc()
}

// SetSSEConnectionsActive sets the number of active SSE connections.
func SetSSEConnectionsActive(count int) {
	sseConnectionsActive.Set(float64(count))
}

// RecordSSEEvent records an event publication.
func RecordSSEEvent(eventType string) {
	sseEventsTotal.WithLabelValues(eventType).Inc()
}

// responseWriter wraps http.ResponseWriter to capture status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Middleware records request metrics labelled by the chi route pattern, so
// realm names in the path do not explode label cardinality.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		RecordHTTPRequest(r.Method, route, rw.statusCode, time.Since(start))
	})
}
