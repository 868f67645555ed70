package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpMetrics groups the collectors of the HTTP layer. Labels use the chi
// route pattern so ids in URLs do not explode cardinality.
type httpMetrics struct {
	requests     *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	inflight     *prometheus.GaugeVec
	backpressure *prometheus.CounterVec
}

func newHTTPMetrics(reg prometheus.Registerer) *httpMetrics {
	f := promauto.With(reg)
	return &httpMetrics{
		requests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llamachat", Subsystem: "http", Name: "requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "llamachat", Subsystem: "http", Name: "request_duration_seconds",
			Help:    "HTTP request latency; streaming routes include the whole stream.",
			Buckets: []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"route", "method"}),
		inflight: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "llamachat", Subsystem: "http", Name: "inflight_requests",
			Help: "Requests currently being served per route.",
		}, []string{"route"}),
		backpressure: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "llamachat", Subsystem: "http", Name: "backpressure_total",
			Help: "Requests rejected with 429 by reason (queue, drain_timeout).",
		}, []string{"reason"}),
	}
}

var metrics = newHTTPMetrics(prometheus.DefaultRegisterer)

// statusRecorder captures the response status for the metrics middleware.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// Flush keeps NDJSON streaming working behind the middleware.
func (sr *statusRecorder) Flush() {
	if f, ok := sr.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (sr *statusRecorder) Unwrap() http.ResponseWriter { return sr.ResponseWriter }

// MetricsMiddleware counts and times every request. The route is read after
// the handler ran, once chi has resolved it.
func MetricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()
		next.ServeHTTP(sr, r)
		route := routeLabel(r)
		metrics.requests.WithLabelValues(route, r.Method, strconv.Itoa(sr.status)).Inc()
		metrics.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

// inflightMiddleware must be mounted inside a router group so the route is known.
func inflightMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		g := metrics.inflight.WithLabelValues(routeLabel(r))
		g.Inc()
		defer g.Dec()
		next.ServeHTTP(w, r)
	})
}

func routeLabel(r *http.Request) string {
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if p := rc.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// IncrementBackpressure records a 429 returned to the client.
func IncrementBackpressure(reason string) {
	if reason == "" {
		reason = "unspecified"
	}
	metrics.backpressure.WithLabelValues(reason).Inc()
}
