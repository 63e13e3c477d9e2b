// Package metrics exposes prometheus collectors for the console.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	initOnce sync.Once

	errorResponsesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realm_error_responses_total",
			Help: "Uncaught failures translated into HTTP responses.",
		},
		[]string{"status", "outcome"},
	)

	errorPageRenderSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "realm_error_page_render_seconds",
			Help:    "Time spent building themed error pages.",
			Buckets: prometheus.DefBuckets,
		},
	)

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "realm_http_requests_total",
			Help: "Total number of HTTP requests processed.",
		},
		[]string{"method", "route", "status"},
	)
)

// Init registers all collectors exactly once.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(errorResponsesTotal)
		prometheus.MustRegister(errorPageRenderSeconds)
		prometheus.MustRegister(httpRequestsTotal)
	})
}

// Handler exposes the /metrics HTTP handler.
func Handler() http.Handler {
	Init()
	return promhttp.Handler()
}

// Recorder records error page outcomes.
type Recorder struct{}

func NewRecorder() *Recorder {
	Init()
	return &Recorder{}
}

// ObserveErrorResponse counts one translated failure.
func (Recorder) ObserveErrorResponse(status int, outcome string) {
	errorResponsesTotal.WithLabelValues(strconv.Itoa(status), outcome).Inc()
}

// ObserveRender records how long building a themed page took.
func (Recorder) ObserveRender(d time.Duration) {
	errorPageRenderSeconds.Observe(d.Seconds())
}

type statusCapturingWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusCapturingWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

// Middleware counts requests by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	Init()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		scw := &statusCapturingWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(scw, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(scw.status)).Inc()
	})
}
