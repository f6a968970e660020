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
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minicrm_http_requests_total",
		Help: "Total number of HTTP requests processed.",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "minicrm_http_request_duration_seconds",
		Help:    "Histogram of latencies for HTTP requests.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	deliveriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minicrm_message_deliveries_total",
		Help: "Email message delivery attempts by driver and outcome.",
	}, []string{"driver", "outcome"})

	authFailuresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "minicrm_auth_failures_total",
		Help: "Rejected authentication attempts by reason.",
	}, []string{"reason"})
)

// Router is satisfied by *http.ServeMux. It resolves the pattern that will
// serve a request so that metrics are labelled by route, not raw path.
type Router interface {
	Handler(r *http.Request) (h http.Handler, pattern string)
}

// Middleware records request count and latency labelled by route pattern.
func Middleware(router Router) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := "unmatched"
			if router != nil {
				if _, pattern := router.Handler(r); pattern != "" {
					route = pattern
				}
			}

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(rec, r)

			httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
			httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

// Handler exposes the Prometheus metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveDelivery counts one delivery attempt.
func ObserveDelivery(driver string, err error) {
	outcome := "sent"
	if err != nil {
		outcome = "failed"
	}
	deliveriesTotal.WithLabelValues(driver, outcome).Inc()
}

// ObserveAuthFailure counts a rejected login, session or rate-limited request.
func ObserveAuthFailure(reason string) {
	authFailuresTotal.WithLabelValues(reason).Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
