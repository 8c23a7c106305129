package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "http_in_flight_requests",
		Help: "In-flight HTTP requests.",
	})

	httpRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route", "status"},
	)

	rateLimitRejections = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_rejections_total",
			Help: "Requests rejected by the sliding-window limiter.",
		},
		[]string{"endpoint"},
	)

	otpVerifications = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "OTP verification outcomes.",
		},
		[]string{"result"},
	)

	appraisalTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "appraisal_transitions_total",
			Help: "Committed appraisal workflow transitions.",
		},
		[]string{"action"},
	)
)

var registerOnce sync.Once

// Init registers collectors with the default registry. Idempotent.
func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			rateLimitRejections, otpVerifications, appraisalTransitions,
		)
	})
}

// Handler Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Instrument records RPS, latency and in-flight requests per route template.
func Instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		httpInFlight.Inc()
		start := time.Now()

		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := strconv.Itoa(c.Writer.Status())
		httpRequestDuration.WithLabelValues(c.Request.Method, route, status).Observe(time.Since(start).Seconds())
		httpRequestsTotal.WithLabelValues(c.Request.Method, route, status).Inc()
		httpInFlight.Dec()
	}
}

// RateLimited counts a limiter rejection.
func RateLimited(endpoint string) {
	rateLimitRejections.WithLabelValues(endpoint).Inc()
}

// OTPVerified counts an OTP verification outcome ("ok", "mismatch", "refused").
func OTPVerified(result string) {
	otpVerifications.WithLabelValues(result).Inc()
}

// Transition counts a committed workflow transition.
func Transition(action string) {
	appraisalTransitions.WithLabelValues(action).Inc()
}
