package obs

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

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
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)

	authzDecisions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "authz_decisions_total",
			Help: "Authorization gate decisions by outcome and reason.",
		},
		[]string{"outcome", "reason"},
	)

	rateLimitDenied = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ratelimit_denied_total",
			Help: "Actions denied by the per-action rate limiter.",
		},
		[]string{"action"},
	)

	roleLookupFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "role_lookup_failures_total",
		Help: "Role source lookups that failed and were treated as no roles.",
	})

	auditWriteFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "audit_write_failures_total",
		Help: "Audit records that could not be written or were dropped.",
	})

	readyGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "ready",
		Help: "1 when the service passed its last readiness check.",
	})

	initOnce sync.Once
)

// Init registers all service metrics in the default registry.
func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(
			httpInFlight, httpRequestsTotal, httpRequestDuration,
			authzDecisions, rateLimitDenied, roleLookupFailures, auditWriteFailures,
			readyGauge,
		)
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveAuthz counts one gate decision.
func ObserveAuthz(granted bool, reason string) {
	outcome := "granted"
	if !granted {
		outcome = "denied"
	}
	if reason == "" {
		reason = "none"
	}
	authzDecisions.WithLabelValues(outcome, reason).Inc()
}

// ObserveRateLimited counts one rate-limited action.
func ObserveRateLimited(action string) {
	rateLimitDenied.WithLabelValues(action).Inc()
}

// ObserveRoleLookupFailure counts a role source error.
func ObserveRoleLookupFailure() {
	roleLookupFailures.Inc()
}

// ObserveAuditFailure counts a failed or dropped audit record.
func ObserveAuditFailure() {
	auditWriteFailures.Inc()
}

// SetReady records the latest readiness outcome.
func SetReady(ok bool) {
	if ok {
		readyGauge.Set(1)
		return
	}
	readyGauge.Set(0)
}

// Instrument measures RPS, latency and in-flight requests.
func Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := CanonicalPath(r.URL.Path)
		method := r.Method

		httpInFlight.Inc()
		start := time.Now()

		sw := &statusWriter{ResponseWriter: w, code: 200}
		next.ServeHTTP(sw, r)

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(sw.code)

		httpRequestDuration.WithLabelValues(method, path, status).Observe(duration)
		httpRequestsTotal.WithLabelValues(method, path, status).Inc()
		httpInFlight.Dec()
	})
}

// routeShapes lists path templates whose ":" segments are identifiers.
var routeShapes = [][]string{
	{"v1", "profiles", ":id"},
	{"v1", "events", ":id", "registrations"},
	{"v1", "users", ":id", "donations"},
	{"v1", "pages", ":page"},
	{"v1", "admin", "users", ":id"},
	{"v1", "admin", "users", ":id", "roles"},
	{"v1", "admin", "users", ":id", "roles", ":role"},
	{"v1", "admin", "content", ":kind", ":id"},
}

// CanonicalPath collapses identifier segments so metric label cardinality stays bounded.
func CanonicalPath(path string) string {
	if i := strings.IndexByte(path, '?'); i >= 0 {
		path = path[:i]
	}
	trimmed := strings.Trim(path, "/")
	if trimmed == "" {
		return "/"
	}
	parts := strings.Split(trimmed, "/")
	for _, shape := range routeShapes {
		if len(shape) != len(parts) {
			continue
		}
		match := true
		for i, seg := range shape {
			if strings.HasPrefix(seg, ":") {
				continue
			}
			if seg != parts[i] {
				match = false
				break
			}
		}
		if match {
			return "/" + strings.Join(shape, "/")
		}
	}
	return "/" + trimmed
}

type statusWriter struct {
	http.ResponseWriter
	code int
}

func (w *statusWriter) WriteHeader(code int) {
	w.code = code
	w.ResponseWriter.WriteHeader(code)
}

// Flush lets SSE handlers stream through the instrumentation wrapper.
func (w *statusWriter) Flush() {
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
