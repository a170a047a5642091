// Package telemetry exposes the service's Prometheus collectors and the
// request-timing middleware. Collectors are registered on the default
// registry and served by promhttp in main.
package telemetry

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"fillsession/pkg/logger"
)

var (
	SessionsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_sessions_created_total",
		Help: "Sessions created.",
	})
	SessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_sessions_completed_total",
		Help: "Sessions that reached the completed state.",
	})
	SessionsAbandoned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_sessions_abandoned_total",
		Help: "Sessions that reached the abandoned state.",
	})
	Messages = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "fillsession_messages_total",
		Help: "Messages appended to conversations, by role.",
	}, []string{"role"})
	VersionsApplied = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_versions_applied_total",
		Help: "Versions appended (applies and reverts).",
	})
	TokensConsumed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_tokens_consumed_total",
		Help: "Provider-reported tokens recorded against sessions.",
	})
	ProviderErrors = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_provider_errors_total",
		Help: "Completion provider failures, including timeouts.",
	})
	QuotaRejections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "fillsession_quota_rejections_total",
		Help: "Messages rejected by the quota gate.",
	})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "fillsession_request_duration_seconds",
		Help:    "HTTP request latency.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// Middleware logs each incoming request and records latency labeled by
// method and status.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.LogRequest(r)
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		requestDuration.WithLabelValues(r.Method, strconv.Itoa(rec.status)).
			Observe(time.Since(start).Seconds())
	})
}
