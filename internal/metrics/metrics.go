// Package metrics provides Prometheus instrumentation for the farming engine.
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
	// BetsRegistered counts bet registrations partitioned by result
	// (ok, winner, duplicate, unsettled, no_period, period_closed).
	BetsRegistered = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farming_bets_registered_total",
		Help: "Total bet registration attempts by result",
	}, []string{"result"})

	// RewardsClaimed counts successful reward claims.
	RewardsClaimed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farming_rewards_claimed_total",
		Help: "Total successful reward claims",
	})

	// PeriodsStarted counts funded farm periods.
	PeriodsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farming_periods_started_total",
		Help: "Total farm periods created",
	})

	// WeightedStakeTotal accumulates registered weighted stake across all
	// periods. Approximate (float64); exact values live in the store.
	WeightedStakeTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "farming_weighted_stake_total",
		Help: "Cumulative weighted stake registered, in minimal units",
	})

	// WebSocketClients tracks connected WebSocket clients.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "farming_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "farming_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farming_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the raw path for the label; the API surface is small enough
		// that cardinality stays manageable.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
