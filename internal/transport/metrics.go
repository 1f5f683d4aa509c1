package transport

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// ConnectedSessions tracks the number of live sockets (not the
	// distinct-device count used for UI purposes).
	ConnectedSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "scanlinkd_connected_sessions",
		Help: "The number of currently connected WebSocket sessions",
	})

	// MessagesTotal tracks frames sent and received across all sessions.
	MessagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanlinkd_messages_total",
		Help: "The total number of protocol frames sent and received",
	}, []string{"direction"}) // "in", "out"

	// ErrorsTotal tracks errors encountered while serving sessions.
	ErrorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scanlinkd_errors_total",
		Help: "The total number of errors encountered while serving sessions",
	}, []string{"kind"}) // "protocol", "auth", "transport", "crypto", "persistence", "injector"

	// ScansTotal tracks accepted barcode scans.
	ScansTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanlinkd_scans_total",
		Help: "The total number of barcode scans accepted and forwarded to the injector",
	})

	// RateLimitedTotal tracks connection attempts rejected by the
	// per-remote-IP connect rate limiter.
	RateLimitedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scanlinkd_rate_limited_total",
		Help: "The total number of connection attempts rejected by the rate limiter",
	})
)

// MetricsHandler returns the HTTP handler for Prometheus metrics.
func MetricsHandler() http.Handler {
	return promhttp.Handler()
}
