// Package telemetry exposes the server's prometheus collectors and the HTTP
// timing middleware. Collectors are registered with the default registry and
// served by promhttp at /metrics.
package telemetry

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"chatrelay/pkg/logger"
)

var (
	// ConnectionsActive tracks currently registered websocket connections.
	ConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "chatrelay_connections_active",
		Help: "Number of registered websocket connections.",
	})

	// MessagesIngested counts messages durably persisted by the pipeline.
	MessagesIngested = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_messages_ingested_total",
		Help: "Messages accepted and persisted by the ingestion pipeline.",
	})

	// DeliveryAttempts counts live delivery outcomes by result:
	// delivered, miss (queue full or transport closed mid-send), offline.
	DeliveryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "chatrelay_delivery_attempts_total",
		Help: "Live delivery attempts by outcome.",
	}, []string{"result"})

	// PresenceBroadcasts counts users_list fan-out rounds.
	PresenceBroadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "chatrelay_presence_broadcasts_total",
		Help: "Presence broadcast rounds performed.",
	})

	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chatrelay_http_request_duration_seconds",
		Help:    "HTTP request latency by method and status.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "status"})
)

var slowThreshold = 200 * time.Millisecond

// SetSlowThreshold sets the duration above which a request gets a warn log.
func SetSlowThreshold(d time.Duration) {
	if d <= 0 {
		d = 0
	}
	slowThreshold = d
}

// Middleware records request duration and status for every HTTP request and
// warn-logs slow ones. Websocket upgrades pass through untimed once hijacked.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		srw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(srw, r)

		dur := time.Since(start)
		httpDuration.WithLabelValues(r.Method, strconv.Itoa(srw.status)).Observe(dur.Seconds())
		if dur > slowThreshold {
			logger.Warn("slow_request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", srw.status,
				"duration_ms", dur.Milliseconds(),
			)
		}
	})
}

// statusRecorder captures the response status code.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack keeps websocket upgrades working behind the middleware.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("underlying ResponseWriter does not support hijacking")
	}
	return h.Hijack()
}
