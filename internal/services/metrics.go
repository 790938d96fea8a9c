package services

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all custom Prometheus metrics for the application
type Metrics struct {
	// Turn metrics
	TurnsProcessed  prometheus.Counter
	TurnLatency     prometheus.Histogram
	DegradedReplies prometheus.Counter

	// WebSocket metrics
	WebSocketMessages *prometheus.CounterVec
}

var globalMetrics *Metrics

// InitMetrics initializes the Prometheus metrics. The connection
// manager and write queue are sampled via gauge functions so their
// current state shows up without explicit instrumentation calls.
func InitMetrics(connManager *ConnectionManager, queue *DialogWriteQueue) *Metrics {
	metrics := &Metrics{
		TurnsProcessed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthbot_turns_processed_total",
			Help: "Total number of dialog turns processed",
		}),

		TurnLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "healthbot_turn_duration_seconds",
			Help:    "Dialog turn latency in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),

		DegradedReplies: promauto.NewCounter(prometheus.CounterOpts{
			Name: "healthbot_degraded_replies_total",
			Help: "Total number of turns that fell back to the degraded reply",
		}),

		WebSocketMessages: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "healthbot_websocket_messages_total",
			Help: "Total number of WebSocket messages by type",
		}, []string{"type", "direction"}), // direction: "inbound" or "outbound"
	}

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "healthbot_websocket_connections_current",
			Help: "Current number of active WebSocket connections",
		},
		func() float64 {
			if connManager != nil {
				return float64(connManager.Count())
			}
			return 0
		},
	))

	prometheus.MustRegister(prometheus.NewGaugeFunc(
		prometheus.GaugeOpts{
			Name: "healthbot_dialog_queue_depth",
			Help: "Number of dialog turns waiting in the write queue",
		},
		func() float64 {
			if queue != nil {
				return float64(queue.Depth())
			}
			return 0
		},
	))

	globalMetrics = metrics
	return metrics
}

// GetMetrics returns the global metrics instance, or nil when metrics
// were never initialized (tests, CLI mode).
func GetMetrics() *Metrics {
	return globalMetrics
}
