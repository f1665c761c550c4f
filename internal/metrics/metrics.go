package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chatrelay_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Connection metrics
	ConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "chatrelay_connected_clients",
			Help: "Currently registered websocket connections",
		},
	)

	// Chat metrics
	MessagesReceived = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_messages_received_total",
			Help: "Inbound chat submissions",
		},
		[]string{"kind"}, // "chat" or "diceroll"
	)

	EventsDropped = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_events_dropped_total",
			Help: "Events dropped because a client queue was full",
		},
	)

	StoreErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_store_errors_total",
			Help: "Failed store operations",
		},
		[]string{"op"}, // "append" or "history"
	)

	DiceRolls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chatrelay_dice_rolls_total",
			Help: "Dice roll requests by outcome",
		},
		[]string{"result"}, // "ok" or "error"
	)

	RateLimitHits = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chatrelay_rate_limit_hits_total",
			Help: "Inbound frames rejected by the per-connection limiter",
		},
	)
)
