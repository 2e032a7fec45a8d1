package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "auction_http_request_duration_seconds",
			Help:    "HTTP request duration",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"method", "path"},
	)

	// Business metrics
	BidsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_bids_total",
			Help: "Bid attempts by result",
		},
		[]string{"result"}, // "accepted", "outbid", "denied"
	)

	RoundsClosed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_rounds_closed_total",
			Help: "Auction rounds closed",
		},
		[]string{"outcome"}, // "sold" or "unsold"
	)

	PresenceEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "auction_presence_events_total",
			Help: "Viewer presence changes",
		},
		[]string{"event"}, // "join", "leave", "disconnect"
	)

	LiveConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "auction_live_connections",
			Help: "Open live WebSocket connections",
		},
	)

	// Store metrics
	StoreUpdateRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "auction_store_update_retries_total",
			Help: "Conditional writes retried after losing a race",
		},
	)
)
