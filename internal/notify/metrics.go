package notify

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	activeConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "notify_active_connections",
			Help: "Number of active websocket sessions",
		},
	)

	deliveredTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "notify_realtime_delivered_total",
			Help: "Total number of notifications pushed over an active session",
		},
	)
)
