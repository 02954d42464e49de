// Package metrics holds the Prometheus instrumentation for the bridge.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EventsTotal counts inbound chat events by kind.
	EventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "unblinkingbot_events_total",
		Help: "Inbound chat events observed, by kind.",
	}, []string{"kind"})

	// RepliesTotal counts outbound auto-replies dispatched.
	RepliesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unblinkingbot_replies_total",
		Help: "Auto-replies dispatched through the chat connection.",
	})

	// TrimDeletedTotal counts activity records removed by retention trimming.
	TrimDeletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "unblinkingbot_store_trim_deleted_total",
		Help: "Activity records deleted by retention trimming.",
	})

	// ObserverClients tracks currently-connected observer sockets.
	ObserverClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "unblinkingbot_observer_clients",
		Help: "Currently connected observer websocket clients.",
	})
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
