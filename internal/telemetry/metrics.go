// Package telemetry holds the Prometheus collectors shared across the server.
package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "vibescreen"

var (
	MountedDisplays = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "displays_mounted",
		Help:      "Number of mounted display sessions.",
	})

	ActiveItems = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "display_active_items",
		Help:      "Active items in each display's rotation.",
	}, []string{"display"})

	Transitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "display_transitions_total",
		Help:      "Playback state changes by reason.",
	}, []string{"display", "reason"})

	Refreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "display_refreshes_total",
		Help:      "Content refreshes by result.",
	}, []string{"display", "result"})

	MediaErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "display_media_errors_total",
		Help:      "Media load failures reported by screens.",
	}, []string{"display"})

	StreamClients = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "stream_clients",
		Help:      "Open websocket streams.",
	})

	Imports = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "import_items_total",
		Help:      "Items created by importers.",
	}, []string{"importer"})

	APIRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "api_requests_total",
		Help:      "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	APIRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "api_request_duration_seconds",
		Help:      "HTTP request latency.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// Handler exposes the metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
