package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/livingcodex/codex/internal/codex/core"
)

var (
	// Store metrics
	NodesTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "codex_nodes_total",
			Help: "Total number of live nodes",
		},
	)

	NodesByType = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codex_nodes_by_type",
			Help: "Number of live nodes by node type",
		},
		[]string{"type"},
	)

	StorageBytes = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "codex_storage_bytes",
			Help: "Approximate storage size: content plus marshaled metadata",
		},
	)

	ComponentAccesses = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "codex_component_accesses_total",
			Help: "Node accesses by owning component",
		},
		[]string{"component"},
	)

	// API metrics
	APIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codex_api_requests_total",
			Help: "Total number of API requests by method and status",
		},
		[]string{"method", "status"},
	)

	APIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codex_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(NodesByType)
	prometheus.MustRegister(StorageBytes)
	prometheus.MustRegister(ComponentAccesses)
	prometheus.MustRegister(APIRequestsTotal)
	prometheus.MustRegister(APIRequestDuration)
}

// Publish pushes a metrics snapshot into the Prometheus collectors.
func Publish(m core.Metrics) {
	NodesTotal.Set(float64(m.TotalNodes))
	StorageBytes.Set(float64(m.StorageBytes))

	NodesByType.Reset()
	for nodeType, n := range m.NodesByType {
		NodesByType.WithLabelValues(nodeType).Set(float64(n))
	}

	ComponentAccesses.Reset()
	for component, n := range m.ComponentAccess {
		ComponentAccesses.WithLabelValues(component).Set(float64(n))
	}
}

// Handler returns the Prometheus HTTP handler
func Handler() http.Handler {
	return promhttp.Handler()
}
