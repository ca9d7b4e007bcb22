package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	registry *prometheus.Registry

	StoreCalls           *prometheus.CounterVec
	StoreLatency         *prometheus.HistogramVec
	RegistrationsCreated prometheus.Counter
	FormsRejected        *prometheus.CounterVec
	WalletsExpired       prometheus.Counter
	ListCacheLookups     *prometheus.CounterVec
}

// New creates and registers all Prometheus metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		StoreCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_register_store_calls_total",
			Help: "Document store calls by operation and outcome",
		}, []string{"operation", "outcome"}),
		StoreLatency: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "transport_register_store_call_duration_seconds",
			Help:    "Document store call latency by operation",
			Buckets: prometheus.DefBuckets,
		}, []string{"operation"}),
		RegistrationsCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "transport_register_registrations_created_total",
			Help: "Total number of registrations submitted",
		}),
		FormsRejected: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_register_forms_rejected_total",
			Help: "Form submissions rejected by validation",
		}, []string{"form"}),
		WalletsExpired: factory.NewCounter(prometheus.CounterOpts{
			Name: "transport_register_wallets_expired_total",
			Help: "Wallet addresses deleted after their retention delay",
		}),
		ListCacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "transport_register_list_cache_lookups_total",
			Help: "Registration list cache lookups by result",
		}, []string{"result"}),
	}
}

// Handler exposes the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
