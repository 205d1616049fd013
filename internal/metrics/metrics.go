package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Manager holds the service's custom Prometheus metrics.
type Manager struct {
	Registry              *prometheus.Registry
	RegistrationsTotal    prometheus.Counter
	VerificationsTotal    prometheus.Counter
	MessagesAcceptedTotal prometheus.Counter
	MessagesRejectedTotal *prometheus.CounterVec // by rejection reason
}

// NewManager initializes and registers the metrics on a private
// registry.
func NewManager(serviceName string) *Manager {
	registry := prometheus.NewRegistry()

	registrationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "registrations_total",
		Help:      "Total number of successful account registrations.",
	})
	verificationsTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "verifications_total",
		Help:      "Total number of successful email verifications.",
	})
	messagesAcceptedTotal := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "messages_accepted_total",
		Help:      "Total number of anonymous messages accepted.",
	})
	messagesRejectedTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: serviceName,
		Name:      "messages_rejected_total",
		Help:      "Total number of anonymous messages rejected, by reason.",
	}, []string{"reason"})

	registry.MustRegister(
		registrationsTotal,
		verificationsTotal,
		messagesAcceptedTotal,
		messagesRejectedTotal,
		prometheus.NewGoCollector(),
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
	)

	return &Manager{
		Registry:              registry,
		RegistrationsTotal:    registrationsTotal,
		VerificationsTotal:    verificationsTotal,
		MessagesAcceptedTotal: messagesAcceptedTotal,
		MessagesRejectedTotal: messagesRejectedTotal,
	}
}

// Handler exposes the registry for mounting under /metrics.
func (m *Manager) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}
