package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for delegation operations.
type Metrics struct {
	DelegationsCreated     prometheus.Counter
	DelegationsRevoked     prometheus.Counter
	ActiveDelegationsTotal prometheus.Gauge
	PermissionChecks       *prometheus.CounterVec
	CascadedGrantRevokes   prometheus.Counter
}

// New registers and returns delegation metrics collectors.
func New() *Metrics {
	return &Metrics{
		DelegationsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_delegations_created_total",
			Help: "Total number of delegations opened",
		}),
		DelegationsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_delegations_revoked_total",
			Help: "Total number of delegations revoked",
		}),
		ActiveDelegationsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "travlr_active_delegations_total",
			Help: "Current number of active delegations system-wide",
		}),
		PermissionChecks: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travlr_delegation_permission_checks_total",
			Help: "Total number of delegation permission checks, labeled by outcome",
		}, []string{"outcome"}),
		CascadedGrantRevokes: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_delegation_cascaded_grant_revokes_total",
			Help: "Total number of grants revoked by delegation revocation cascades",
		}),
	}
}

func (m *Metrics) IncrementDelegationsCreated() {
	m.DelegationsCreated.Inc()
}

func (m *Metrics) IncrementDelegationsRevoked() {
	m.DelegationsRevoked.Inc()
}

func (m *Metrics) IncrementActiveDelegations(count float64) {
	m.ActiveDelegationsTotal.Add(count)
}

func (m *Metrics) DecrementActiveDelegations(count float64) {
	m.ActiveDelegationsTotal.Sub(count)
}

func (m *Metrics) IncrementPermissionChecks(outcome string) {
	m.PermissionChecks.WithLabelValues(outcome).Inc()
}

func (m *Metrics) AddCascadedGrantRevokes(count float64) {
	m.CascadedGrantRevokes.Add(count)
}
