package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus collectors for consent operations.
type Metrics struct {
	RequestsCreated    prometheus.Counter
	RequestsDecided    *prometheus.CounterVec
	RequestsExpired    prometheus.Counter
	GrantsRevoked      prometheus.Counter
	ActiveGrantsTotal  prometheus.Gauge
	EnvelopesSealed    prometheus.Counter
	EnvelopesDelivered prometheus.Counter
	SignatureRejected  *prometheus.CounterVec
	ApproveLatency     prometheus.Histogram
}

// New registers and returns consent metrics collectors.
func New() *Metrics {
	return &Metrics{
		RequestsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_consent_requests_created_total",
			Help: "Total number of consent requests opened",
		}),
		RequestsDecided: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travlr_consent_requests_decided_total",
			Help: "Total number of consent requests settled, labeled by outcome",
		}, []string{"outcome"}),
		RequestsExpired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_consent_requests_expired_total",
			Help: "Total number of pending requests settled as expired on read",
		}),
		GrantsRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_consent_grants_revoked_total",
			Help: "Total number of grants revoked by holders",
		}),
		ActiveGrantsTotal: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "travlr_consent_active_grants_total",
			Help: "Current number of active grants system-wide",
		}),
		EnvelopesSealed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_context_card_envelopes_sealed_total",
			Help: "Total number of context card envelopes sealed on approval",
		}),
		EnvelopesDelivered: promauto.NewCounter(prometheus.CounterOpts{
			Name: "travlr_context_card_envelopes_delivered_total",
			Help: "Total number of envelopes handed to requesters",
		}),
		SignatureRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "travlr_consent_signature_rejections_total",
			Help: "Total number of rejected decision signatures, labeled by operation",
		}, []string{"operation"}),
		ApproveLatency: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "travlr_consent_approve_latency_seconds",
			Help:    "Latency of the approve path including envelope sealing",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (m *Metrics) IncrementRequestsCreated() {
	m.RequestsCreated.Inc()
}

func (m *Metrics) IncrementRequestsDecided(outcome string) {
	m.RequestsDecided.WithLabelValues(outcome).Inc()
}

func (m *Metrics) IncrementRequestsExpired() {
	m.RequestsExpired.Inc()
}

func (m *Metrics) IncrementGrantsRevoked() {
	m.GrantsRevoked.Inc()
}

func (m *Metrics) IncrementActiveGrants(count float64) {
	m.ActiveGrantsTotal.Add(count)
}

func (m *Metrics) DecrementActiveGrants(count float64) {
	m.ActiveGrantsTotal.Sub(count)
}

func (m *Metrics) IncrementEnvelopesSealed() {
	m.EnvelopesSealed.Inc()
}

func (m *Metrics) IncrementEnvelopesDelivered() {
	m.EnvelopesDelivered.Inc()
}

func (m *Metrics) IncrementSignatureRejected(operation string) {
	m.SignatureRejected.WithLabelValues(operation).Inc()
}

func (m *Metrics) ObserveApproveLatency(durationSeconds float64) {
	m.ApproveLatency.Observe(durationSeconds)
}
