package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics covers mint attempts, ledger latency and token validations.
type Metrics struct {
	// Mint attempts by outcome: anchored, failed, pending, unavailable
	Mints *prometheus.CounterVec

	MintLatency prometheus.Histogram

	// Validations by result: valid, invalid, cached
	Validations *prometheus.CounterVec

	Reconciled *prometheus.CounterVec
}

func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Mints: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_anchor_mints_total",
			Help: "Certificate mint attempts by outcome",
		}, []string{"outcome"}),
		MintLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "certus_anchor_mint_duration_seconds",
			Help:    "Time from submission to finality of a mint transaction",
			Buckets: []float64{0.5, 1, 2, 4, 8, 16, 32},
		}),
		Validations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_anchor_validations_total",
			Help: "Token validations by result",
		}, []string{"result"}),
		Reconciled: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "certus_anchor_reconciled_total",
			Help: "Stale anchor requests settled by the reconciler, by outcome",
		}, []string{"outcome"}),
	}
}

func (m *Metrics) IncMint(outcome string) {
	if m != nil {
		m.Mints.WithLabelValues(outcome).Inc()
	}
}

func (m *Metrics) ObserveMint(d time.Duration) {
	if m != nil {
		m.MintLatency.Observe(d.Seconds())
	}
}

func (m *Metrics) IncValidation(result string) {
	if m != nil {
		m.Validations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) IncReconciled(outcome string) {
	if m != nil {
		m.Reconciled.WithLabelValues(outcome).Inc()
	}
}
