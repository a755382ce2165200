package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the counters shared by the core services. Registered once
// against the default registry; the server exposes them on /metrics.
type Metrics struct {
	SettlementsApplied   prometheus.Counter
	SettlementsDuplicate prometheus.Counter
	ResolvesConsumed     *prometheus.CounterVec
	ResolvesDenied       prometheus.Counter
	ModerationActions    *prometheus.CounterVec
}

func NewMetrics() *Metrics {
	m := &Metrics{
		SettlementsApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accord_settlements_applied_total",
			Help: "Successful payment settlements applied to the ledger.",
		}),
		SettlementsDuplicate: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accord_settlements_duplicate_total",
			Help: "Settlement calls that replayed an already-seen charge id.",
		}),
		ResolvesConsumed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_resolves_consumed_total",
			Help: "Resolve consumptions by funding source.",
		}, []string{"source"}),
		ResolvesDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "accord_resolves_denied_total",
			Help: "Resolve attempts refused for lack of balance.",
		}),
		ModerationActions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "accord_moderation_actions_total",
			Help: "Moderation ladder outcomes by action.",
		}, []string{"action"}),
	}

	prometheus.MustRegister(
		m.SettlementsApplied,
		m.SettlementsDuplicate,
		m.ResolvesConsumed,
		m.ResolvesDenied,
		m.ModerationActions,
	)
	return m
}
