package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RecordsCreated      prometheus.Counter
	AllocationsReplaced prometheus.Counter
	AllocationsRejected prometheus.Counter
	StrengthUpgrades    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RecordsCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_records_created_total",
			Help: "Total number of CPD records created",
		}),
		AllocationsReplaced: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_allocations_replaced_total",
			Help: "Total number of successful allocation replacements",
		}),
		AllocationsRejected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_allocations_rejected_total",
			Help: "Total number of allocation replacements rejected by validation",
		}),
		StrengthUpgrades: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_evidence_strength_upgrades_total",
			Help: "Total number of evidence strength upgrades applied",
		}),
	}
}

func (m *Metrics) IncrementRecordsCreated() {
	if m != nil {
		m.RecordsCreated.Inc()
	}
}

func (m *Metrics) IncrementAllocationsReplaced() {
	if m != nil {
		m.AllocationsReplaced.Inc()
	}
}

func (m *Metrics) IncrementAllocationsRejected() {
	if m != nil {
		m.AllocationsRejected.Inc()
	}
}

func (m *Metrics) IncrementStrengthUpgrades() {
	if m != nil {
		m.StrengthUpgrades.Inc()
	}
}
