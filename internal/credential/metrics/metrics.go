package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	RulePackResolutions prometheus.Counter
	RulePackCacheHits   prometheus.Counter
	RulePacksCreated    prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		RulePackResolutions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_rulepack_resolutions_total",
			Help: "Total number of rule pack resolutions performed",
		}),
		RulePackCacheHits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_rulepack_cache_hits_total",
			Help: "Total number of rule pack resolutions served from cache",
		}),
		RulePacksCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_rulepacks_created_total",
			Help: "Total number of rule pack versions created",
		}),
	}
}

func (m *Metrics) IncrementResolutions() {
	if m != nil {
		m.RulePackResolutions.Inc()
	}
}

func (m *Metrics) IncrementCacheHits() {
	if m != nil {
		m.RulePackCacheHits.Inc()
	}
}

func (m *Metrics) IncrementPacksCreated() {
	if m != nil {
		m.RulePacksCreated.Inc()
	}
}
