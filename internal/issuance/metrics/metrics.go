package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	CertificatesIssued  prometheus.Counter
	CertificatesRevoked prometheus.Counter
	CodeCollisions      prometheus.Counter
	RecordsSynthesized  prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		CertificatesIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_certificates_issued_total",
			Help: "Total number of certificates issued",
		}),
		CertificatesRevoked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_certificates_revoked_total",
			Help: "Total number of certificates revoked",
		}),
		CodeCollisions: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_certificate_code_collisions_total",
			Help: "Total number of certificate code collisions retried",
		}),
		RecordsSynthesized: promauto.NewCounter(prometheus.CounterOpts{
			Name: "cpdtrack_records_synthesized_total",
			Help: "Total number of records synthesized by issuance pathways",
		}),
	}
}

func (m *Metrics) IncrementIssued() {
	if m != nil {
		m.CertificatesIssued.Inc()
	}
}

func (m *Metrics) IncrementRevoked() {
	if m != nil {
		m.CertificatesRevoked.Inc()
	}
}

func (m *Metrics) IncrementCodeCollisions() {
	if m != nil {
		m.CodeCollisions.Inc()
	}
}

func (m *Metrics) IncrementSynthesized() {
	if m != nil {
		m.RecordsSynthesized.Inc()
	}
}
