package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"cpdtrack/internal/completion/ports"
	issmetrics "cpdtrack/internal/issuance/metrics"
	"cpdtrack/internal/issuance/models"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/tx"
)

//go:generate mockgen -source=service.go -destination=mocks/service_mocks.go -package=mocks

// CertificateStore persists certificates. Create must enforce uniqueness on
// both the certificate code and the linked record.
type CertificateStore interface {
	Create(ctx context.Context, c *models.Certificate) error
	Update(ctx context.Context, c *models.Certificate) error
	FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error)
	FindByRecord(ctx context.Context, recordID id.RecordID) (*models.Certificate, error)
	FindByCode(ctx context.Context, code string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Certificate, error)
}

// Evaluator gates issuance on the record's completion rules.
type Evaluator interface {
	Evaluate(ctx context.Context, userID id.UserID, recordID id.RecordID) (*recmodels.Evaluation, error)
}

// RecordStore is the slice of record persistence issuance needs for the
// synthesized-record pathways.
type RecordStore interface {
	Create(ctx context.Context, r *recmodels.CpdRecord) error
	FindByID(ctx context.Context, recordID id.RecordID) (*recmodels.CpdRecord, error)
}

// AuditPublisher records issuance and revocation events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service issues certificates against completed, rule-satisfied records.
type Service struct {
	certificates CertificateStore
	evaluator    Evaluator
	records      RecordStore
	quizzes      ports.QuizSource
	runner       tx.Runner
	logger       *slog.Logger
	metrics      *issmetrics.Metrics
	audit        AuditPublisher

	// verificationBaseURL prefixes the public verification link embedded in
	// each certificate.
	verificationBaseURL string
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *issmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func WithQuizSource(q ports.QuizSource) Option {
	return func(s *Service) { s.quizzes = q }
}

func WithVerificationBaseURL(u string) Option {
	return func(s *Service) { s.verificationBaseURL = u }
}

func New(certificates CertificateStore, evaluator Evaluator, records RecordStore, opts ...Option) (*Service, error) {
	if certificates == nil {
		return nil, fmt.Errorf("certificate store is required")
	}
	if evaluator == nil {
		return nil, fmt.Errorf("evaluator is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	s := &Service{
		certificates:        certificates,
		evaluator:           evaluator,
		records:             records,
		runner:              tx.NopRunner{},
		logger:              slog.New(slog.NewTextHandler(io.Discard, nil)),
		verificationBaseURL: "https://verify.cpdtrack.example/certificates",
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
