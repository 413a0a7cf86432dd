package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	credmodels "cpdtrack/internal/credential/models"
	recmetrics "cpdtrack/internal/records/metrics"
	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/tx"
)

// RecordStore persists CPD records.
type RecordStore interface {
	Create(ctx context.Context, r *models.CpdRecord) error
	Update(ctx context.Context, r *models.CpdRecord) error
	FindByID(ctx context.Context, recordID id.RecordID) (*models.CpdRecord, error)
	ListCompletedByUser(ctx context.Context, userID id.UserID) ([]*models.CpdRecord, error)
	Delete(ctx context.Context, recordID id.RecordID) error
}

// AllocationStore persists record-to-credential hour splits. ReplaceForRecord
// must swap the full set atomically.
type AllocationStore interface {
	ReplaceForRecord(ctx context.Context, recordID id.RecordID, allocations []models.Allocation) error
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]models.Allocation, error)
	DeleteByRecord(ctx context.Context, recordID id.RecordID) error
}

// HoldingStore reads user credential holdings for ownership checks.
type HoldingStore interface {
	FindByID(ctx context.Context, ucID id.UserCredentialID) (*credmodels.UserCredential, error)
}

// AuditPublisher records compliance-relevant record and allocation actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns the CPD record lifecycle and the allocation ledger.
type Service struct {
	records     RecordStore
	allocations AllocationStore
	holdings    HoldingStore
	runner      tx.Runner
	logger      *slog.Logger
	metrics     *recmetrics.Metrics
	audit       AuditPublisher

	locks recordLocks
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *recmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) { s.runner = r }
}

func New(records RecordStore, allocations AllocationStore, holdings HoldingStore, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if allocations == nil {
		return nil, fmt.Errorf("allocation store is required")
	}
	if holdings == nil {
		return nil, fmt.Errorf("holding store is required")
	}
	s := &Service{
		records:     records,
		allocations: allocations,
		holdings:    holdings,
		runner:      tx.NopRunner{},
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
