package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	credmodels "cpdtrack/internal/credential/models"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
)

// HoldingStore reads user credential holdings.
type HoldingStore interface {
	FindByID(ctx context.Context, ucID id.UserCredentialID) (*credmodels.UserCredential, error)
	CountByUser(ctx context.Context, userID id.UserID) (int, error)
}

// RulePackResolver resolves the rule set in force for a credential at a date.
type RulePackResolver interface {
	Resolve(ctx context.Context, credentialID id.CredentialID, asOf time.Time) (*credmodels.RulePack, error)
}

// RecordStore reads completed records.
type RecordStore interface {
	ListCompletedByUser(ctx context.Context, userID id.UserID) ([]*recmodels.CpdRecord, error)
	ListByIDs(ctx context.Context, recordIDs []id.RecordID) ([]*recmodels.CpdRecord, error)
}

// AllocationStore reads the hour splits assigned to a holding.
type AllocationStore interface {
	ListByCredential(ctx context.Context, ucID id.UserCredentialID) ([]recmodels.Allocation, error)
}

// Service aggregates rule requirements, completed hours and deadlines into
// per-holding compliance figures.
type Service struct {
	holdings    HoldingStore
	resolver    RulePackResolver
	records     RecordStore
	allocations AllocationStore
	logger      *slog.Logger
	tracer      trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func New(holdings HoldingStore, resolver RulePackResolver, records RecordStore, allocations AllocationStore, opts ...Option) (*Service, error) {
	if holdings == nil {
		return nil, fmt.Errorf("holding store is required")
	}
	if resolver == nil {
		return nil, fmt.Errorf("rule pack resolver is required")
	}
	if records == nil {
		return nil, fmt.Errorf("record store is required")
	}
	if allocations == nil {
		return nil, fmt.Errorf("allocation store is required")
	}
	s := &Service{
		holdings:    holdings,
		resolver:    resolver,
		records:     records,
		allocations: allocations,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		tracer:      otel.Tracer("cpdtrack/progress"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
