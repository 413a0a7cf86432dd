package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	credmetrics "cpdtrack/internal/credential/metrics"
	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	audit "cpdtrack/pkg/platform/audit"
)

// CredentialStore provides credential reference data.
type CredentialStore interface {
	Create(ctx context.Context, c *models.Credential) error
	FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error)
}

// RulePackStore provides versioned rule packs. Supersede must atomically
// close the open pack and insert the successor.
type RulePackStore interface {
	ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.RulePack, error)
	FindOpen(ctx context.Context, credentialID id.CredentialID) (*models.RulePack, error)
	Supersede(ctx context.Context, next *models.RulePack) error
}

// Cache holds resolved packs keyed by (credential, date bucket). A nil Cache
// disables caching entirely; resolution then always reads the store, which is
// the default because administrators may change rules at any time.
type Cache interface {
	Get(ctx context.Context, credentialID id.CredentialID, day time.Time) (*models.RulePack, bool)
	Set(ctx context.Context, credentialID id.CredentialID, day time.Time, pack *models.RulePack)
	Invalidate(ctx context.Context, credentialID id.CredentialID)
}

// AuditPublisher records compliance-relevant administrative actions.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service resolves the rule set in force for a credential at a date and
// administers rule pack versions.
type Service struct {
	credentials CredentialStore
	packs       RulePackStore
	holdings    HoldingStore
	allocations AllocationCascade
	cache       Cache
	logger      *slog.Logger
	metrics     *credmetrics.Metrics
	audit       AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *credmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithCache(c Cache) Option {
	return func(s *Service) { s.cache = c }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

// WithHoldingStore enables the holding management operations.
func WithHoldingStore(h HoldingStore) Option {
	return func(s *Service) { s.holdings = h }
}

// WithAllocationCascade wires the ledger cascade invoked on holding removal.
func WithAllocationCascade(a AllocationCascade) Option {
	return func(s *Service) { s.allocations = a }
}

func New(credentials CredentialStore, packs RulePackStore, opts ...Option) (*Service, error) {
	if credentials == nil {
		return nil, fmt.Errorf("credential store is required")
	}
	if packs == nil {
		return nil, fmt.Errorf("rule pack store is required")
	}
	s := &Service{
		credentials: credentials,
		packs:       packs,
		logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}
