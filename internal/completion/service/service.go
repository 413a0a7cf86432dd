package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"cpdtrack/internal/completion/ports"
	"cpdtrack/internal/completion/rules"
	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// RecordSource reads records for evaluation.
type RecordSource interface {
	FindByID(ctx context.Context, recordID id.RecordID) (*models.CpdRecord, error)
}

// AuditPublisher records evaluation outcomes.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service evaluates a record's completion rules with AND semantics.
type Service struct {
	records    RecordSource
	ruleStore  ports.RuleStore
	quizzes    ports.QuizSource
	evidence   ports.EvidenceCounter
	strategies map[models.RuleType]rules.Strategy
	logger     *slog.Logger
	audit      AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.audit = p }
}

func New(records RecordSource, ruleStore ports.RuleStore, quizzes ports.QuizSource, evidence ports.EvidenceCounter, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, fmt.Errorf("record source is required")
	}
	if ruleStore == nil {
		return nil, fmt.Errorf("rule store is required")
	}
	if quizzes == nil {
		return nil, fmt.Errorf("quiz source is required")
	}
	if evidence == nil {
		return nil, fmt.Errorf("evidence counter is required")
	}
	s := &Service{
		records:    records,
		ruleStore:  ruleStore,
		quizzes:    quizzes,
		evidence:   evidence,
		strategies: rules.Table(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Evaluate runs every active rule attached to the record and ANDs the
// results. Zero active rules means the record is trivially complete. An
// unknown rule type counts as failed so a misconfigured rule can never
// unlock a certificate.
func (s *Service) Evaluate(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.Evaluation, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	if record.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}

	attached, err := s.ruleStore.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load completion rules")
	}

	in := rules.Input{
		Record:   record,
		UserID:   userID,
		Quizzes:  s.quizzes,
		Evidence: s.evidence,
	}

	evaluation := &models.Evaluation{AllPassed: true}
	for _, rule := range attached {
		if !rule.Active {
			continue
		}
		result, err := s.evaluateRule(ctx, in, rule)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to evaluate completion rule")
		}
		evaluation.Rules = append(evaluation.Rules, result)
		if !result.Passed {
			evaluation.AllPassed = false
		}
	}
	evaluation.EligibleForCertificate = evaluation.AllPassed

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   recordID.String(),
			Action:    string(audit.EventCompletionEvaluated),
			Detail:    fmt.Sprintf("rules=%d all_passed=%t", len(evaluation.Rules), evaluation.AllPassed),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.DebugContext(ctx, "completion evaluated",
		"record_id", recordID,
		"rules", len(evaluation.Rules),
		"all_passed", evaluation.AllPassed,
	)
	return evaluation, nil
}

func (s *Service) evaluateRule(ctx context.Context, in rules.Input, rule models.CompletionRule) (models.RuleResult, error) {
	strategy, ok := s.strategies[rule.Type]
	if !ok {
		s.logger.WarnContext(ctx, "unknown completion rule type", "rule_type", rule.Type, "rule_id", rule.ID)
		return models.RuleResult{
			RuleType: rule.Type,
			Passed:   false,
			Detail:   "unknown rule type",
		}, nil
	}
	passed, detail, err := strategy(ctx, in, rule.Config)
	if err != nil {
		return models.RuleResult{}, err
	}
	return models.RuleResult{RuleType: rule.Type, Passed: passed, Detail: detail}, nil
}
