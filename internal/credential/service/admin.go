package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// CreateRulePack supersedes the credential's current rules with a new
// version: the open pack (if any) is closed at effectiveFrom and the new
// pack becomes open-ended. Historical packs are never rewritten.
func (s *Service) CreateRulePack(ctx context.Context, credentialID id.CredentialID, rules models.Requirements, effectiveFrom time.Time, changelog string) (*models.RulePack, error) {
	if credentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "credential_id is required")
	}
	if rules.TotalHours < 0 || rules.EthicsHours < 0 || rules.StructuredHours < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "requirement hours must not be negative")
	}

	if _, err := s.credentials.FindByID(ctx, credentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}

	version := 1
	open, err := s.packs.FindOpen(ctx, credentialID)
	switch {
	case err == nil:
		if !effectiveFrom.After(open.EffectiveFrom) {
			return nil, dErrors.New(dErrors.CodeValidation, "effective_from must be after the current pack's effective_from")
		}
		version = open.Version + 1
	case errors.Is(err, sentinel.ErrNotFound):
		// First explicit pack for this credential.
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load open rule pack")
	}

	next := &models.RulePack{
		ID:            id.RulePackID(uuid.New()),
		CredentialID:  credentialID,
		Version:       version,
		Rules:         rules,
		EffectiveFrom: effectiveFrom,
		Changelog:     changelog,
		CreatedAt:     requestcontext.Now(ctx),
	}

	if err := s.packs.Supersede(ctx, next); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "rule pack version already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create rule pack")
	}

	// Cached resolutions for this credential are now stale.
	if s.cache != nil {
		s.cache.Invalidate(ctx, credentialID)
	}
	s.metrics.IncrementPacksCreated()

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			Subject:   credentialID.String(),
			Action:    string(audit.EventRulePackCreated),
			Detail:    changelog,
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "rule pack created",
		"credential_id", credentialID,
		"version", next.Version,
		"effective_from", effectiveFrom,
	)
	return next, nil
}
