package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// HoldingStore persists user credential holdings. SetPrimary must leave the
// named holding as the user's only primary.
type HoldingStore interface {
	Create(ctx context.Context, uc *models.UserCredential) error
	FindByID(ctx context.Context, ucID id.UserCredentialID) (*models.UserCredential, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.UserCredential, error)
	SetPrimary(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) error
	Delete(ctx context.Context, ucID id.UserCredentialID) error
}

// AllocationCascade removes the allocation rows referencing a dropped holding.
// The records domain owns the ledger; this is the slice of it holding removal
// needs so no orphaned allocation row stays visible afterwards.
type AllocationCascade interface {
	DeleteByCredential(ctx context.Context, ucID id.UserCredentialID) error
}

// EnrollInput carries the user-supplied fields of a new holding.
type EnrollInput struct {
	CredentialID    id.CredentialID
	Jurisdiction    string
	StateOrProvince string
	RenewalDeadline *time.Time
	OnboardingHours float64
	IsPrimary       bool
}

// Enroll registers a credential holding for the user.
func (s *Service) Enroll(ctx context.Context, userID id.UserID, in EnrollInput) (*models.UserCredential, error) {
	if s.holdings == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "holding store is not configured")
	}
	if in.OnboardingHours < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "onboarding hours must not be negative")
	}
	if _, err := s.credentials.FindByID(ctx, in.CredentialID); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}

	existing, err := s.holdings.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holdings")
	}

	uc, err := models.NewUserCredential(id.UserCredentialID(uuid.New()), userID, in.CredentialID, in.Jurisdiction, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	uc.StateOrProvince = in.StateOrProvince
	uc.RenewalDeadline = in.RenewalDeadline
	uc.OnboardingHours = in.OnboardingHours
	// The first holding is always primary; a later primary enrollment demotes
	// the current one so exactly one primary exists per user.
	uc.IsPrimary = in.IsPrimary || len(existing) == 0

	if err := s.holdings.Create(ctx, uc); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create holding")
	}
	if uc.IsPrimary && len(existing) > 0 {
		if err := s.holdings.SetPrimary(ctx, userID, uc.ID); err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to set primary holding")
		}
	}
	s.logger.InfoContext(ctx, "credential holding enrolled",
		"user_credential_id", uc.ID,
		"credential_id", in.CredentialID,
		"jurisdiction", in.Jurisdiction,
		"is_primary", uc.IsPrimary,
	)
	return uc, nil
}

// ListHoldings returns the user's credential holdings.
func (s *Service) ListHoldings(ctx context.Context, userID id.UserID) ([]*models.UserCredential, error) {
	if s.holdings == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "holding store is not configured")
	}
	holdings, err := s.holdings.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holdings")
	}
	return holdings, nil
}

// RemoveHolding drops a holding and cascades its allocation rows through the
// ledger. If the removed holding was primary, the oldest remaining holding is
// promoted so the user keeps exactly one primary.
func (s *Service) RemoveHolding(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) error {
	if s.holdings == nil {
		return dErrors.New(dErrors.CodeInternal, "holding store is not configured")
	}
	holding, err := s.holdings.FindByID(ctx, ucID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "user credential not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load holding")
	}
	if holding.UserID != userID {
		return dErrors.New(dErrors.CodeNotFound, "user credential not found")
	}
	if err := s.holdings.Delete(ctx, ucID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete holding")
	}
	if s.allocations != nil {
		if err := s.allocations.DeleteByCredential(ctx, ucID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to cascade allocations")
		}
	}
	if holding.IsPrimary {
		if err := s.promoteOldest(ctx, userID); err != nil {
			return err
		}
	}
	s.logger.InfoContext(ctx, "credential holding removed", "user_credential_id", ucID)
	return nil
}

// promoteOldest makes the user's oldest remaining holding primary, if any.
func (s *Service) promoteOldest(ctx context.Context, userID id.UserID) error {
	remaining, err := s.holdings.ListByUser(ctx, userID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list holdings")
	}
	if len(remaining) == 0 {
		return nil
	}
	oldest := remaining[0]
	for _, uc := range remaining[1:] {
		if uc.CreatedAt.Before(oldest.CreatedAt) {
			oldest = uc
		}
	}
	if err := s.holdings.SetPrimary(ctx, userID, oldest.ID); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to set primary holding")
	}
	return nil
}
