package models

import (
	"time"

	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// UserCredential is a user's holding of one credential.
//
// Invariants:
//   - Jurisdiction is a non-empty country code (the holder's regulator)
//   - OnboardingHours are self-reported hours completed before joining the
//     platform; they count toward the total requirement only
//   - Exactly one holding per user has IsPrimary == true
//
// Deleting a holding cascades its allocations; the allocation ledger exposes
// the cascade so no orphaned allocation row stays visible.
type UserCredential struct {
	ID           id.UserCredentialID `json:"id"`
	UserID       id.UserID           `json:"user_id"`
	CredentialID id.CredentialID     `json:"credential_id"`

	Jurisdiction    string `json:"jurisdiction"`
	StateOrProvince string `json:"state_or_province,omitempty"`

	RenewalDeadline *time.Time `json:"renewal_deadline,omitempty"`
	OnboardingHours float64    `json:"onboarding_hours"`
	IsPrimary       bool       `json:"is_primary"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewUserCredential(ucID id.UserCredentialID, userID id.UserID, credentialID id.CredentialID, jurisdiction string, now time.Time) (*UserCredential, error) {
	if jurisdiction == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "jurisdiction is required")
	}
	if userID.IsNil() || credentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "user and credential are required")
	}
	return &UserCredential{
		ID:           ucID,
		UserID:       userID,
		CredentialID: credentialID,
		Jurisdiction: jurisdiction,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}
