package handler

import (
	"time"

	"cpdtrack/internal/credential/models"
)

// RulePackResponse is the HTTP shape of a resolved or created rule pack.
type RulePackResponse struct {
	ID              string     `json:"id"`
	CredentialID    string     `json:"credential_id"`
	Version         int        `json:"version"`
	TotalHours      float64    `json:"total_hours"`
	EthicsHours     float64    `json:"ethics_hours"`
	StructuredHours float64    `json:"structured_hours"`
	CycleYears      int        `json:"cycle_years"`
	EffectiveFrom   time.Time  `json:"effective_from"`
	EffectiveTo     *time.Time `json:"effective_to,omitempty"`
	Changelog       string     `json:"changelog,omitempty"`
}

// FromRulePack converts a domain RulePack to an HTTP response.
func FromRulePack(pack *models.RulePack) RulePackResponse {
	return RulePackResponse{
		ID:              pack.ID.String(),
		CredentialID:    pack.CredentialID.String(),
		Version:         pack.Version,
		TotalHours:      pack.Rules.TotalHours,
		EthicsHours:     pack.Rules.EthicsHours,
		StructuredHours: pack.Rules.StructuredHours,
		CycleYears:      pack.Rules.CycleYears,
		EffectiveFrom:   pack.EffectiveFrom,
		EffectiveTo:     pack.EffectiveTo,
		Changelog:       pack.Changelog,
	}
}

// HoldingResponse is the HTTP shape of a user credential holding.
type HoldingResponse struct {
	ID              string     `json:"id"`
	CredentialID    string     `json:"credential_id"`
	Jurisdiction    string     `json:"jurisdiction"`
	StateOrProvince string     `json:"state_or_province,omitempty"`
	RenewalDeadline *time.Time `json:"renewal_deadline,omitempty"`
	OnboardingHours float64    `json:"onboarding_hours"`
	IsPrimary       bool       `json:"is_primary"`
	CreatedAt       time.Time  `json:"created_at"`
}

// FromHolding converts a domain UserCredential to an HTTP response.
func FromHolding(uc *models.UserCredential) HoldingResponse {
	return HoldingResponse{
		ID:              uc.ID.String(),
		CredentialID:    uc.CredentialID.String(),
		Jurisdiction:    uc.Jurisdiction,
		StateOrProvince: uc.StateOrProvince,
		RenewalDeadline: uc.RenewalDeadline,
		OnboardingHours: uc.OnboardingHours,
		IsPrimary:       uc.IsPrimary,
		CreatedAt:       uc.CreatedAt,
	}
}
