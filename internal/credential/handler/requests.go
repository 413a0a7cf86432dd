package handler

import (
	"strings"
	"time"

	"cpdtrack/internal/credential/models"
	"cpdtrack/internal/credential/service"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// CreateRulePackRequest is the HTTP request body for POST
// /credentials/{credentialID}/rule-packs.
type CreateRulePackRequest struct {
	TotalHours      float64 `json:"total_hours"`
	EthicsHours     float64 `json:"ethics_hours"`
	StructuredHours float64 `json:"structured_hours"`
	CycleYears      int     `json:"cycle_years"`
	EffectiveFrom   string  `json:"effective_from"`
	Changelog       string  `json:"changelog"`

	parsedEffectiveFrom time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRulePackRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if r.TotalHours < 0 || r.EthicsHours < 0 || r.StructuredHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "requirement hours must not be negative")
	}
	r.EffectiveFrom = strings.TrimSpace(r.EffectiveFrom)
	if r.EffectiveFrom == "" {
		return dErrors.New(dErrors.CodeValidation, "effective_from is required")
	}
	parsed, err := time.Parse("2006-01-02", r.EffectiveFrom)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "effective_from must be a YYYY-MM-DD date")
	}
	r.parsedEffectiveFrom = parsed
	return nil
}

func (r *CreateRulePackRequest) Requirements() models.Requirements {
	return models.Requirements{
		TotalHours:      r.TotalHours,
		EthicsHours:     r.EthicsHours,
		StructuredHours: r.StructuredHours,
		CycleYears:      r.CycleYears,
	}
}

func (r *CreateRulePackRequest) ParsedEffectiveFrom() time.Time {
	return r.parsedEffectiveFrom
}

// EnrollRequest is the HTTP request body for POST /me/credentials.
type EnrollRequest struct {
	CredentialID    string  `json:"credential_id"`
	Jurisdiction    string  `json:"jurisdiction"`
	StateOrProvince string  `json:"state_or_province"`
	RenewalDeadline string  `json:"renewal_deadline"`
	OnboardingHours float64 `json:"onboarding_hours"`
	IsPrimary       bool    `json:"is_primary"`

	parsedCredentialID id.CredentialID
	parsedDeadline     *time.Time
}

// Validate validates and parses the request.
func (r *EnrollRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	credentialID, err := id.ParseCredentialID(r.CredentialID)
	if err != nil {
		return err
	}
	r.parsedCredentialID = credentialID

	r.Jurisdiction = strings.ToUpper(strings.TrimSpace(r.Jurisdiction))
	if r.Jurisdiction == "" {
		return dErrors.New(dErrors.CodeValidation, "jurisdiction is required")
	}
	if r.OnboardingHours < 0 {
		return dErrors.New(dErrors.CodeValidation, "onboarding_hours must not be negative")
	}
	if r.RenewalDeadline != "" {
		parsed, err := time.Parse("2006-01-02", r.RenewalDeadline)
		if err != nil {
			return dErrors.New(dErrors.CodeValidation, "renewal_deadline must be a YYYY-MM-DD date")
		}
		r.parsedDeadline = &parsed
	}
	return nil
}

func (r *EnrollRequest) Input() service.EnrollInput {
	return service.EnrollInput{
		CredentialID:    r.parsedCredentialID,
		Jurisdiction:    r.Jurisdiction,
		StateOrProvince: strings.TrimSpace(r.StateOrProvince),
		RenewalDeadline: r.parsedDeadline,
		OnboardingHours: r.OnboardingHours,
		IsPrimary:       r.IsPrimary,
	}
}
