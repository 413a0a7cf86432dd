package models

import (
	"time"

	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// RulePack is one versioned, date-scoped rule set of a credential.
//
// Invariants:
//   - Version is unique per credential and strictly increasing
//   - At most one pack per credential has EffectiveTo == nil (the open pack)
//   - Packs are never deleted; superseding closes the open pack by setting
//     its EffectiveTo to the successor's EffectiveFrom
//
// Versioning is modeled as explicit half-open intervals rather than a mutable
// "current" pointer so back-dated resolution (audits, late-logged records)
// never depends on present state.
type RulePack struct {
	ID           id.RulePackID   `json:"id"`
	CredentialID id.CredentialID `json:"credential_id"`
	Version      int             `json:"version"`

	Rules Requirements `json:"rules"`

	EffectiveFrom time.Time  `json:"effective_from"`
	EffectiveTo   *time.Time `json:"effective_to,omitempty"`
	Changelog     string     `json:"changelog,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// InEffect reports whether the pack covers the as-of date: EffectiveFrom has
// been reached and EffectiveTo, if set, has not passed.
func (p *RulePack) InEffect(asOf time.Time) bool {
	if p.EffectiveFrom.After(asOf) {
		return false
	}
	return p.EffectiveTo == nil || !p.EffectiveTo.Before(asOf)
}

// IsOpen reports whether this is the credential's current open-ended pack.
func (p *RulePack) IsOpen() bool { return p.EffectiveTo == nil }

// Close ends the pack's validity at the successor's start date.
func (p *RulePack) Close(at time.Time) error {
	if p.EffectiveTo != nil {
		return dErrors.New(dErrors.CodeInvariantViolation, "rule pack is already closed")
	}
	if at.Before(p.EffectiveFrom) {
		return dErrors.New(dErrors.CodeValidation, "rule pack cannot close before it takes effect")
	}
	p.EffectiveTo = &at
	return nil
}

// ImplicitBasePack wraps a credential's base requirements as the version-0
// pack with no expiry. Used when no explicit pack covers the as-of date.
func ImplicitBasePack(c *Credential) *RulePack {
	return &RulePack{
		CredentialID: c.ID,
		Version:      0,
		Rules:        c.BaseRequirements,
		CreatedAt:    c.CreatedAt,
	}
}
