package service

import (
	"context"
	"errors"
	"time"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/sentinel"
)

// Resolve returns the single rule pack applicable to the credential at the
// as-of date: among packs with EffectiveFrom <= asOf, the one with the latest
// EffectiveFrom whose EffectiveTo is nil or >= asOf. When no pack covers the
// date, the credential's base requirements apply as the implicit version-0
// pack. NotFound only when the credential itself does not exist.
func (s *Service) Resolve(ctx context.Context, credentialID id.CredentialID, asOf time.Time) (*models.RulePack, error) {
	if credentialID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "credential_id is required")
	}

	if s.cache != nil {
		if pack, ok := s.cache.Get(ctx, credentialID, asOf); ok {
			s.metrics.IncrementCacheHits()
			return pack, nil
		}
	}

	cred, err := s.credentials.FindByID(ctx, credentialID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "credential not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load credential")
	}

	packs, err := s.packs.ListByCredential(ctx, credentialID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load rule packs")
	}

	pack := selectPack(packs, asOf)
	if pack == nil {
		pack = models.ImplicitBasePack(cred)
	}

	s.metrics.IncrementResolutions()
	if s.cache != nil {
		s.cache.Set(ctx, credentialID, asOf, pack)
	}
	return pack, nil
}

// selectPack scans packs sorted by EffectiveFrom ascending and keeps the last
// in-effect candidate, so the latest EffectiveFrom wins. Identical
// EffectiveFrom dates should not occur under the version invariant; the
// higher version wins if they do, which the sort order already guarantees.
func selectPack(packs []*models.RulePack, asOf time.Time) *models.RulePack {
	var selected *models.RulePack
	for _, p := range packs {
		if !p.InEffect(asOf) {
			continue
		}
		if selected == nil ||
			p.EffectiveFrom.After(selected.EffectiveFrom) ||
			(p.EffectiveFrom.Equal(selected.EffectiveFrom) && p.Version > selected.Version) {
			selected = p
		}
	}
	return selected
}
