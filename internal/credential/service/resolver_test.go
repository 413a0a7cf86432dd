package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/credential/models"
	credentialStore "cpdtrack/internal/credential/store/credential"
	rulepackStore "cpdtrack/internal/credential/store/rulepack"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// =============================================================================
// Rule Pack Resolver Test Suite
// =============================================================================
// Justification for unit tests: temporal resolution is the correctness core of
// the engine. Back-dated records, boundary dates, and version ties must pick a
// deterministic pack, and regressions here silently change every compliance
// number downstream.

type ResolverSuite struct {
	suite.Suite
	credentials *credentialStore.InMemory
	packs       *rulepackStore.InMemory
	service     *Service
}

func TestResolverSuite(t *testing.T) {
	suite.Run(t, new(ResolverSuite))
}

func (s *ResolverSuite) SetupTest() {
	s.credentials = credentialStore.NewInMemory()
	s.packs = rulepackStore.NewInMemory()

	var err error
	s.service, err = New(s.credentials, s.packs)
	s.Require().NoError(err)
}

func (s *ResolverSuite) newCredential(base models.Requirements) *models.Credential {
	cred := &models.Credential{
		ID:               id.CredentialID(uuid.New()),
		Name:             "Certified Financial Planner",
		IssuingBody:      "CFP Board",
		Region:           "US",
		Vertical:         "finance",
		BaseRequirements: base,
		CreatedAt:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:        time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC),
	}
	s.Require().NoError(s.credentials.Create(context.Background(), cred))
	return cred
}

func (s *ResolverSuite) addPack(credentialID id.CredentialID, version int, rules models.Requirements, from time.Time) *models.RulePack {
	pack := &models.RulePack{
		ID:            id.RulePackID(uuid.New()),
		CredentialID:  credentialID,
		Version:       version,
		Rules:         rules,
		EffectiveFrom: from,
		CreatedAt:     from,
	}
	s.Require().NoError(s.packs.Supersede(context.Background(), pack))
	return pack
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// =============================================================================
// Constructor Tests
// =============================================================================

func (s *ResolverSuite) TestNew() {
	s.Run("nil credential store returns error", func() {
		_, err := New(nil, s.packs)
		s.Error(err)
		s.Contains(err.Error(), "credential store is required")
	})

	s.Run("nil rule pack store returns error", func() {
		_, err := New(s.credentials, nil)
		s.Error(err)
		s.Contains(err.Error(), "rule pack store is required")
	})
}

// =============================================================================
// Resolve Tests
// =============================================================================

func (s *ResolverSuite) TestResolve() {
	ctx := context.Background()

	s.Run("nil credential_id returns bad request", func() {
		_, err := s.service.Resolve(ctx, id.CredentialID{}, date(2025, 6, 1))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
	})

	s.Run("unknown credential returns not found", func() {
		_, err := s.service.Resolve(ctx, id.CredentialID(uuid.New()), date(2025, 6, 1))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("no explicit packs falls back to implicit base pack", func() {
		base := models.Requirements{TotalHours: 30, EthicsHours: 2, CycleYears: 2}
		cred := s.newCredential(base)

		pack, err := s.service.Resolve(ctx, cred.ID, date(2025, 6, 1))
		s.NoError(err)
		s.Equal(0, pack.Version)
		s.Equal(base, pack.Rules)
	})

	s.Run("date before first explicit pack falls back to implicit base pack", func() {
		base := models.Requirements{TotalHours: 30, CycleYears: 2}
		cred := s.newCredential(base)
		s.addPack(cred.ID, 1, models.Requirements{TotalHours: 40, CycleYears: 2}, date(2024, 1, 1))

		pack, err := s.service.Resolve(ctx, cred.ID, date(2023, 6, 1))
		s.NoError(err)
		s.Equal(0, pack.Version)
		s.Equal(base, pack.Rules)
	})

	s.Run("back-dated resolution picks the pack in effect at the as-of date", func() {
		cred := s.newCredential(models.Requirements{TotalHours: 30, CycleYears: 2})
		s.addPack(cred.ID, 1, models.Requirements{TotalHours: 40, CycleYears: 2}, date(2024, 1, 1))
		s.addPack(cred.ID, 2, models.Requirements{TotalHours: 50, CycleYears: 2}, date(2025, 1, 1))

		pack, err := s.service.Resolve(ctx, cred.ID, date(2024, 6, 1))
		s.NoError(err)
		s.Equal(1, pack.Version)
		s.InDelta(40.0, pack.Rules.TotalHours, 1e-9)

		pack, err = s.service.Resolve(ctx, cred.ID, date(2025, 6, 1))
		s.NoError(err)
		s.Equal(2, pack.Version)
		s.InDelta(50.0, pack.Rules.TotalHours, 1e-9)
	})

	s.Run("boundary date resolves to the newly effective pack", func() {
		cred := s.newCredential(models.Requirements{TotalHours: 30, CycleYears: 2})
		s.addPack(cred.ID, 1, models.Requirements{TotalHours: 40, CycleYears: 2}, date(2024, 1, 1))
		s.addPack(cred.ID, 2, models.Requirements{TotalHours: 50, CycleYears: 2}, date(2025, 1, 1))

		pack, err := s.service.Resolve(ctx, cred.ID, date(2025, 1, 1))
		s.NoError(err)
		s.Equal(2, pack.Version)
	})

	s.Run("equal effective_from resolves to the higher version", func() {
		cred := s.newCredential(models.Requirements{TotalHours: 30, CycleYears: 2})
		from := date(2024, 1, 1)
		s.addPack(cred.ID, 1, models.Requirements{TotalHours: 40, CycleYears: 2}, from)
		s.addPack(cred.ID, 2, models.Requirements{TotalHours: 45, CycleYears: 2}, from)

		pack, err := s.service.Resolve(ctx, cred.ID, from)
		s.NoError(err)
		s.Equal(2, pack.Version)
	})
}
