package rulepack

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type RulePackStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *RulePackStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestRulePackStoreSuite(t *testing.T) {
	suite.Run(t, new(RulePackStoreSuite))
}

func (s *RulePackStoreSuite) newPack(credID id.CredentialID, version int, from time.Time) *models.RulePack {
	return &models.RulePack{
		ID:            id.RulePackID(uuid.New()),
		CredentialID:  credID,
		Version:       version,
		Rules:         models.Requirements{TotalHours: 30, CycleYears: 2},
		EffectiveFrom: from,
		CreatedAt:     from,
	}
}

// TestSupersede verifies the atomic close-and-insert semantics.
func (s *RulePackStoreSuite) TestSupersede() {
	credID := id.CredentialID(uuid.New())
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	jul := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)

	s.Run("first pack stays open", func() {
		s.Require().NoError(s.store.Supersede(s.ctx, s.newPack(credID, 1, jan)))

		open, err := s.store.FindOpen(s.ctx, credID)
		s.Require().NoError(err)
		s.Equal(1, open.Version)
	})

	s.Run("successor closes the open pack at its start", func() {
		s.Require().NoError(s.store.Supersede(s.ctx, s.newPack(credID, 2, jul)))

		packs, err := s.store.ListByCredential(s.ctx, credID)
		s.Require().NoError(err)
		s.Require().Len(packs, 2)
		s.Require().NotNil(packs[0].EffectiveTo)
		s.True(packs[0].EffectiveTo.Equal(jul))
		s.Nil(packs[1].EffectiveTo)
	})

	s.Run("duplicate version is a conflict and leaves the store untouched", func() {
		err := s.store.Supersede(s.ctx, s.newPack(credID, 2, jul.AddDate(0, 1, 0)))
		s.Require().ErrorIs(err, sentinel.ErrConflict)

		packs, err := s.store.ListByCredential(s.ctx, credID)
		s.Require().NoError(err)
		s.Len(packs, 2)
	})
}

// TestFindOpen verifies the open-pack lookup.
func (s *RulePackStoreSuite) TestFindOpen() {
	s.Run("no packs reads as ErrNotFound", func() {
		_, err := s.store.FindOpen(s.ctx, id.CredentialID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})
}

// TestListByCredential verifies returned packs are sorted and isolated.
func (s *RulePackStoreSuite) TestListByCredential() {
	credID := id.CredentialID(uuid.New())
	jan := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	s.Require().NoError(s.store.Supersede(s.ctx, s.newPack(credID, 1, jan)))

	packs, err := s.store.ListByCredential(s.ctx, credID)
	s.Require().NoError(err)
	s.Require().Len(packs, 1)

	// Mutating the returned pack must not leak into the store.
	packs[0].Version = 99
	again, err := s.store.ListByCredential(s.ctx, credID)
	s.Require().NoError(err)
	s.Equal(1, again[0].Version)
}
