package rulepack

import (
	"context"
	"sort"
	"sync"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu    sync.RWMutex
	packs map[id.CredentialID][]*models.RulePack
}

func NewInMemory() *InMemory {
	return &InMemory{packs: make(map[id.CredentialID][]*models.RulePack)}
}

// ListByCredential returns the credential's packs sorted by EffectiveFrom
// ascending so the resolver can scan or binary-search.
func (s *InMemory) ListByCredential(_ context.Context, credentialID id.CredentialID) ([]*models.RulePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	packs := s.packs[credentialID]
	out := make([]*models.RulePack, len(packs))
	for i, p := range packs {
		clone := *p
		out[i] = &clone
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].EffectiveFrom.Equal(out[j].EffectiveFrom) {
			return out[i].Version < out[j].Version
		}
		return out[i].EffectiveFrom.Before(out[j].EffectiveFrom)
	})
	return out, nil
}

func (s *InMemory) FindOpen(_ context.Context, credentialID id.CredentialID) (*models.RulePack, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.packs[credentialID] {
		if p.IsOpen() {
			clone := *p
			return &clone, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// Supersede atomically closes the current open pack (if any) at the
// successor's EffectiveFrom and inserts the successor. A duplicate version
// returns ErrConflict and leaves the store untouched.
func (s *InMemory) Supersede(_ context.Context, next *models.RulePack) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	packs := s.packs[next.CredentialID]
	for _, p := range packs {
		if p.Version == next.Version {
			return sentinel.ErrConflict
		}
	}
	for _, p := range packs {
		if p.IsOpen() {
			at := next.EffectiveFrom
			p.EffectiveTo = &at
		}
	}
	clone := *next
	s.packs[next.CredentialID] = append(packs, &clone)
	return nil
}
