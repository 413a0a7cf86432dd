package usercredential

import (
	"context"
	"sync"

	"cpdtrack/internal/credential/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	holdings map[id.UserCredentialID]*models.UserCredential
}

func NewInMemory() *InMemory {
	return &InMemory{holdings: make(map[id.UserCredentialID]*models.UserCredential)}
}

func (s *InMemory) Create(_ context.Context, uc *models.UserCredential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.holdings[uc.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *uc
	s.holdings[uc.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, ucID id.UserCredentialID) (*models.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	uc, ok := s.holdings[ucID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *uc
	return &clone, nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.UserCredential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.UserCredential
	for _, uc := range s.holdings {
		if uc.UserID == userID {
			clone := *uc
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemory) CountByUser(_ context.Context, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, uc := range s.holdings {
		if uc.UserID == userID {
			count++
		}
	}
	return count, nil
}

// SetPrimary marks the holding primary and demotes the user's other holdings
// in the same critical section, so at most one primary is ever observable.
func (s *InMemory) SetPrimary(_ context.Context, userID id.UserID, ucID id.UserCredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	target, ok := s.holdings[ucID]
	if !ok || target.UserID != userID {
		return sentinel.ErrNotFound
	}
	for _, uc := range s.holdings {
		if uc.UserID == userID {
			uc.IsPrimary = uc.ID == ucID
		}
	}
	return nil
}

func (s *InMemory) Delete(_ context.Context, ucID id.UserCredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.holdings[ucID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.holdings, ucID)
	return nil
}
