package mapping

import (
	"context"
	"sync"

	"cpdtrack/internal/catalog/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu         sync.RWMutex
	activities map[id.ActivityID]*models.Activity
	mappings   map[id.ActivityID][]*models.CreditMapping
}

func NewInMemory() *InMemory {
	return &InMemory{
		activities: make(map[id.ActivityID]*models.Activity),
		mappings:   make(map[id.ActivityID][]*models.CreditMapping),
	}
}

func (s *InMemory) CreateActivity(_ context.Context, a *models.Activity) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.activities[a.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *a
	s.activities[a.ID] = &clone
	return nil
}

func (s *InMemory) FindActivity(_ context.Context, activityID id.ActivityID) (*models.Activity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.activities[activityID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (s *InMemory) AddMapping(_ context.Context, m *models.CreditMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.activities[m.ActivityID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *m
	s.mappings[m.ActivityID] = append(s.mappings[m.ActivityID], &clone)
	return nil
}

func (s *InMemory) ListMappings(_ context.Context, activityID id.ActivityID) ([]*models.CreditMapping, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CreditMapping
	for _, m := range s.mappings[activityID] {
		clone := *m
		out = append(out, &clone)
	}
	return out, nil
}
