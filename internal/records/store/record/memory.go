package record

import (
	"context"
	"sync"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu      sync.RWMutex
	records map[id.RecordID]*models.CpdRecord
}

func NewInMemory() *InMemory {
	return &InMemory{records: make(map[id.RecordID]*models.CpdRecord)}
}

func (s *InMemory) Create(_ context.Context, r *models.CpdRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; exists {
		return sentinel.ErrConflict
	}
	clone := *r
	s.records[r.ID] = &clone
	return nil
}

func (s *InMemory) Update(_ context.Context, r *models.CpdRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.records[r.ID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *r
	s.records[r.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, recordID id.RecordID) (*models.CpdRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *InMemory) ListByIDs(_ context.Context, recordIDs []id.RecordID) ([]*models.CpdRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CpdRecord
	for _, recordID := range recordIDs {
		if r, ok := s.records[recordID]; ok {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemory) ListCompletedByUser(_ context.Context, userID id.UserID) ([]*models.CpdRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.CpdRecord
	for _, r := range s.records {
		if r.UserID == userID && r.Status == models.StatusCompleted {
			clone := *r
			out = append(out, &clone)
		}
	}
	return out, nil
}

func (s *InMemory) Delete(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.records[recordID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.records, recordID)
	return nil
}
