package allocation

import (
	"context"
	"sync"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
)

type InMemory struct {
	mu       sync.RWMutex
	byRecord map[id.RecordID][]models.Allocation
}

func NewInMemory() *InMemory {
	return &InMemory{byRecord: make(map[id.RecordID][]models.Allocation)}
}

// ReplaceForRecord swaps the full allocation set for a record in one step.
// Callers never patch individual rows; the replacement set is validated
// upstream against the record's hours.
func (s *InMemory) ReplaceForRecord(_ context.Context, recordID id.RecordID, allocations []models.Allocation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(allocations) == 0 {
		delete(s.byRecord, recordID)
		return nil
	}
	clone := make([]models.Allocation, len(allocations))
	copy(clone, allocations)
	s.byRecord[recordID] = clone
	return nil
}

func (s *InMemory) ListByRecord(_ context.Context, recordID id.RecordID) ([]models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing, ok := s.byRecord[recordID]
	if !ok {
		return nil, nil
	}
	clone := make([]models.Allocation, len(existing))
	copy(clone, existing)
	return clone, nil
}

func (s *InMemory) ListByCredential(_ context.Context, ucID id.UserCredentialID) ([]models.Allocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Allocation
	for _, allocations := range s.byRecord {
		for _, a := range allocations {
			if a.UserCredentialID == ucID {
				out = append(out, a)
			}
		}
	}
	return out, nil
}

func (s *InMemory) DeleteByRecord(_ context.Context, recordID id.RecordID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.byRecord, recordID)
	return nil
}

func (s *InMemory) DeleteByCredential(_ context.Context, ucID id.UserCredentialID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for recordID, allocations := range s.byRecord {
		kept := allocations[:0]
		for _, a := range allocations {
			if a.UserCredentialID != ucID {
				kept = append(kept, a)
			}
		}
		if len(kept) == 0 {
			delete(s.byRecord, recordID)
		} else {
			s.byRecord[recordID] = kept
		}
	}
	return nil
}
