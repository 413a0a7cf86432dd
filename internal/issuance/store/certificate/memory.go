package certificate

import (
	"context"
	"strings"
	"sync"

	"cpdtrack/internal/issuance/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type InMemory struct {
	mu       sync.RWMutex
	byID     map[id.CertificateID]*models.Certificate
	byCode   map[string]id.CertificateID
	byRecord map[id.RecordID]id.CertificateID
}

func NewInMemory() *InMemory {
	return &InMemory{
		byID:     make(map[id.CertificateID]*models.Certificate),
		byCode:   make(map[string]id.CertificateID),
		byRecord: make(map[id.RecordID]id.CertificateID),
	}
}

// Create enforces both uniqueness constraints: one certificate per code, one
// certificate per record.
func (s *InMemory) Create(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byCode[normalizeCode(c.Code)]; exists {
		return sentinel.ErrConflict
	}
	if c.RecordID != nil {
		if _, exists := s.byRecord[*c.RecordID]; exists {
			return sentinel.ErrConflict
		}
	}
	clone := *c
	s.byID[c.ID] = &clone
	s.byCode[normalizeCode(c.Code)] = c.ID
	if c.RecordID != nil {
		s.byRecord[*c.RecordID] = c.ID
	}
	return nil
}

func (s *InMemory) Update(_ context.Context, c *models.Certificate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.byID[c.ID]; !exists {
		return sentinel.ErrNotFound
	}
	clone := *c
	s.byID[c.ID] = &clone
	return nil
}

func (s *InMemory) FindByID(_ context.Context, certID id.CertificateID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[certID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemory) FindByRecord(_ context.Context, recordID id.RecordID) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.byRecord[recordID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[certID]
	return &clone, nil
}

func (s *InMemory) FindByCode(_ context.Context, code string) (*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	certID, ok := s.byCode[normalizeCode(code)]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *s.byID[certID]
	return &clone, nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]*models.Certificate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Certificate
	for _, c := range s.byID {
		if c.UserID == userID {
			clone := *c
			out = append(out, &clone)
		}
	}
	return out, nil
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
