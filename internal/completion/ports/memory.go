package ports

import (
	"context"
	"sync"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

// InMemoryRuleStore holds completion rules keyed by record.
type InMemoryRuleStore struct {
	mu    sync.RWMutex
	rules map[id.RecordID][]models.CompletionRule
}

func NewInMemoryRuleStore() *InMemoryRuleStore {
	return &InMemoryRuleStore{rules: make(map[id.RecordID][]models.CompletionRule)}
}

func (s *InMemoryRuleStore) Attach(_ context.Context, rule models.CompletionRule) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rules[rule.RecordID] = append(s.rules[rule.RecordID], rule)
	return nil
}

func (s *InMemoryRuleStore) ListByRecord(_ context.Context, recordID id.RecordID) ([]models.CompletionRule, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	existing := s.rules[recordID]
	clone := make([]models.CompletionRule, len(existing))
	copy(clone, existing)
	return clone, nil
}

// InMemoryQuizSource is a quiz subsystem stand-in for unit wiring.
type InMemoryQuizSource struct {
	mu       sync.RWMutex
	quizzes  map[id.QuizID]*models.Quiz
	attempts map[id.QuizID]map[id.UserID][]models.QuizAttempt
}

func NewInMemoryQuizSource() *InMemoryQuizSource {
	return &InMemoryQuizSource{
		quizzes:  make(map[id.QuizID]*models.Quiz),
		attempts: make(map[id.QuizID]map[id.UserID][]models.QuizAttempt),
	}
}

func (s *InMemoryQuizSource) AddQuiz(q *models.Quiz) {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *q
	s.quizzes[q.ID] = &clone
}

func (s *InMemoryQuizSource) RecordAttempt(a models.QuizAttempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	byUser, ok := s.attempts[a.QuizID]
	if !ok {
		byUser = make(map[id.UserID][]models.QuizAttempt)
		s.attempts[a.QuizID] = byUser
	}
	byUser[a.UserID] = append(byUser[a.UserID], a)
}

func (s *InMemoryQuizSource) FindQuiz(_ context.Context, quizID id.QuizID) (*models.Quiz, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quizzes[quizID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *q
	return &clone, nil
}

func (s *InMemoryQuizSource) ListAttempts(_ context.Context, userID id.UserID, quizID id.QuizID) ([]models.QuizAttempt, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	byUser, ok := s.attempts[quizID]
	if !ok {
		return nil, nil
	}
	existing := byUser[userID]
	clone := make([]models.QuizAttempt, len(existing))
	copy(clone, existing)
	return clone, nil
}

// InMemoryEvidenceCounter tracks evidence file counts per record.
type InMemoryEvidenceCounter struct {
	mu     sync.RWMutex
	counts map[id.RecordID]int
}

func NewInMemoryEvidenceCounter() *InMemoryEvidenceCounter {
	return &InMemoryEvidenceCounter{counts: make(map[id.RecordID]int)}
}

func (s *InMemoryEvidenceCounter) SetCount(recordID id.RecordID, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[recordID] = n
}

func (s *InMemoryEvidenceCounter) CountByRecord(_ context.Context, recordID id.RecordID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counts[recordID], nil
}
