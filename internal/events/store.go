package events

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"cpdtrack/internal/storage"
	"cpdtrack/pkg/platform/sentinel"
)

// IdempotencyStore remembers processed provider event keys. MarkProcessed
// must be atomic: exactly one caller per key succeeds, every other caller
// gets sentinel.ErrAlreadyUsed.
type IdempotencyStore interface {
	MarkProcessed(ctx context.Context, key string, at time.Time) error
}

type InMemoryIdempotencyStore struct {
	mu   sync.Mutex
	seen map[string]time.Time
}

func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return &InMemoryIdempotencyStore{seen: make(map[string]time.Time)}
}

func (s *InMemoryIdempotencyStore) MarkProcessed(_ context.Context, key string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.seen[key]; exists {
		return sentinel.ErrAlreadyUsed
	}
	s.seen[key] = at
	return nil
}

type PostgresIdempotencyStore struct {
	db *sql.DB
}

func NewPostgresIdempotencyStore(db *sql.DB) *PostgresIdempotencyStore {
	return &PostgresIdempotencyStore{db: db}
}

func (s *PostgresIdempotencyStore) MarkProcessed(ctx context.Context, key string, at time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO provider_event_keys (idempotency_key, processed_at) VALUES ($1, $2)`,
		key, at,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("mark provider event processed: %w", err)
	}
	return nil
}
