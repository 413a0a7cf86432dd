package audit

import (
	"context"

	id "cpdtrack/pkg/domain"
)

// Store persists audit events. Implementations: in-memory (tests, default
// wiring) and postgres.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByUser(ctx context.Context, userID id.UserID) ([]Event, error)
}
