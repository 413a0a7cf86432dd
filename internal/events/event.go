// Package events ingests provider CPD events from Kafka. Providers push
// course completions with an idempotency key; each distinct key synthesizes
// one auto-sourced record and one certificate, and redelivered keys are
// acknowledged without effect.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// ProviderEvent is the wire payload on the provider events topic.
type ProviderEvent struct {
	// IdempotencyKey is assigned by the provider per completion. Redeliveries
	// and provider-side retries reuse it.
	IdempotencyKey string `json:"idempotency_key"`
	UserID         string `json:"user_id"`
	ActivityID     string `json:"activity_id,omitempty"`

	Title    string  `json:"title"`
	Hours    float64 `json:"hours"`
	Category string  `json:"category,omitempty"`

	// QuizScore is set when the provider graded an assessment.
	QuizScore *float64 `json:"quiz_score,omitempty"`

	OccurredAt time.Time `json:"occurred_at"`
}

func decodeProviderEvent(raw []byte) (*ProviderEvent, error) {
	var ev ProviderEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return nil, fmt.Errorf("decode provider event: %w", err)
	}
	if ev.IdempotencyKey == "" {
		return nil, fmt.Errorf("provider event has no idempotency key")
	}
	if ev.UserID == "" {
		return nil, fmt.Errorf("provider event has no user id")
	}
	if ev.Title == "" {
		return nil, fmt.Errorf("provider event has no title")
	}
	if ev.Hours <= 0 {
		return nil, fmt.Errorf("provider event hours must be positive, got %v", ev.Hours)
	}
	return &ev, nil
}
