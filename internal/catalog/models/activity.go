package models

import (
	"time"

	id "cpdtrack/pkg/domain"
)

// Activity is a catalog entry published by an administrator. Credit values
// are never stored on the activity itself; they live on jurisdiction-scoped
// CreditMapping rows.
type Activity struct {
	ID        id.ActivityID `json:"id"`
	Title     string        `json:"title"`
	Provider  string        `json:"provider"`
	Published bool          `json:"published"`
	CreatedAt time.Time     `json:"created_at"`
}
