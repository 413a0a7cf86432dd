package models

import (
	"time"

	id "cpdtrack/pkg/domain"
)

// Quiz is the engine's read-model of a quiz in the external quiz subsystem:
// the pass mark for quiz_pass rules plus the CPD metadata used when a quiz
// pass synthesizes a platform record.
type Quiz struct {
	ID       id.QuizID `json:"id"`
	Title    string    `json:"title"`
	PassMark float64   `json:"pass_mark"`
	CPDHours float64   `json:"cpd_hours"`
	Category string    `json:"category"`
}

// QuizAttempt is one graded attempt by a user.
type QuizAttempt struct {
	QuizID      id.QuizID `json:"quiz_id"`
	UserID      id.UserID `json:"user_id"`
	Score       float64   `json:"score"`
	Passed      bool      `json:"passed"`
	AttemptedAt time.Time `json:"attempted_at"`
}
