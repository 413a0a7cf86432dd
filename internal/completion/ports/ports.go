// Package ports declares the read dependencies of completion rule
// evaluation. Quizzes and evidence files live in adjacent subsystems; the
// evaluator only needs narrow read views of them.
package ports

import (
	"context"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
)

// RuleStore reads the completion rules attached to a record.
type RuleStore interface {
	ListByRecord(ctx context.Context, recordID id.RecordID) ([]models.CompletionRule, error)
	Attach(ctx context.Context, rule models.CompletionRule) error
}

// QuizSource reads quiz metadata and a user's attempts from the quiz
// subsystem.
type QuizSource interface {
	FindQuiz(ctx context.Context, quizID id.QuizID) (*models.Quiz, error)
	ListAttempts(ctx context.Context, userID id.UserID, quizID id.QuizID) ([]models.QuizAttempt, error)
}

// EvidenceCounter reads how many non-deleted evidence files are linked to a
// record.
type EvidenceCounter interface {
	CountByRecord(ctx context.Context, recordID id.RecordID) (int, error)
}
