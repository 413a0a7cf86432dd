// Package rules implements the completion rule strategies. Each rule type is
// one strategy with the same evaluate contract; dispatch happens through the
// table, and adding a rule type is a new entry, not a new branch.
package rules

import (
	"context"
	"encoding/json"
	"fmt"

	"cpdtrack/internal/completion/ports"
	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
)

// Input is the evaluation context shared by all strategies.
type Input struct {
	Record   *models.CpdRecord
	UserID   id.UserID
	Quizzes  ports.QuizSource
	Evidence ports.EvidenceCounter
}

// Strategy evaluates one rule's config against the input. A strategy returns
// an error only for infrastructure failures; a config it cannot interpret
// fails closed with passed=false.
type Strategy func(ctx context.Context, in Input, config json.RawMessage) (passed bool, detail string, err error)

// Table maps rule types to their strategies.
func Table() map[models.RuleType]Strategy {
	return map[models.RuleType]Strategy{
		models.RuleQuizPass:       evaluateQuizPass,
		models.RuleEvidenceUpload: evaluateEvidenceUpload,
		models.RuleWatchTime:      evaluateWatchTime,
		models.RuleAttendance:     evaluateAttendance,
	}
}

type quizPassConfig struct {
	QuizID string `json:"quiz_id"`
	// MinScore overrides the quiz's own pass mark when set.
	MinScore *float64 `json:"min_score"`
}

func evaluateQuizPass(ctx context.Context, in Input, config json.RawMessage) (bool, string, error) {
	var cfg quizPassConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return false, "malformed quiz_pass config", nil
	}
	quizID, err := id.ParseQuizID(cfg.QuizID)
	if err != nil {
		return false, "quiz_pass config has no valid quiz_id", nil
	}

	attempts, err := in.Quizzes.ListAttempts(ctx, in.UserID, quizID)
	if err != nil {
		return false, "", fmt.Errorf("list quiz attempts: %w", err)
	}

	if cfg.MinScore != nil {
		for _, a := range attempts {
			if a.Score >= *cfg.MinScore {
				return true, fmt.Sprintf("score %.0f meets minimum %.0f", a.Score, *cfg.MinScore), nil
			}
		}
		return false, fmt.Sprintf("no attempt meets minimum score %.0f", *cfg.MinScore), nil
	}

	// Without an explicit minimum, the quiz's own pass verdict decides; the
	// quiz subsystem applies its pass mark when grading the attempt.
	for _, a := range attempts {
		if a.Passed {
			return true, "passing attempt recorded", nil
		}
	}
	return false, "no passing attempt", nil
}

type evidenceUploadConfig struct {
	MinFiles *int `json:"min_files"`
}

func evaluateEvidenceUpload(ctx context.Context, in Input, config json.RawMessage) (bool, string, error) {
	var cfg evidenceUploadConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return false, "malformed evidence_upload config", nil
	}
	minFiles := 1
	if cfg.MinFiles != nil {
		minFiles = *cfg.MinFiles
	}
	count, err := in.Evidence.CountByRecord(ctx, in.Record.ID)
	if err != nil {
		return false, "", fmt.Errorf("count evidence: %w", err)
	}
	if count < minFiles {
		return false, fmt.Sprintf("%d of %d required files uploaded", count, minFiles), nil
	}
	return true, fmt.Sprintf("%d files uploaded", count), nil
}

type watchTimeConfig struct {
	MinWatchPercent *float64 `json:"min_watch_percent"`
}

func evaluateWatchTime(_ context.Context, in Input, config json.RawMessage) (bool, string, error) {
	var cfg watchTimeConfig
	if err := json.Unmarshal(config, &cfg); err != nil || cfg.MinWatchPercent == nil {
		return false, "malformed watch_time config", nil
	}
	watched, ok := in.Record.Notes.Float("watchPercent")
	if !ok {
		return false, "no watch progress recorded", nil
	}
	if watched < *cfg.MinWatchPercent {
		return false, fmt.Sprintf("watched %.0f%% of required %.0f%%", watched, *cfg.MinWatchPercent), nil
	}
	return true, fmt.Sprintf("watched %.0f%%", watched), nil
}

type attendanceConfig struct {
	ConfirmationRequired bool `json:"confirmation_required"`
}

func evaluateAttendance(_ context.Context, in Input, config json.RawMessage) (bool, string, error) {
	var cfg attendanceConfig
	if err := json.Unmarshal(config, &cfg); err != nil {
		return false, "malformed attendance config", nil
	}
	if !cfg.ConfirmationRequired {
		return true, "confirmation not required", nil
	}
	confirmed, ok := in.Record.Notes.Bool("attendanceConfirmed")
	if !ok || !confirmed {
		return false, "attendance not confirmed", nil
	}
	return true, "attendance confirmed", nil
}
