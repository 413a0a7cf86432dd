package ports

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"cpdtrack/internal/records/models"
	"cpdtrack/internal/storage"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

// PostgresRuleStore persists completion rules.
type PostgresRuleStore struct {
	db *sql.DB
}

func NewPostgresRuleStore(db *sql.DB) *PostgresRuleStore {
	return &PostgresRuleStore{db: db}
}

func (s *PostgresRuleStore) Attach(ctx context.Context, rule models.CompletionRule) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO completion_rules (id, record_id, rule_type, config, active) VALUES ($1, $2, $3, $4, $5)`,
		uuid.UUID(rule.ID), uuid.UUID(rule.RecordID), rule.Type, []byte(rule.Config), rule.Active,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("attach completion rule: %w", err)
	}
	return nil
}

func (s *PostgresRuleStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]models.CompletionRule, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, record_id, rule_type, config, active FROM completion_rules WHERE record_id = $1`,
		uuid.UUID(recordID),
	)
	if err != nil {
		return nil, fmt.Errorf("list completion rules: %w", err)
	}
	defer rows.Close()

	var out []models.CompletionRule
	for rows.Next() {
		var rule models.CompletionRule
		var ruleUUID, recordUUID uuid.UUID
		var config []byte
		if err := rows.Scan(&ruleUUID, &recordUUID, &rule.Type, &config, &rule.Active); err != nil {
			return nil, err
		}
		rule.ID = id.RuleID(ruleUUID)
		rule.RecordID = id.RecordID(recordUUID)
		rule.Config = config
		out = append(out, rule)
	}
	return out, rows.Err()
}
