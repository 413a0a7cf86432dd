package credential

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cpdtrack/internal/credential/models"
	"cpdtrack/internal/storage"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

// PostgresStore persists credential reference data. Pure I/O; rule selection
// logic lives in the service.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Credential) error {
	query := `
		INSERT INTO credentials (id, name, issuing_body, region, vertical,
			total_hours, ethics_hours, structured_hours, cycle_years,
			category_rules, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(c.ID), c.Name, c.IssuingBody, c.Region, c.Vertical,
		c.BaseRequirements.TotalHours, c.BaseRequirements.EthicsHours,
		c.BaseRequirements.StructuredHours, c.BaseRequirements.CycleYears,
		nullableJSON(c.CategoryRules), c.CreatedAt, c.UpdatedAt,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, credentialID id.CredentialID) (*models.Credential, error) {
	query := `
		SELECT id, name, issuing_body, region, vertical,
			total_hours, ethics_hours, structured_hours, cycle_years,
			category_rules, created_at, updated_at
		FROM credentials
		WHERE id = $1
	`
	var c models.Credential
	var credUUID uuid.UUID
	var categoryRules []byte
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(credentialID)).Scan(
		&credUUID, &c.Name, &c.IssuingBody, &c.Region, &c.Vertical,
		&c.BaseRequirements.TotalHours, &c.BaseRequirements.EthicsHours,
		&c.BaseRequirements.StructuredHours, &c.BaseRequirements.CycleYears,
		&categoryRules, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find credential: %w", err)
	}
	c.ID = id.CredentialID(credUUID)
	if categoryRules != nil {
		c.CategoryRules = json.RawMessage(categoryRules)
	}
	return &c, nil
}

func nullableJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return []byte(raw)
}
