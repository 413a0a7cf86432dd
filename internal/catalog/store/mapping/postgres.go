package mapping

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"cpdtrack/internal/catalog/models"
	"cpdtrack/internal/storage"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

// PostgresStore persists activities and credit mappings. State lists are
// stored as JSON string arrays, matching the provider import format.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) CreateActivity(ctx context.Context, a *models.Activity) error {
	query := `
		INSERT INTO activities (id, title, provider, published, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, uuid.UUID(a.ID), a.Title, a.Provider, a.Published, a.CreatedAt)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create activity: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindActivity(ctx context.Context, activityID id.ActivityID) (*models.Activity, error) {
	query := `SELECT id, title, provider, published, created_at FROM activities WHERE id = $1`
	var a models.Activity
	var actUUID uuid.UUID
	err := s.db.QueryRowContext(ctx, query, uuid.UUID(activityID)).Scan(
		&actUUID, &a.Title, &a.Provider, &a.Published, &a.CreatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find activity: %w", err)
	}
	a.ID = id.ActivityID(actUUID)
	return &a, nil
}

func (s *PostgresStore) AddMapping(ctx context.Context, m *models.CreditMapping) error {
	include, err := json.Marshal(m.IncludeStates)
	if err != nil {
		return fmt.Errorf("marshal include states: %w", err)
	}
	exclude, err := json.Marshal(m.ExcludeStates)
	if err != nil {
		return fmt.Errorf("marshal exclude states: %w", err)
	}
	query := `
		INSERT INTO credit_mappings (id, activity_id, country, credits, category,
			structured, validation_method, include_states, exclude_states, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err = s.db.ExecContext(ctx, query,
		uuid.UUID(m.ID), uuid.UUID(m.ActivityID), m.Country, m.Credits, m.Category,
		m.Structured, m.ValidationMethod, include, exclude, m.Active,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("add credit mapping: %w", err)
	}
	return nil
}

func (s *PostgresStore) ListMappings(ctx context.Context, activityID id.ActivityID) ([]*models.CreditMapping, error) {
	query := `
		SELECT id, activity_id, country, credits, category, structured,
			validation_method, include_states, exclude_states, active
		FROM credit_mappings
		WHERE activity_id = $1
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(activityID))
	if err != nil {
		return nil, fmt.Errorf("list credit mappings: %w", err)
	}
	defer rows.Close()

	var out []*models.CreditMapping
	for rows.Next() {
		var m models.CreditMapping
		var mapUUID, actUUID uuid.UUID
		var include, exclude []byte
		err := rows.Scan(
			&mapUUID, &actUUID, &m.Country, &m.Credits, &m.Category, &m.Structured,
			&m.ValidationMethod, &include, &exclude, &m.Active,
		)
		if err != nil {
			return nil, fmt.Errorf("scan credit mapping: %w", err)
		}
		m.ID = id.MappingID(mapUUID)
		m.ActivityID = id.ActivityID(actUUID)
		if err := json.Unmarshal(include, &m.IncludeStates); err != nil {
			return nil, fmt.Errorf("decode include states: %w", err)
		}
		if err := json.Unmarshal(exclude, &m.ExcludeStates); err != nil {
			return nil, fmt.Errorf("decode exclude states: %w", err)
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}
