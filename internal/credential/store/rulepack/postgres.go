package rulepack

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cpdtrack/internal/credential/models"
	"cpdtrack/internal/storage"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

// PostgresStore persists rule packs. The (credential_id, version) unique
// constraint is the final backstop for the version invariant.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const packColumns = `id, credential_id, version, total_hours, ethics_hours, structured_hours, cycle_years, effective_from, effective_to, changelog, created_at`

func (s *PostgresStore) ListByCredential(ctx context.Context, credentialID id.CredentialID) ([]*models.RulePack, error) {
	query := `
		SELECT ` + packColumns + `
		FROM rule_packs
		WHERE credential_id = $1
		ORDER BY effective_from, version
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(credentialID))
	if err != nil {
		return nil, fmt.Errorf("list rule packs: %w", err)
	}
	defer rows.Close()

	var packs []*models.RulePack
	for rows.Next() {
		p, err := scanPack(rows)
		if err != nil {
			return nil, err
		}
		packs = append(packs, p)
	}
	return packs, rows.Err()
}

func (s *PostgresStore) FindOpen(ctx context.Context, credentialID id.CredentialID) (*models.RulePack, error) {
	query := `
		SELECT ` + packColumns + `
		FROM rule_packs
		WHERE credential_id = $1 AND effective_to IS NULL
	`
	p, err := scanPack(s.db.QueryRowContext(ctx, query, uuid.UUID(credentialID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find open rule pack: %w", err)
	}
	return p, nil
}

// Supersede closes the open pack and inserts the successor in one
// transaction. Version collisions surface as ErrConflict.
func (s *PostgresStore) Supersede(ctx context.Context, next *models.RulePack) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin supersede: %w", err)
	}
	defer func() { _ = sqlTx.Rollback() }()

	_, err = sqlTx.ExecContext(ctx, `
		UPDATE rule_packs
		SET effective_to = $2
		WHERE credential_id = $1 AND effective_to IS NULL
	`, uuid.UUID(next.CredentialID), next.EffectiveFrom)
	if err != nil {
		return fmt.Errorf("close open rule pack: %w", err)
	}

	_, err = sqlTx.ExecContext(ctx, `
		INSERT INTO rule_packs (`+packColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		uuid.UUID(next.ID), uuid.UUID(next.CredentialID), next.Version,
		next.Rules.TotalHours, next.Rules.EthicsHours, next.Rules.StructuredHours, next.Rules.CycleYears,
		next.EffectiveFrom, next.EffectiveTo, next.Changelog, next.CreatedAt,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert rule pack: %w", err)
	}

	return sqlTx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPack(row rowScanner) (*models.RulePack, error) {
	var p models.RulePack
	var packUUID, credUUID uuid.UUID
	var effectiveTo sql.NullTime
	var changelog sql.NullString
	err := row.Scan(
		&packUUID, &credUUID, &p.Version,
		&p.Rules.TotalHours, &p.Rules.EthicsHours, &p.Rules.StructuredHours, &p.Rules.CycleYears,
		&p.EffectiveFrom, &effectiveTo, &changelog, &p.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	p.ID = id.RulePackID(packUUID)
	p.CredentialID = id.CredentialID(credUUID)
	if effectiveTo.Valid {
		t := effectiveTo.Time.In(time.UTC)
		p.EffectiveTo = &t
	}
	p.Changelog = changelog.String
	return &p, nil
}
