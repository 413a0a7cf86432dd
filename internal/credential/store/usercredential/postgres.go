package usercredential

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

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const holdingColumns = `id, user_id, credential_id, jurisdiction, state_or_province, renewal_deadline, onboarding_hours, is_primary, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, uc *models.UserCredential) error {
	query := `
		INSERT INTO user_credentials (` + holdingColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(uc.ID), uuid.UUID(uc.UserID), uuid.UUID(uc.CredentialID),
		uc.Jurisdiction, uc.StateOrProvince, uc.RenewalDeadline,
		uc.OnboardingHours, uc.IsPrimary, uc.CreatedAt, uc.UpdatedAt,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create user credential: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, ucID id.UserCredentialID) (*models.UserCredential, error) {
	query := `SELECT ` + holdingColumns + ` FROM user_credentials WHERE id = $1`
	uc, err := scanHolding(s.db.QueryRowContext(ctx, query, uuid.UUID(ucID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find user credential: %w", err)
	}
	return uc, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.UserCredential, error) {
	query := `SELECT ` + holdingColumns + ` FROM user_credentials WHERE user_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list user credentials: %w", err)
	}
	defer rows.Close()

	var out []*models.UserCredential
	for rows.Next() {
		uc, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, uc)
	}
	return out, rows.Err()
}

func (s *PostgresStore) CountByUser(ctx context.Context, userID id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM user_credentials WHERE user_id = $1`, uuid.UUID(userID),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count user credentials: %w", err)
	}
	return count, nil
}

// SetPrimary flips the primary flag to the named holding in one statement, so
// the user's other holdings demote atomically.
func (s *PostgresStore) SetPrimary(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE user_credentials
		SET is_primary = (id = $2)
		WHERE user_id = $1
	`, uuid.UUID(userID), uuid.UUID(ucID))
	if err != nil {
		return fmt.Errorf("set primary holding: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("set primary holding: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Delete removes the holding; allocation rows cascade via the foreign key.
func (s *PostgresStore) Delete(ctx context.Context, ucID id.UserCredentialID) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM user_credentials WHERE id = $1`, uuid.UUID(ucID))
	if err != nil {
		return fmt.Errorf("delete user credential: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user credential: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanHolding(row rowScanner) (*models.UserCredential, error) {
	var uc models.UserCredential
	var ucUUID, userUUID, credUUID uuid.UUID
	var state sql.NullString
	var deadline sql.NullTime
	err := row.Scan(
		&ucUUID, &userUUID, &credUUID,
		&uc.Jurisdiction, &state, &deadline,
		&uc.OnboardingHours, &uc.IsPrimary, &uc.CreatedAt, &uc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	uc.ID = id.UserCredentialID(ucUUID)
	uc.UserID = id.UserID(userUUID)
	uc.CredentialID = id.CredentialID(credUUID)
	uc.StateOrProvince = state.String
	if deadline.Valid {
		t := deadline.Time.In(time.UTC)
		uc.RenewalDeadline = &t
	}
	return &uc, nil
}
