package allocation

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// ReplaceForRecord deletes the record's current allocation rows and inserts
// the replacement set inside one transaction, so concurrent readers never see
// a partially applied split.
func (s *PostgresStore) ReplaceForRecord(ctx context.Context, recordID id.RecordID, allocations []models.Allocation) error {
	run := func(ctx context.Context, q querier) error {
		if _, err := q.ExecContext(ctx,
			`DELETE FROM allocations WHERE record_id = $1`, uuid.UUID(recordID),
		); err != nil {
			return fmt.Errorf("clear allocations: %w", err)
		}
		for _, a := range allocations {
			if _, err := q.ExecContext(ctx,
				`INSERT INTO allocations (record_id, user_credential_id, hours, created_at) VALUES ($1, $2, $3, $4)`,
				uuid.UUID(a.RecordID), uuid.UUID(a.UserCredentialID), a.Hours, a.CreatedAt,
			); err != nil {
				return fmt.Errorf("insert allocation: %w", err)
			}
		}
		return nil
	}

	if t, ok := tx.From(ctx); ok {
		return run(ctx, t)
	}
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("replace allocations: %w", err)
	}
	if err := run(ctx, sqlTx); err != nil {
		_ = sqlTx.Rollback()
		return err
	}
	return sqlTx.Commit()
}

func (s *PostgresStore) ListByRecord(ctx context.Context, recordID id.RecordID) ([]models.Allocation, error) {
	query := `SELECT record_id, user_credential_id, hours, created_at FROM allocations WHERE record_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(recordID))
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()
	return collectAllocations(rows)
}

func (s *PostgresStore) ListByCredential(ctx context.Context, ucID id.UserCredentialID) ([]models.Allocation, error) {
	query := `SELECT record_id, user_credential_id, hours, created_at FROM allocations WHERE user_credential_id = $1 ORDER BY created_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(ucID))
	if err != nil {
		return nil, fmt.Errorf("list allocations by credential: %w", err)
	}
	defer rows.Close()
	return collectAllocations(rows)
}

func (s *PostgresStore) DeleteByRecord(ctx context.Context, recordID id.RecordID) error {
	var q querier = s.db
	if t, ok := tx.From(ctx); ok {
		q = t
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM allocations WHERE record_id = $1`, uuid.UUID(recordID)); err != nil {
		return fmt.Errorf("delete allocations: %w", err)
	}
	return nil
}

func (s *PostgresStore) DeleteByCredential(ctx context.Context, ucID id.UserCredentialID) error {
	var q querier = s.db
	if t, ok := tx.From(ctx); ok {
		q = t
	}
	if _, err := q.ExecContext(ctx, `DELETE FROM allocations WHERE user_credential_id = $1`, uuid.UUID(ucID)); err != nil {
		return fmt.Errorf("delete allocations by credential: %w", err)
	}
	return nil
}

type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func collectAllocations(rows *sql.Rows) ([]models.Allocation, error) {
	var out []models.Allocation
	for rows.Next() {
		var a models.Allocation
		var recordUUID, ucUUID uuid.UUID
		if err := rows.Scan(&recordUUID, &ucUUID, &a.Hours, &a.CreatedAt); err != nil {
			return nil, err
		}
		a.RecordID = id.RecordID(recordUUID)
		a.UserCredentialID = id.UserCredentialID(ucUUID)
		out = append(out, a)
	}
	return out, rows.Err()
}
