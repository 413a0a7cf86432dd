package record

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"cpdtrack/internal/records/models"
	"cpdtrack/internal/storage"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/platform/tx"
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const recordColumns = `id, user_id, title, hours, date, activity_type, category, status, source, strength, activity_id, notes, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, r *models.CpdRecord) error {
	notes, err := marshalNotes(r.Notes)
	if err != nil {
		return fmt.Errorf("create record: %w", err)
	}
	query := `
		INSERT INTO cpd_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID), uuid.UUID(r.UserID),
		r.Title, r.Hours, r.Date, r.ActivityType, r.Category,
		r.Status, r.Source, r.Strength,
		nullableActivityID(r.ActivityID), notes,
		r.CreatedAt, r.UpdatedAt,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create record: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, r *models.CpdRecord) error {
	notes, err := marshalNotes(r.Notes)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	query := `
		UPDATE cpd_records
		SET title = $2, hours = $3, date = $4, activity_type = $5, category = $6,
		    status = $7, source = $8, strength = $9, activity_id = $10, notes = $11,
		    updated_at = $12
		WHERE id = $1
	`
	res, err := execer(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(r.ID),
		r.Title, r.Hours, r.Date, r.ActivityType, r.Category,
		r.Status, r.Source, r.Strength,
		nullableActivityID(r.ActivityID), notes,
		r.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, recordID id.RecordID) (*models.CpdRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM cpd_records WHERE id = $1`
	r, err := scanRecord(s.db.QueryRowContext(ctx, query, uuid.UUID(recordID)))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find record: %w", err)
	}
	return r, nil
}

func (s *PostgresStore) ListByIDs(ctx context.Context, recordIDs []id.RecordID) ([]*models.CpdRecord, error) {
	if len(recordIDs) == 0 {
		return nil, nil
	}
	ids := make([]string, len(recordIDs))
	for i, recordID := range recordIDs {
		ids[i] = recordID.String()
	}
	query := `SELECT ` + recordColumns + ` FROM cpd_records WHERE id = ANY($1::uuid[])`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("list records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

func (s *PostgresStore) ListCompletedByUser(ctx context.Context, userID id.UserID) ([]*models.CpdRecord, error) {
	query := `SELECT ` + recordColumns + ` FROM cpd_records WHERE user_id = $1 AND status = $2 ORDER BY date`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID), models.StatusCompleted)
	if err != nil {
		return nil, fmt.Errorf("list completed records: %w", err)
	}
	defer rows.Close()
	return collectRecords(rows)
}

// Delete removes the record; allocations and completion rules cascade via
// foreign keys.
func (s *PostgresStore) Delete(ctx context.Context, recordID id.RecordID) error {
	res, err := execer(ctx, s.db).ExecContext(ctx, `DELETE FROM cpd_records WHERE id = $1`, uuid.UUID(recordID))
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type sqlExecer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// execer returns the transaction bound to ctx when one is present, so that
// writes participate in a surrounding unit of work.
func execer(ctx context.Context, db *sql.DB) sqlExecer {
	if t, ok := tx.From(ctx); ok {
		return t
	}
	return db
}

func collectRecords(rows *sql.Rows) ([]*models.CpdRecord, error) {
	var out []*models.CpdRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*models.CpdRecord, error) {
	var r models.CpdRecord
	var recordUUID, userUUID uuid.UUID
	var activityUUID uuid.NullUUID
	var notes []byte
	err := row.Scan(
		&recordUUID, &userUUID,
		&r.Title, &r.Hours, &r.Date, &r.ActivityType, &r.Category,
		&r.Status, &r.Source, &r.Strength,
		&activityUUID, &notes,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.ID = id.RecordID(recordUUID)
	r.UserID = id.UserID(userUUID)
	if activityUUID.Valid {
		aid := id.ActivityID(activityUUID.UUID)
		r.ActivityID = &aid
	}
	if len(notes) > 0 {
		if err := json.Unmarshal(notes, &r.Notes); err != nil {
			return nil, fmt.Errorf("decode record notes: %w", err)
		}
	}
	return &r, nil
}

func marshalNotes(notes models.NotesDoc) ([]byte, error) {
	if len(notes) == 0 {
		return nil, nil
	}
	return json.Marshal(notes)
}

func nullableActivityID(activityID *id.ActivityID) uuid.NullUUID {
	if activityID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*activityID), Valid: true}
}
