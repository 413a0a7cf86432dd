package certificate

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"cpdtrack/internal/issuance/models"
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

const certColumns = `id, user_id, record_id, code, hours, category, status, verification_url, issued_at, revoked_at`

// Create inserts the certificate. The certificates table carries unique
// indexes on code and on record_id; either violation surfaces as
// sentinel.ErrConflict and the service decides which one it hit.
func (s *PostgresStore) Create(ctx context.Context, c *models.Certificate) error {
	query := `
		INSERT INTO certificates (` + certColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	var exec interface {
		ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	} = s.db
	if t, ok := tx.From(ctx); ok {
		exec = t
	}
	_, err := exec.ExecContext(ctx, query,
		uuid.UUID(c.ID), uuid.UUID(c.UserID), nullableRecordID(c.RecordID),
		c.Code, c.Hours, c.Category, c.Status,
		c.VerificationURL, c.IssuedAt, c.RevokedAt,
	)
	if err != nil {
		if storage.IsUniqueViolation(err) {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create certificate: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, c *models.Certificate) error {
	query := `
		UPDATE certificates
		SET status = $2, revoked_at = $3
		WHERE id = $1
	`
	res, err := s.db.ExecContext(ctx, query, uuid.UUID(c.ID), c.Status, c.RevokedAt)
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update certificate: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, certID id.CertificateID) (*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE id = $1`
	return s.findOne(ctx, query, uuid.UUID(certID))
}

func (s *PostgresStore) FindByRecord(ctx context.Context, recordID id.RecordID) (*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE record_id = $1`
	return s.findOne(ctx, query, uuid.UUID(recordID))
}

func (s *PostgresStore) FindByCode(ctx context.Context, code string) (*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE code = upper(trim($1))`
	return s.findOne(ctx, query, code)
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Certificate, error) {
	query := `SELECT ` + certColumns + ` FROM certificates WHERE user_id = $1 ORDER BY issued_at`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list certificates: %w", err)
	}
	defer rows.Close()

	var out []*models.Certificate
	for rows.Next() {
		c, err := scanCertificate(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) findOne(ctx context.Context, query string, arg any) (*models.Certificate, error) {
	c, err := scanCertificate(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find certificate: %w", err)
	}
	return c, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCertificate(row rowScanner) (*models.Certificate, error) {
	var c models.Certificate
	var certUUID, userUUID uuid.UUID
	var recordUUID uuid.NullUUID
	var revokedAt sql.NullTime
	err := row.Scan(
		&certUUID, &userUUID, &recordUUID,
		&c.Code, &c.Hours, &c.Category, &c.Status,
		&c.VerificationURL, &c.IssuedAt, &revokedAt,
	)
	if err != nil {
		return nil, err
	}
	c.ID = id.CertificateID(certUUID)
	c.UserID = id.UserID(userUUID)
	if recordUUID.Valid {
		rid := id.RecordID(recordUUID.UUID)
		c.RecordID = &rid
	}
	if revokedAt.Valid {
		t := revokedAt.Time.In(time.UTC)
		c.RevokedAt = &t
	}
	return &c, nil
}

func nullableRecordID(recordID *id.RecordID) uuid.NullUUID {
	if recordID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*recordID), Valid: true}
}
