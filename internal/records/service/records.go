package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// CreateRecordInput carries the user-supplied fields of a manual record.
type CreateRecordInput struct {
	Title        string
	Hours        float64
	Date         time.Time
	ActivityType models.ActivityType
	Category     string
	Strength     models.EvidenceStrength
	Notes        models.NotesDoc
}

func (s *Service) CreateRecord(ctx context.Context, userID id.UserID, in CreateRecordInput) (*models.CpdRecord, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "user_id is required")
	}
	now := requestcontext.Now(ctx)
	record, err := models.NewRecord(id.RecordID(uuid.New()), userID, in.Title, in.Hours, in.Date, in.ActivityType, now)
	if err != nil {
		return nil, err
	}
	record.Category = in.Category
	if in.Strength != "" {
		if in.Strength.Rank() < 0 {
			return nil, dErrors.New(dErrors.CodeValidation, "unknown evidence strength")
		}
		record.Strength = in.Strength
	}
	record.Notes = in.Notes

	if err := s.records.Create(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create record")
	}
	s.metrics.IncrementRecordsCreated()
	s.logger.InfoContext(ctx, "record created",
		"record_id", record.ID,
		"hours", record.Hours,
		"activity_type", record.ActivityType,
	)
	return record, nil
}

func (s *Service) GetRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.CpdRecord, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}
	return s.findOwnedRecord(ctx, userID, recordID)
}

// CompleteRecord transitions the record to completed. Completing an already
// completed record is a no-op success.
func (s *Service) CompleteRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.CpdRecord, error) {
	record, err := s.findOwnedRecord(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if record.Status == models.StatusCompleted {
		return record, nil
	}
	record.Complete(requestcontext.Now(ctx))
	if err := s.records.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to complete record")
	}
	s.logger.InfoContext(ctx, "record completed", "record_id", recordID)
	return record, nil
}

// UpgradeStrength raises the record's evidence strength. Downgrades and
// same-level writes are rejected; strength only ever moves up.
func (s *Service) UpgradeStrength(ctx context.Context, userID id.UserID, recordID id.RecordID, next models.EvidenceStrength) (*models.CpdRecord, error) {
	if next.Rank() < 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "unknown evidence strength")
	}
	record, err := s.findOwnedRecord(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if !record.UpgradeStrength(next, requestcontext.Now(ctx)) {
		return nil, dErrors.New(dErrors.CodeValidation, "evidence strength cannot be lowered")
	}
	if err := s.records.Update(ctx, record); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to upgrade evidence strength")
	}
	s.metrics.IncrementStrengthUpgrades()

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   recordID.String(),
			Action:    string(audit.EventStrengthUpgraded),
			Detail:    string(next),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return record, nil
}

// DeleteRecord removes a record together with its allocations. The two
// deletes run in one transaction so a failure cannot strand orphaned
// allocation rows.
func (s *Service) DeleteRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) error {
	if recordID.IsNil() {
		return dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}
	if _, err := s.findOwnedRecord(ctx, userID, recordID); err != nil {
		return err
	}

	m := s.locks.lock(recordID)
	defer m.Unlock()

	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.allocations.DeleteByRecord(ctx, recordID); err != nil {
			return err
		}
		return s.records.Delete(ctx, recordID)
	})
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete record")
	}

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   recordID.String(),
			Action:    string(audit.EventRecordDeleted),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "record deleted", "record_id", recordID)
	return nil
}
