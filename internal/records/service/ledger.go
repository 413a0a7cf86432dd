package service

import (
	"context"
	"errors"
	"sync"

	"cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// hoursEpsilon absorbs float drift when comparing an allocation total against
// the record's hours, so a split like 0.1+0.2 against a 0.3 hour record is
// accepted.
const hoursEpsilon = 1e-9

// recordLocks serializes allocation writes per record. Reads stay lock-free;
// only the validate-then-replace window needs exclusion so two concurrent
// replacements cannot both validate against stale state.
type recordLocks struct {
	mu    sync.Mutex
	locks map[id.RecordID]*sync.Mutex
}

func (l *recordLocks) lock(recordID id.RecordID) *sync.Mutex {
	l.mu.Lock()
	if l.locks == nil {
		l.locks = make(map[id.RecordID]*sync.Mutex)
	}
	m, ok := l.locks[recordID]
	if !ok {
		m = &sync.Mutex{}
		l.locks[recordID] = m
	}
	l.mu.Unlock()
	m.Lock()
	return m
}

// ReplaceAllocations atomically swaps the full allocation set for a record.
// The whole request is validated before any write: the replacement either
// applies completely or the existing allocations stand untouched.
func (s *Service) ReplaceAllocations(ctx context.Context, userID id.UserID, recordID id.RecordID, inputs []models.AllocationInput) (*models.AllocationResult, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}

	m := s.locks.lock(recordID)
	defer m.Unlock()

	record, err := s.findOwnedRecord(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	allocations := make([]models.Allocation, 0, len(inputs))
	seen := make(map[id.UserCredentialID]bool, len(inputs))
	var total float64
	for _, in := range inputs {
		if in.UserCredentialID.IsNil() {
			return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeBadRequest, "user_credential_id is required"))
		}
		if in.Hours <= 0 {
			return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeValidation, "allocation hours must be positive"))
		}
		if seen[in.UserCredentialID] {
			return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeValidation, "duplicate credential in allocation set"))
		}
		seen[in.UserCredentialID] = true

		holding, err := s.holdings.FindByID(ctx, in.UserCredentialID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeNotFound, "user credential not found"))
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user credential")
		}
		// A holding owned by someone else is indistinguishable from a
		// missing one.
		if holding.UserID != userID {
			return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeNotFound, "user credential not found"))
		}

		total += in.Hours
		allocations = append(allocations, models.Allocation{
			RecordID:         recordID,
			UserCredentialID: in.UserCredentialID,
			Hours:            in.Hours,
			CreatedAt:        now,
		})
	}

	if total > record.Hours+hoursEpsilon {
		return nil, s.rejected(ctx, userID, recordID, dErrors.New(dErrors.CodeValidation, "allocation exceeds record hours"))
	}

	if err := s.allocations.ReplaceForRecord(ctx, recordID, allocations); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to replace allocations")
	}
	s.metrics.IncrementAllocationsReplaced()

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: now,
			UserID:    userID,
			Subject:   recordID.String(),
			Action:    string(audit.EventAllocationsReplaced),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "allocations replaced",
		"record_id", recordID,
		"count", len(allocations),
		"total_hours", total,
	)

	unallocated := record.Hours - total
	if unallocated < 0 {
		unallocated = 0
	}
	return &models.AllocationResult{
		Allocations:    allocations,
		TotalAllocated: total,
		Unallocated:    unallocated,
	}, nil
}

// ListAllocations returns the current splits for a record the user owns.
func (s *Service) ListAllocations(ctx context.Context, userID id.UserID, recordID id.RecordID) ([]models.Allocation, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}
	if _, err := s.findOwnedRecord(ctx, userID, recordID); err != nil {
		return nil, err
	}
	allocations, err := s.allocations.ListByRecord(ctx, recordID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list allocations")
	}
	return allocations, nil
}

func (s *Service) findOwnedRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.CpdRecord, error) {
	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}
	if record.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
	}
	return record, nil
}

// rejected counts and audits a validation failure before returning it.
func (s *Service) rejected(ctx context.Context, userID id.UserID, recordID id.RecordID, err error) error {
	s.metrics.IncrementAllocationsRejected()
	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   recordID.String(),
			Action:    string(audit.EventAllocationsRejected),
			Detail:    err.Error(),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return err
}
