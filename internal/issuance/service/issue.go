package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"cpdtrack/internal/issuance/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// maxCodeAttempts bounds the collision-retry loop. With the code's random
// space the loop effectively never runs past the first iteration; the bound
// exists so a broken uniqueness constraint cannot spin forever.
const maxCodeAttempts = 5

// IssueIfEligible issues a certificate for the record, or returns the
// already-issued certificate when invoked again. Re-invocation is success,
// not conflict: duplicate webhooks and double-clicked buttons both land here.
func (s *Service) IssueIfEligible(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.Certificate, error) {
	if recordID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record_id is required")
	}

	if existing, err := s.certificates.FindByRecord(ctx, recordID); err == nil {
		if existing.UserID != userID {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return existing, nil
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check existing certificate")
	}

	evaluation, err := s.evaluator.Evaluate(ctx, userID, recordID)
	if err != nil {
		return nil, err
	}
	if !evaluation.EligibleForCertificate {
		return nil, dErrors.New(dErrors.CodeNotEligible, "completion rules not satisfied")
	}

	record, err := s.records.FindByID(ctx, recordID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "record not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load record")
	}

	cert, err := s.createWithFreshCode(ctx, userID, record.ID, record.Hours, record.Category)
	if err != nil {
		return nil, err
	}
	s.metrics.IncrementIssued()

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   cert.Code,
			Action:    string(audit.EventCertificateIssued),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "certificate issued",
		"certificate_id", cert.ID,
		"record_id", recordID,
		"code", cert.Code,
	)
	return cert, nil
}

// createWithFreshCode inserts the certificate, regenerating the code when the
// uniqueness constraint trips on it. A conflict that turns out to be on the
// record means a concurrent issuance won the race; its certificate is the
// result.
func (s *Service) createWithFreshCode(ctx context.Context, userID id.UserID, recordID id.RecordID, hours float64, category string) (*models.Certificate, error) {
	now := requestcontext.Now(ctx)
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		code, err := models.GenerateCode(now.Year())
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to generate certificate code")
		}
		rid := recordID
		cert := &models.Certificate{
			ID:              id.CertificateID(uuid.New()),
			UserID:          userID,
			RecordID:        &rid,
			Code:            code,
			Hours:           hours,
			Category:        category,
			Status:          models.StatusActive,
			VerificationURL: fmt.Sprintf("%s/%s", s.verificationBaseURL, code),
			IssuedAt:        now,
		}

		err = s.certificates.Create(ctx, cert)
		if err == nil {
			return cert, nil
		}
		if !errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create certificate")
		}

		if existing, findErr := s.certificates.FindByRecord(ctx, recordID); findErr == nil {
			return existing, nil
		}
		s.metrics.IncrementCodeCollisions()
		s.logger.WarnContext(ctx, "certificate code collision, retrying", "attempt", attempt+1)
	}
	return nil, dErrors.New(dErrors.CodeInternal, "exhausted certificate code attempts")
}

// Revoke transitions a certificate to revoked.
func (s *Service) Revoke(ctx context.Context, userID id.UserID, certID id.CertificateID) (*models.Certificate, error) {
	if certID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "certificate_id is required")
	}
	cert, err := s.certificates.FindByID(ctx, certID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	if cert.UserID != userID {
		return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
	}
	if err := cert.Revoke(requestcontext.Now(ctx)); err != nil {
		return nil, err
	}
	if err := s.certificates.Update(ctx, cert); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke certificate")
	}
	s.metrics.IncrementRevoked()

	if s.audit != nil {
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: requestcontext.Now(ctx),
			UserID:    userID,
			Subject:   cert.Code,
			Action:    string(audit.EventCertificateRevoked),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	return cert, nil
}

// ListByUser returns every certificate issued to the user.
func (s *Service) ListByUser(ctx context.Context, userID id.UserID) ([]*models.Certificate, error) {
	certs, err := s.certificates.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list certificates")
	}
	return certs, nil
}

// VerifyByCode resolves a certificate from its public code. The code's shape
// is checked first so malformed input never reaches storage.
func (s *Service) VerifyByCode(ctx context.Context, code string) (*models.Certificate, error) {
	if _, err := models.ParseCertificateCode(code); err != nil {
		return nil, err
	}
	cert, err := s.certificates.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "certificate not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load certificate")
	}
	return cert, nil
}
