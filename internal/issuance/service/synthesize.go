package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"cpdtrack/internal/issuance/models"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// quizRecordNamespace seeds the deterministic record ID for quiz-synthesized
// records. The same (user, quiz) pair always maps to the same record, which
// is what makes duplicate quiz submissions idempotent.
var quizRecordNamespace = uuid.MustParse("9f2c41aa-7b5e-4c83-9d0a-5f6e1c2b3a4d")

func quizRecordID(userID id.UserID, quizID id.QuizID) id.RecordID {
	seed := userID.String() + ":" + quizID.String()
	return id.RecordID(uuid.NewSHA1(quizRecordNamespace, []byte(seed)))
}

// IssueForQuizPass issues a certificate for a passed quiz, synthesizing a
// platform-sourced record when the user has none for it. Record and
// certificate are created in one transaction or not at all.
func (s *Service) IssueForQuizPass(ctx context.Context, userID id.UserID, quizID id.QuizID) (*models.Certificate, error) {
	if quizID.IsNil() {
		return nil, dErrors.New(dErrors.CodeBadRequest, "quiz_id is required")
	}
	if s.quizzes == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "quiz source is not configured")
	}

	quiz, err := s.quizzes.FindQuiz(ctx, quizID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "quiz not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quiz")
	}

	attempts, err := s.quizzes.ListAttempts(ctx, userID, quizID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load quiz attempts")
	}
	passed := false
	for _, a := range attempts {
		if a.Passed {
			passed = true
			break
		}
	}
	if !passed {
		return nil, dErrors.New(dErrors.CodeNotEligible, "no passing quiz attempt")
	}

	recordID := quizRecordID(userID, quizID)
	if _, err := s.records.FindByID(ctx, recordID); err == nil {
		// An earlier submission already synthesized the record; the normal
		// path handles returning its certificate.
		return s.IssueIfEligible(ctx, userID, recordID)
	} else if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check synthesized record")
	}

	now := requestcontext.Now(ctx)
	record := &recmodels.CpdRecord{
		ID:           recordID,
		UserID:       userID,
		Title:        quiz.Title,
		Hours:        quiz.CPDHours,
		Date:         now,
		ActivityType: recmodels.ActivityStructured,
		Category:     quiz.Category,
		Status:       recmodels.StatusCompleted,
		Source:       recmodels.SourcePlatform,
		Strength:     recmodels.StrengthProviderVerified,
		Notes:        recmodels.NotesDoc{"quizId": quizID.String()},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	return s.issueForSynthesized(ctx, record)
}

// IssueForSyntheticRecord creates an externally synthesized record together
// with its certificate in one transaction. The provider-event pathway builds
// the record from the event payload and hands it here.
func (s *Service) IssueForSyntheticRecord(ctx context.Context, record *recmodels.CpdRecord) (*models.Certificate, error) {
	if record == nil {
		return nil, dErrors.New(dErrors.CodeBadRequest, "record is required")
	}
	return s.issueForSynthesized(ctx, record)
}

func (s *Service) issueForSynthesized(ctx context.Context, record *recmodels.CpdRecord) (*models.Certificate, error) {
	var cert *models.Certificate
	err := s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.records.Create(ctx, record); err != nil {
			return err
		}
		created, err := s.createWithFreshCode(ctx, record.UserID, record.ID, record.Hours, record.Category)
		if err != nil {
			return err
		}
		cert = created
		return nil
	})
	if err != nil {
		// A concurrent submission created the record first. Its transaction
		// also created the certificate, so re-issue resolves to it.
		if errors.Is(err, sentinel.ErrConflict) {
			return s.IssueIfEligible(ctx, record.UserID, record.ID)
		}
		if dErrors.HasCode(err, dErrors.CodeInternal) {
			return nil, err
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to synthesize record")
	}
	s.metrics.IncrementSynthesized()
	s.metrics.IncrementIssued()

	if s.audit != nil {
		now := requestcontext.Now(ctx)
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: now,
			UserID:    record.UserID,
			Subject:   record.ID.String(),
			Action:    string(audit.EventRecordSynthesized),
			Detail:    string(record.Source),
			RequestID: requestcontext.RequestID(ctx),
		})
		_ = s.audit.Emit(ctx, audit.Event{
			Timestamp: now,
			UserID:    record.UserID,
			Subject:   cert.Code,
			Action:    string(audit.EventCertificateIssued),
			RequestID: requestcontext.RequestID(ctx),
		})
	}
	s.logger.InfoContext(ctx, "record synthesized and certificate issued",
		"record_id", record.ID,
		"source", record.Source,
		"code", cert.Code,
	)
	return cert, nil
}
