package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/completion/ports"
	completionservice "cpdtrack/internal/completion/service"
	"cpdtrack/internal/issuance/models"
	certificateStore "cpdtrack/internal/issuance/store/certificate"
	recmodels "cpdtrack/internal/records/models"
	recordStore "cpdtrack/internal/records/store/record"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// =============================================================================
// Certificate Issuance Test Suite
// =============================================================================
// Justification for unit tests: issuance must be idempotent under duplicate
// webhooks and double submissions, gate on completion rules, and keep the
// quiz-pass synthesis pathway from ever producing two records for one quiz.

type IssuanceSuite struct {
	suite.Suite
	certificates *certificateStore.InMemory
	records      *recordStore.InMemory
	rules        *ports.InMemoryRuleStore
	quizzes      *ports.InMemoryQuizSource
	evidence     *ports.InMemoryEvidenceCounter
	service      *Service
	userID       id.UserID
}

func TestIssuanceSuite(t *testing.T) {
	suite.Run(t, new(IssuanceSuite))
}

func (s *IssuanceSuite) SetupTest() {
	s.certificates = certificateStore.NewInMemory()
	s.records = recordStore.NewInMemory()
	s.rules = ports.NewInMemoryRuleStore()
	s.quizzes = ports.NewInMemoryQuizSource()
	s.evidence = ports.NewInMemoryEvidenceCounter()
	s.userID = id.UserID(uuid.New())

	evaluator, err := completionservice.New(s.records, s.rules, s.quizzes, s.evidence)
	s.Require().NoError(err)

	s.service, err = New(s.certificates, evaluator, s.records, WithQuizSource(s.quizzes))
	s.Require().NoError(err)
}

func (s *IssuanceSuite) newCompletedRecord() *recmodels.CpdRecord {
	now := time.Now().UTC()
	record, err := recmodels.NewRecord(id.RecordID(uuid.New()), s.userID,
		"GDPR Deep Dive", 2, now, recmodels.ActivityStructured, now)
	s.Require().NoError(err)
	record.Category = "technical"
	record.Complete(now)
	s.Require().NoError(s.records.Create(context.Background(), record))
	return record
}

// =============================================================================
// IssueIfEligible Tests
// =============================================================================

func (s *IssuanceSuite) TestIssueIfEligible() {
	ctx := context.Background()

	s.Run("eligible record gets a certificate", func() {
		record := s.newCompletedRecord()

		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Equal(s.userID, cert.UserID)
		s.Require().NotNil(cert.RecordID)
		s.Equal(record.ID, *cert.RecordID)
		s.Equal(models.StatusActive, cert.Status)
		s.InDelta(record.Hours, cert.Hours, 1e-9)
		s.Contains(cert.VerificationURL, cert.Code)

		_, err = models.ParseCertificateCode(cert.Code)
		s.NoError(err)
	})

	s.Run("repeat issuance returns the same certificate", func() {
		record := s.newCompletedRecord()

		first, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Require().NoError(err)
		second, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Equal(first.ID, second.ID)
		s.Equal(first.Code, second.Code)
	})

	s.Run("unsatisfied completion rules block issuance", func() {
		record := s.newCompletedRecord()
		s.Require().NoError(s.rules.Attach(ctx, recmodels.CompletionRule{
			ID:       id.RuleID(uuid.New()),
			RecordID: record.ID,
			Type:     recmodels.RuleEvidenceUpload,
			Config:   []byte(`{"min_files":1}`),
			Active:   true,
		}))

		_, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	s.Run("unknown record reads as not found", func() {
		_, err := s.service.IssueIfEligible(ctx, s.userID, id.RecordID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("someone else's record reads as not found", func() {
		record := s.newCompletedRecord()
		_, err := s.service.IssueIfEligible(ctx, id.UserID(uuid.New()), record.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Quiz Pass Synthesis Tests
// =============================================================================

func (s *IssuanceSuite) TestIssueForQuizPass() {
	ctx := context.Background()

	quiz := &recmodels.Quiz{
		ID:       id.QuizID(uuid.New()),
		Title:    "AML Fundamentals Quiz",
		PassMark: 80,
		CPDHours: 1.5,
		Category: "technical",
	}
	s.quizzes.AddQuiz(quiz)

	s.Run("no passing attempt blocks issuance", func() {
		s.quizzes.RecordAttempt(recmodels.QuizAttempt{
			QuizID: quiz.ID, UserID: s.userID, Score: 60, Passed: false, AttemptedAt: time.Now().UTC(),
		})

		_, err := s.service.IssueForQuizPass(ctx, s.userID, quiz.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotEligible))
	})

	s.Run("passing attempt synthesizes a record and issues", func() {
		s.quizzes.RecordAttempt(recmodels.QuizAttempt{
			QuizID: quiz.ID, UserID: s.userID, Score: 90, Passed: true, AttemptedAt: time.Now().UTC(),
		})

		cert, err := s.service.IssueForQuizPass(ctx, s.userID, quiz.ID)
		s.NoError(err)
		s.InDelta(quiz.CPDHours, cert.Hours, 1e-9)

		s.Require().NotNil(cert.RecordID)
		record, err := s.records.FindByID(ctx, *cert.RecordID)
		s.Require().NoError(err)
		s.Equal(quiz.Title, record.Title)
		s.Equal(recmodels.SourcePlatform, record.Source)
		s.Equal(recmodels.StatusCompleted, record.Status)
		s.Equal(recmodels.StrengthProviderVerified, record.Strength)
	})

	s.Run("duplicate submission returns the same certificate", func() {
		s.quizzes.RecordAttempt(recmodels.QuizAttempt{
			QuizID: quiz.ID, UserID: s.userID, Score: 90, Passed: true, AttemptedAt: time.Now().UTC(),
		})

		first, err := s.service.IssueForQuizPass(ctx, s.userID, quiz.ID)
		s.Require().NoError(err)
		second, err := s.service.IssueForQuizPass(ctx, s.userID, quiz.ID)
		s.NoError(err)
		s.Equal(first.ID, second.ID)

		certs, err := s.service.ListByUser(ctx, s.userID)
		s.NoError(err)
		s.Len(certs, 1)
	})

	s.Run("unknown quiz reads as not found", func() {
		_, err := s.service.IssueForQuizPass(ctx, s.userID, id.QuizID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

// =============================================================================
// Revoke and Verify Tests
// =============================================================================

func (s *IssuanceSuite) TestRevoke() {
	ctx := context.Background()

	s.Run("owner revokes an active certificate", func() {
		record := s.newCompletedRecord()
		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Require().NoError(err)

		revoked, err := s.service.Revoke(ctx, s.userID, cert.ID)
		s.NoError(err)
		s.Equal(models.StatusRevoked, revoked.Status)
		s.NotNil(revoked.RevokedAt)
	})

	s.Run("double revocation is a conflict", func() {
		record := s.newCompletedRecord()
		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Require().NoError(err)

		_, err = s.service.Revoke(ctx, s.userID, cert.ID)
		s.Require().NoError(err)
		_, err = s.service.Revoke(ctx, s.userID, cert.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("someone else's certificate reads as not found", func() {
		record := s.newCompletedRecord()
		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Require().NoError(err)

		_, err = s.service.Revoke(ctx, id.UserID(uuid.New()), cert.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}

func (s *IssuanceSuite) TestVerifyByCode() {
	ctx := context.Background()

	s.Run("issued code resolves, revoked status shows", func() {
		record := s.newCompletedRecord()
		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Require().NoError(err)

		found, err := s.service.VerifyByCode(ctx, cert.Code)
		s.NoError(err)
		s.Equal(cert.ID, found.ID)
		s.Equal(models.StatusActive, found.Status)

		_, err = s.service.Revoke(ctx, s.userID, cert.ID)
		s.Require().NoError(err)

		found, err = s.service.VerifyByCode(ctx, cert.Code)
		s.NoError(err)
		s.Equal(models.StatusRevoked, found.Status)
	})

	s.Run("malformed code is rejected before lookup", func() {
		_, err := s.service.VerifyByCode(ctx, "not-a-code")
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("well-formed unknown code reads as not found", func() {
		code, err := models.GenerateCode(2026)
		s.Require().NoError(err)

		_, err = s.service.VerifyByCode(ctx, code)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})
}
