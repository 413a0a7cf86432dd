package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/completion/ports"
	"cpdtrack/internal/records/models"
	recordStore "cpdtrack/internal/records/store/record"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// =============================================================================
// Completion Evaluation Test Suite
// =============================================================================
// Justification for unit tests: evaluation ANDs heterogeneous rule results and
// must fail closed on anything it cannot interpret. A false positive here
// issues a certificate for unfinished work, so every strategy and the unknown
// and malformed paths are pinned down.

type CompletionSuite struct {
	suite.Suite
	records  *recordStore.InMemory
	rules    *ports.InMemoryRuleStore
	quizzes  *ports.InMemoryQuizSource
	evidence *ports.InMemoryEvidenceCounter
	service  *Service
	userID   id.UserID
}

func TestCompletionSuite(t *testing.T) {
	suite.Run(t, new(CompletionSuite))
}

func (s *CompletionSuite) SetupTest() {
	s.records = recordStore.NewInMemory()
	s.rules = ports.NewInMemoryRuleStore()
	s.quizzes = ports.NewInMemoryQuizSource()
	s.evidence = ports.NewInMemoryEvidenceCounter()
	s.userID = id.UserID(uuid.New())

	var err error
	s.service, err = New(s.records, s.rules, s.quizzes, s.evidence)
	s.Require().NoError(err)
}

func (s *CompletionSuite) newRecord(notes models.NotesDoc) *models.CpdRecord {
	now := time.Now().UTC()
	record, err := models.NewRecord(id.RecordID(uuid.New()), s.userID,
		"Regulatory Update Webinar", 1, now, models.ActivityVerifiable, now)
	s.Require().NoError(err)
	record.Notes = notes
	s.Require().NoError(s.records.Create(context.Background(), record))
	return record
}

func (s *CompletionSuite) attach(recordID id.RecordID, ruleType models.RuleType, config string) {
	s.Require().NoError(s.rules.Attach(context.Background(), models.CompletionRule{
		ID:       id.RuleID(uuid.New()),
		RecordID: recordID,
		Type:     ruleType,
		Config:   json.RawMessage(config),
		Active:   true,
	}))
}

// =============================================================================
// Evaluate Tests
// =============================================================================

func (s *CompletionSuite) TestEvaluate() {
	ctx := context.Background()

	s.Run("unknown record returns not found", func() {
		_, err := s.service.Evaluate(ctx, s.userID, id.RecordID(uuid.New()))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("someone else's record reads as not found", func() {
		record := s.newRecord(nil)
		_, err := s.service.Evaluate(ctx, id.UserID(uuid.New()), record.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("zero active rules is trivially complete", func() {
		record := s.newRecord(nil)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
		s.True(eval.EligibleForCertificate)
		s.Empty(eval.Rules)
	})

	s.Run("inactive rules are skipped", func() {
		record := s.newRecord(nil)
		s.Require().NoError(s.rules.Attach(ctx, models.CompletionRule{
			ID:       id.RuleID(uuid.New()),
			RecordID: record.ID,
			Type:     models.RuleAttendance,
			Config:   json.RawMessage(`{"confirmation_required":true}`),
			Active:   false,
		}))

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
		s.Empty(eval.Rules)
	})

	s.Run("one failing rule fails the whole evaluation", func() {
		record := s.newRecord(models.NotesDoc{"attendanceConfirmed": true})
		s.attach(record.ID, models.RuleAttendance, `{"confirmation_required":true}`)
		s.attach(record.ID, models.RuleEvidenceUpload, `{"min_files":1}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Require().Len(eval.Rules, 2)
		s.False(eval.AllPassed)
		s.False(eval.EligibleForCertificate)
	})

	s.Run("unknown rule type fails closed", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleType("biometric_scan"), `{}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Require().Len(eval.Rules, 1)
		s.False(eval.Rules[0].Passed)
		s.Equal("unknown rule type", eval.Rules[0].Detail)
		s.False(eval.AllPassed)
	})

	s.Run("malformed config fails closed without error", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleQuizPass, `{not json`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Require().Len(eval.Rules, 1)
		s.False(eval.Rules[0].Passed)
		s.False(eval.AllPassed)
	})
}

// =============================================================================
// Quiz Pass Rule Tests
// =============================================================================

func (s *CompletionSuite) TestQuizPassRule() {
	ctx := context.Background()

	s.Run("passing attempt satisfies the rule", func() {
		record := s.newRecord(nil)
		quizID := id.QuizID(uuid.New())
		s.quizzes.RecordAttempt(models.QuizAttempt{
			QuizID: quizID, UserID: s.userID, Score: 85, Passed: true, AttemptedAt: time.Now().UTC(),
		})
		s.attach(record.ID, models.RuleQuizPass, `{"quiz_id":"`+quizID.String()+`"}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})

	s.Run("min_score override ignores the quiz verdict", func() {
		record := s.newRecord(nil)
		quizID := id.QuizID(uuid.New())
		s.quizzes.RecordAttempt(models.QuizAttempt{
			QuizID: quizID, UserID: s.userID, Score: 70, Passed: true, AttemptedAt: time.Now().UTC(),
		})
		s.attach(record.ID, models.RuleQuizPass, `{"quiz_id":"`+quizID.String()+`","min_score":100}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)
	})

	s.Run("no attempts fails the rule", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleQuizPass, `{"quiz_id":"`+uuid.NewString()+`"}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)
	})
}

// =============================================================================
// Evidence, Watch Time, and Attendance Rule Tests
// =============================================================================

func (s *CompletionSuite) TestEvidenceUploadRule() {
	ctx := context.Background()

	s.Run("enough files pass, too few fail", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleEvidenceUpload, `{"min_files":2}`)

		s.evidence.SetCount(record.ID, 1)
		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)

		s.evidence.SetCount(record.ID, 2)
		eval, err = s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})

	s.Run("min_files defaults to one", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleEvidenceUpload, `{}`)
		s.evidence.SetCount(record.ID, 1)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})
}

func (s *CompletionSuite) TestWatchTimeRule() {
	ctx := context.Background()

	s.Run("watch percent at threshold passes", func() {
		record := s.newRecord(models.NotesDoc{"watchPercent": 90.0})
		s.attach(record.ID, models.RuleWatchTime, `{"min_watch_percent":90}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})

	s.Run("missing watch progress fails", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleWatchTime, `{"min_watch_percent":90}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)
	})

	s.Run("config without threshold fails closed", func() {
		record := s.newRecord(models.NotesDoc{"watchPercent": 100.0})
		s.attach(record.ID, models.RuleWatchTime, `{}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)
	})
}

func (s *CompletionSuite) TestAttendanceRule() {
	ctx := context.Background()

	s.Run("confirmation not required passes unconditionally", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleAttendance, `{"confirmation_required":false}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})

	s.Run("required confirmation reads the record notes", func() {
		record := s.newRecord(models.NotesDoc{"attendanceConfirmed": true})
		s.attach(record.ID, models.RuleAttendance, `{"confirmation_required":true}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.True(eval.AllPassed)
	})

	s.Run("missing confirmation fails", func() {
		record := s.newRecord(nil)
		s.attach(record.ID, models.RuleAttendance, `{"confirmation_required":true}`)

		eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
		s.NoError(err)
		s.False(eval.AllPassed)
	})
}

// Scenario from the product brief: an activity requiring both a quiz score of
// at least 80 and one uploaded evidence file.
func (s *CompletionSuite) TestCombinedQuizAndEvidence() {
	ctx := context.Background()

	record := s.newRecord(nil)
	quizID := id.QuizID(uuid.New())
	s.attach(record.ID, models.RuleQuizPass, `{"quiz_id":"`+quizID.String()+`","min_score":80}`)
	s.attach(record.ID, models.RuleEvidenceUpload, `{"min_files":1}`)

	s.quizzes.RecordAttempt(models.QuizAttempt{
		QuizID: quizID, UserID: s.userID, Score: 70, AttemptedAt: time.Now().UTC(),
	})
	eval, err := s.service.Evaluate(ctx, s.userID, record.ID)
	s.NoError(err)
	s.False(eval.AllPassed)

	s.quizzes.RecordAttempt(models.QuizAttempt{
		QuizID: quizID, UserID: s.userID, Score: 100, AttemptedAt: time.Now().UTC(),
	})
	eval, err = s.service.Evaluate(ctx, s.userID, record.ID)
	s.NoError(err)
	s.False(eval.AllPassed, "evidence still missing")

	s.evidence.SetCount(record.ID, 1)
	eval, err = s.service.Evaluate(ctx, s.userID, record.ID)
	s.NoError(err)
	s.True(eval.AllPassed)
	s.True(eval.EligibleForCertificate)
}
