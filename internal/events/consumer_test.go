package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/completion/ports"
	completionservice "cpdtrack/internal/completion/service"
	issuanceservice "cpdtrack/internal/issuance/service"
	certificateStore "cpdtrack/internal/issuance/store/certificate"
	"cpdtrack/internal/platform/kafka"
	recmodels "cpdtrack/internal/records/models"
	recordStore "cpdtrack/internal/records/store/record"
	id "cpdtrack/pkg/domain"
)

// =============================================================================
// Provider Event Consumer Test Suite
// =============================================================================
// Justification for unit tests: the consumer decides per message whether to
// acknowledge, retry, or treat it as a duplicate. Getting that wrong either
// double-issues certificates or wedges the partition on a poison message.

type ConsumerSuite struct {
	suite.Suite
	keys         *InMemoryIdempotencyStore
	certificates *certificateStore.InMemory
	records      *recordStore.InMemory
	handler      *Handler
	userID       id.UserID
}

func TestConsumerSuite(t *testing.T) {
	suite.Run(t, new(ConsumerSuite))
}

func (s *ConsumerSuite) SetupTest() {
	s.keys = NewInMemoryIdempotencyStore()
	s.certificates = certificateStore.NewInMemory()
	s.records = recordStore.NewInMemory()
	s.userID = id.UserID(uuid.New())

	evaluator, err := completionservice.New(s.records,
		ports.NewInMemoryRuleStore(), ports.NewInMemoryQuizSource(), ports.NewInMemoryEvidenceCounter())
	s.Require().NoError(err)
	issuer, err := issuanceservice.New(s.certificates, evaluator, s.records)
	s.Require().NoError(err)

	s.handler, err = NewHandler(s.keys, issuer)
	s.Require().NoError(err)
}

func (s *ConsumerSuite) message(ev ProviderEvent) *kafka.Message {
	payload, err := json.Marshal(ev)
	s.Require().NoError(err)
	return &kafka.Message{Topic: "cpd.provider.events", Key: []byte(ev.IdempotencyKey), Value: payload}
}

func (s *ConsumerSuite) event(key string) ProviderEvent {
	return ProviderEvent{
		IdempotencyKey: key,
		UserID:         s.userID.String(),
		Title:          "Secure Coding Workshop",
		Hours:          2,
		Category:       "technical",
		OccurredAt:     time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC),
	}
}

// =============================================================================
// Handle Tests
// =============================================================================

func (s *ConsumerSuite) TestHandle() {
	ctx := context.Background()

	s.Run("valid event synthesizes a record and certificate", func() {
		err := s.handler.Handle(ctx, s.message(s.event("prov-1")))
		s.NoError(err)

		certs, err := s.certificates.ListByUser(ctx, s.userID)
		s.Require().NoError(err)
		s.Require().Len(certs, 1)
		s.Require().NotNil(certs[0].RecordID)

		record, err := s.records.FindByID(ctx, *certs[0].RecordID)
		s.Require().NoError(err)
		s.Equal(recmodels.SourceAuto, record.Source)
		s.Equal(recmodels.StatusCompleted, record.Status)
		s.Equal(recmodels.StrengthProviderVerified, record.Strength)
		s.Equal("Secure Coding Workshop", record.Title)
	})

	s.Run("redelivered event does not issue a second certificate", func() {
		msg := s.message(s.event("prov-2"))
		s.Require().NoError(s.handler.Handle(ctx, msg))
		s.Require().NoError(s.handler.Handle(ctx, msg))

		certs, err := s.certificates.ListByUser(ctx, s.userID)
		s.Require().NoError(err)

		count := 0
		for _, c := range certs {
			record, err := s.records.FindByID(ctx, *c.RecordID)
			s.Require().NoError(err)
			if key, ok := record.Notes["idempotencyKey"]; ok && key == "prov-2" {
				count++
			}
		}
		s.Equal(1, count)
	})

	s.Run("distinct keys issue distinct certificates", func() {
		s.Require().NoError(s.handler.Handle(ctx, s.message(s.event("prov-3"))))
		s.Require().NoError(s.handler.Handle(ctx, s.message(s.event("prov-4"))))

		before, err := s.certificates.ListByUser(ctx, s.userID)
		s.Require().NoError(err)
		s.GreaterOrEqual(len(before), 2)
	})

	s.Run("malformed payload is acknowledged without effect", func() {
		msg := &kafka.Message{Topic: "cpd.provider.events", Value: []byte(`{broken`)}
		s.NoError(s.handler.Handle(ctx, msg))
	})

	s.Run("event missing required fields is acknowledged without effect", func() {
		ev := s.event("prov-5")
		ev.Hours = 0
		s.NoError(s.handler.Handle(ctx, s.message(ev)))

		certs, err := s.certificates.ListByUser(ctx, s.userID)
		s.Require().NoError(err)
		for _, c := range certs {
			record, err := s.records.FindByID(ctx, *c.RecordID)
			s.Require().NoError(err)
			s.NotEqual("prov-5", record.Notes["idempotencyKey"])
		}
	})

	s.Run("invalid user id is acknowledged without effect", func() {
		ev := s.event("prov-6")
		ev.UserID = "not-a-uuid"
		s.NoError(s.handler.Handle(ctx, s.message(ev)))
	})

	s.Run("quiz score lands in the record notes", func() {
		ev := s.event("prov-7")
		score := 92.0
		ev.QuizScore = &score
		s.Require().NoError(s.handler.Handle(ctx, s.message(ev)))

		certs, err := s.certificates.ListByUser(ctx, s.userID)
		s.Require().NoError(err)
		found := false
		for _, c := range certs {
			record, err := s.records.FindByID(ctx, *c.RecordID)
			s.Require().NoError(err)
			if record.Notes["idempotencyKey"] == "prov-7" {
				got, ok := record.Notes.Float("quizScore")
				s.True(ok)
				s.InDelta(92.0, got, 1e-9)
				found = true
			}
		}
		s.True(found)
	})
}
