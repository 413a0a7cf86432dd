package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"cpdtrack/internal/issuance/models"
	"cpdtrack/internal/issuance/service/mocks"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/sentinel"
)

// =============================================================================
// Code Collision Test Suite
// =============================================================================
// Justification for unit tests: the conflict branch in issuance is ambiguous
// (code collision vs. concurrent issuance on the same record) and in-memory
// stores cannot be forced into either state on demand.

type CollisionSuite struct {
	suite.Suite
	ctrl          *gomock.Controller
	mockCerts     *mocks.MockCertificateStore
	mockEvaluator *mocks.MockEvaluator
	mockRecords   *mocks.MockRecordStore
	service       *Service
	userID        id.UserID
}

func TestCollisionSuite(t *testing.T) {
	suite.Run(t, new(CollisionSuite))
}

func (s *CollisionSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockCerts = mocks.NewMockCertificateStore(s.ctrl)
	s.mockEvaluator = mocks.NewMockEvaluator(s.ctrl)
	s.mockRecords = mocks.NewMockRecordStore(s.ctrl)
	s.userID = id.UserID(uuid.New())

	var err error
	s.service, err = New(s.mockCerts, s.mockEvaluator, s.mockRecords)
	s.Require().NoError(err)
}

func (s *CollisionSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *CollisionSuite) record() *recmodels.CpdRecord {
	now := time.Now().UTC()
	return &recmodels.CpdRecord{
		ID:       id.RecordID(uuid.New()),
		UserID:   s.userID,
		Title:    "Conflict Scenarios",
		Hours:    1,
		Date:     now,
		Status:   recmodels.StatusCompleted,
		Category: "technical",
	}
}

func (s *CollisionSuite) TestCodeCollisionRetries() {
	ctx := context.Background()
	record := s.record()
	eligible := &recmodels.Evaluation{AllPassed: true, EligibleForCertificate: true}

	s.Run("code collision regenerates and succeeds", func() {
		gomock.InOrder(
			s.mockCerts.EXPECT().FindByRecord(ctx, record.ID).Return(nil, sentinel.ErrNotFound),
			s.mockEvaluator.EXPECT().Evaluate(ctx, s.userID, record.ID).Return(eligible, nil),
			s.mockRecords.EXPECT().FindByID(ctx, record.ID).Return(record, nil),
			s.mockCerts.EXPECT().Create(ctx, gomock.Any()).Return(sentinel.ErrConflict),
			s.mockCerts.EXPECT().FindByRecord(ctx, record.ID).Return(nil, sentinel.ErrNotFound),
			s.mockCerts.EXPECT().Create(ctx, gomock.Any()).Return(nil),
		)

		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.NoError(err)
		s.NotEmpty(cert.Code)
	})

	s.Run("conflict on the record resolves to the concurrent winner", func() {
		record := s.record()
		winner := &models.Certificate{
			ID:     id.CertificateID(uuid.New()),
			UserID: s.userID,
			Code:   "CPD-2026-ABCDEFGHJK",
			Status: models.StatusActive,
		}
		gomock.InOrder(
			s.mockCerts.EXPECT().FindByRecord(ctx, record.ID).Return(nil, sentinel.ErrNotFound),
			s.mockEvaluator.EXPECT().Evaluate(ctx, s.userID, record.ID).Return(eligible, nil),
			s.mockRecords.EXPECT().FindByID(ctx, record.ID).Return(record, nil),
			s.mockCerts.EXPECT().Create(ctx, gomock.Any()).Return(sentinel.ErrConflict),
			s.mockCerts.EXPECT().FindByRecord(ctx, record.ID).Return(winner, nil),
		)

		cert, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.NoError(err)
		s.Equal(winner.ID, cert.ID)
	})

	s.Run("persistent collisions exhaust the retry budget", func() {
		record := s.record()
		s.mockCerts.EXPECT().FindByRecord(ctx, record.ID).Return(nil, sentinel.ErrNotFound).Times(maxCodeAttempts + 1)
		s.mockEvaluator.EXPECT().Evaluate(ctx, s.userID, record.ID).Return(eligible, nil)
		s.mockRecords.EXPECT().FindByID(ctx, record.ID).Return(record, nil)
		s.mockCerts.EXPECT().Create(ctx, gomock.Any()).Return(sentinel.ErrConflict).Times(maxCodeAttempts)

		_, err := s.service.IssueIfEligible(ctx, s.userID, record.ID)
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
