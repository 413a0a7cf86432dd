package certificate

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"cpdtrack/internal/issuance/models"
	id "cpdtrack/pkg/domain"
	"cpdtrack/pkg/platform/sentinel"
)

type CertificateStoreSuite struct {
	suite.Suite
	store *InMemory
	ctx   context.Context
}

func (s *CertificateStoreSuite) SetupTest() {
	s.store = NewInMemory()
	s.ctx = context.Background()
}

func TestCertificateStoreSuite(t *testing.T) {
	suite.Run(t, new(CertificateStoreSuite))
}

func (s *CertificateStoreSuite) newCertificate(code string) *models.Certificate {
	recordID := id.RecordID(uuid.New())
	return &models.Certificate{
		ID:       id.CertificateID(uuid.New()),
		UserID:   id.UserID(uuid.New()),
		RecordID: &recordID,
		Code:     code,
		Hours:    2,
		Category: "technical",
		Status:   models.StatusActive,
		IssuedAt: time.Now().UTC(),
	}
}

// TestCreationAndLookups verifies the store creates and retrieves certificates.
func (s *CertificateStoreSuite) TestCreationAndLookups() {
	s.Run("creates and finds by ID, record, and code", func() {
		cert := s.newCertificate("CPD-2026-ABCDEFGHJK")
		s.Require().NoError(s.store.Create(s.ctx, cert))

		found, err := s.store.FindByID(s.ctx, cert.ID)
		s.Require().NoError(err)
		s.Equal(cert.Code, found.Code)

		found, err = s.store.FindByRecord(s.ctx, *cert.RecordID)
		s.Require().NoError(err)
		s.Equal(cert.ID, found.ID)

		found, err = s.store.FindByCode(s.ctx, cert.Code)
		s.Require().NoError(err)
		s.Equal(cert.ID, found.ID)
	})

	s.Run("returns ErrNotFound for unknown lookups", func() {
		_, err := s.store.FindByID(s.ctx, id.CertificateID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByRecord(s.ctx, id.RecordID(uuid.New()))
		s.Require().ErrorIs(err, sentinel.ErrNotFound)

		_, err = s.store.FindByCode(s.ctx, "CPD-2026-ZZZZZZZZZZ")
		s.Require().ErrorIs(err, sentinel.ErrNotFound)
	})

	s.Run("code lookup normalizes case and whitespace", func() {
		cert := s.newCertificate("CPD-2026-BCDFGHJKLM")
		s.Require().NoError(s.store.Create(s.ctx, cert))

		found, err := s.store.FindByCode(s.ctx, "  cpd-2026-bcdfghjklm ")
		s.Require().NoError(err)
		s.Equal(cert.ID, found.ID)
	})
}

// TestUniqueness verifies both uniqueness constraints surface as ErrConflict.
func (s *CertificateStoreSuite) TestUniqueness() {
	s.Run("rejects duplicate code", func() {
		first := s.newCertificate("CPD-2026-CDFGHJKLMN")
		second := s.newCertificate("CPD-2026-CDFGHJKLMN")
		s.Require().NoError(s.store.Create(s.ctx, first))

		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})

	s.Run("rejects second certificate for the same record", func() {
		first := s.newCertificate("CPD-2026-DFGHJKLMNP")
		second := s.newCertificate("CPD-2026-FGHJKLMNPQ")
		second.RecordID = first.RecordID
		s.Require().NoError(s.store.Create(s.ctx, first))

		err := s.store.Create(s.ctx, second)
		s.Require().ErrorIs(err, sentinel.ErrConflict)
	})
}

// TestListByUser verifies per-user listing.
func (s *CertificateStoreSuite) TestListByUser() {
	userID := id.UserID(uuid.New())

	first := s.newCertificate("CPD-2026-GHJKLMNPQR")
	first.UserID = userID
	second := s.newCertificate("CPD-2026-HJKLMNPQRS")
	second.UserID = userID
	other := s.newCertificate("CPD-2026-JKLMNPQRST")

	s.Require().NoError(s.store.Create(s.ctx, first))
	s.Require().NoError(s.store.Create(s.ctx, second))
	s.Require().NoError(s.store.Create(s.ctx, other))

	certs, err := s.store.ListByUser(s.ctx, userID)
	s.Require().NoError(err)
	s.Len(certs, 2)
}

// TestUpdate verifies revocation state persists.
func (s *CertificateStoreSuite) TestUpdate() {
	cert := s.newCertificate("CPD-2026-KLMNPQRSTU")
	s.Require().NoError(s.store.Create(s.ctx, cert))

	now := time.Now().UTC()
	s.Require().NoError(cert.Revoke(now))
	s.Require().NoError(s.store.Update(s.ctx, cert))

	found, err := s.store.FindByID(s.ctx, cert.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusRevoked, found.Status)
	s.NotNil(found.RevokedAt)
}
