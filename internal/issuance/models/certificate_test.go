package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	dErrors "cpdtrack/pkg/domain-errors"
)

// =============================================================================
// Certificate Model Test Suite
// =============================================================================
// Justification for unit tests: the code format is a public contract with
// printed certificates; external verifiers parse it long after issuance.

type CertificateSuite struct {
	suite.Suite
}

func TestCertificateSuite(t *testing.T) {
	suite.Run(t, new(CertificateSuite))
}

// =============================================================================
// Code Generation and Parsing Tests
// =============================================================================

func (s *CertificateSuite) TestGenerateCode() {
	s.Run("generated codes parse back to the issuance year", func() {
		code, err := GenerateCode(2026)
		s.Require().NoError(err)
		s.True(strings.HasPrefix(code, "CPD-2026-"))

		year, err := ParseCertificateCode(code)
		s.NoError(err)
		s.Equal(2026, year)
	})

	s.Run("ambiguous characters never appear in the suffix", func() {
		for i := 0; i < 20; i++ {
			code, err := GenerateCode(2026)
			s.Require().NoError(err)
			suffix := code[len("CPD-2026-"):]
			s.NotContains(suffix, "0")
			s.NotContains(suffix, "O")
			s.NotContains(suffix, "1")
			s.NotContains(suffix, "I")
		}
	})

	s.Run("successive codes differ", func() {
		a, err := GenerateCode(2026)
		s.Require().NoError(err)
		b, err := GenerateCode(2026)
		s.Require().NoError(err)
		s.NotEqual(a, b)
	})
}

func (s *CertificateSuite) TestParseCertificateCode() {
	s.Run("malformed codes are rejected", func() {
		for _, code := range []string{
			"",
			"CPD-2026",
			"CPD-2026-SHORT",
			"XYZ-2026-ABCDEFGHJK",
			"CPD-26-ABCDEFGHJKL",
			"CPD-2026-ABCDEFGH0K", // excluded character
			"cpd-2026-abcdefghjk", // lowercase
		} {
			_, err := ParseCertificateCode(code)
			s.Error(err, code)
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), code)
		}
	})
}

// =============================================================================
// Revocation Tests
// =============================================================================

func (s *CertificateSuite) TestRevoke() {
	now := time.Now().UTC()

	s.Run("active certificate revokes", func() {
		cert := &Certificate{Status: StatusActive}
		s.NoError(cert.Revoke(now))
		s.Equal(StatusRevoked, cert.Status)
		s.Require().NotNil(cert.RevokedAt)
		s.True(cert.RevokedAt.Equal(now))
	})

	s.Run("double revocation is a conflict", func() {
		cert := &Certificate{Status: StatusActive}
		s.Require().NoError(cert.Revoke(now))

		err := cert.Revoke(now.Add(time.Hour))
		s.Error(err)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})
}
