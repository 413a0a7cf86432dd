package models

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strconv"
	"time"

	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

type CertificateStatus string

const (
	StatusActive  CertificateStatus = "active"
	StatusRevoked CertificateStatus = "revoked"
)

// codeAlphabet excludes 0, O, 1 and I so codes survive being read aloud or
// retyped from print.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const (
	codePrefix    = "CPD"
	codeSuffixLen = 10
)

var codePattern = regexp.MustCompile(`^CPD-(\d{4})-([` + codeAlphabet + `]{10})$`)

// Certificate records an issued completion credential. Revocation is a
// status transition; certificate rows are never deleted, so a code once
// issued stays resolvable forever.
type Certificate struct {
	ID       id.CertificateID  `json:"id"`
	UserID   id.UserID         `json:"user_id"`
	RecordID *id.RecordID      `json:"record_id,omitempty"`
	Code     string            `json:"code"`
	Hours    float64           `json:"hours"`
	Category string            `json:"category"`
	Status   CertificateStatus `json:"status"`

	VerificationURL string     `json:"verification_url"`
	IssuedAt        time.Time  `json:"issued_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

// GenerateCode builds a fresh certificate code: CPD-<year>-<10 char random
// suffix>. With a 32-symbol alphabet the suffix has over 10^15 values, so the
// storage uniqueness constraint is a backstop, not an expected path.
func GenerateCode(year int) (string, error) {
	suffix := make([]byte, codeSuffixLen)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range suffix {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate certificate code: %w", err)
		}
		suffix[i] = codeAlphabet[n.Int64()]
	}
	return fmt.Sprintf("%s-%d-%s", codePrefix, year, suffix), nil
}

// ParseCertificateCode checks a code's shape and extracts the issuance year.
// External verifiers call this before any lookup so malformed codes are
// rejected without touching storage.
func ParseCertificateCode(code string) (int, error) {
	m := codePattern.FindStringSubmatch(code)
	if m == nil {
		return 0, dErrors.New(dErrors.CodeValidation, "malformed certificate code")
	}
	year, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, "malformed certificate code")
	}
	return year, nil
}

// Revoke transitions the certificate to revoked. Revoking an already revoked
// certificate is rejected.
func (c *Certificate) Revoke(now time.Time) error {
	if c.Status == StatusRevoked {
		return dErrors.New(dErrors.CodeConflict, "certificate is already revoked")
	}
	c.Status = StatusRevoked
	c.RevokedAt = &now
	return nil
}
