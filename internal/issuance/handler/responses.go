package handler

import (
	"time"

	"cpdtrack/internal/issuance/models"
)

// CertificateResponse is the HTTP shape of a certificate for its owner.
type CertificateResponse struct {
	ID              string     `json:"id"`
	Code            string     `json:"code"`
	RecordID        string     `json:"record_id,omitempty"`
	Hours           float64    `json:"hours"`
	Category        string     `json:"category,omitempty"`
	Status          string     `json:"status"`
	VerificationURL string     `json:"verification_url"`
	IssuedAt        time.Time  `json:"issued_at"`
	RevokedAt       *time.Time `json:"revoked_at,omitempty"`
}

// FromCertificate converts a domain Certificate to an HTTP response.
func FromCertificate(c *models.Certificate) CertificateResponse {
	resp := CertificateResponse{
		ID:              c.ID.String(),
		Code:            c.Code,
		Hours:           c.Hours,
		Category:        c.Category,
		Status:          string(c.Status),
		VerificationURL: c.VerificationURL,
		IssuedAt:        c.IssuedAt,
		RevokedAt:       c.RevokedAt,
	}
	if c.RecordID != nil {
		resp.RecordID = c.RecordID.String()
	}
	return resp
}

// VerificationResponse is the public shape returned to external verifiers.
// It deliberately excludes the owner and record identifiers.
type VerificationResponse struct {
	Code      string     `json:"code"`
	Status    string     `json:"status"`
	Hours     float64    `json:"hours"`
	Category  string     `json:"category,omitempty"`
	IssuedAt  time.Time  `json:"issued_at"`
	RevokedAt *time.Time `json:"revoked_at,omitempty"`
}

// FromVerification converts a certificate to its public verification shape.
func FromVerification(c *models.Certificate) VerificationResponse {
	return VerificationResponse{
		Code:      c.Code,
		Status:    string(c.Status),
		Hours:     c.Hours,
		Category:  c.Category,
		IssuedAt:  c.IssuedAt,
		RevokedAt: c.RevokedAt,
	}
}
