package handler

import (
	"strings"
	"time"

	"cpdtrack/internal/records/models"
	"cpdtrack/internal/records/service"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// CreateRecordRequest is the HTTP request body for POST /records.
type CreateRecordRequest struct {
	Title        string          `json:"title"`
	Hours        float64         `json:"hours"`
	Date         string          `json:"date"`
	ActivityType string          `json:"activity_type"`
	Category     string          `json:"category"`
	Strength     string          `json:"strength"`
	Notes        models.NotesDoc `json:"notes"`

	parsedDate time.Time
}

// Validate validates and parses the request.
// Implements the Validatable interface for httputil.DecodeAndPrepare.
func (r *CreateRecordRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Title = strings.TrimSpace(r.Title)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeValidation, "title is required")
	}
	if r.Hours <= 0 {
		return dErrors.New(dErrors.CodeValidation, "hours must be positive")
	}
	if r.Hours > models.MaxRecordHours {
		return dErrors.New(dErrors.CodeValidation, "hours exceed the single activity cap")
	}

	r.Date = strings.TrimSpace(r.Date)
	if r.Date == "" {
		return dErrors.New(dErrors.CodeValidation, "date is required")
	}
	parsed, err := time.Parse("2006-01-02", r.Date)
	if err != nil {
		return dErrors.New(dErrors.CodeValidation, "date must be a YYYY-MM-DD date")
	}
	r.parsedDate = parsed

	switch models.ActivityType(r.ActivityType) {
	case models.ActivityStructured, models.ActivityUnstructured, models.ActivityVerifiable:
	default:
		return dErrors.New(dErrors.CodeValidation, "unknown activity_type")
	}
	if r.Strength != "" && models.EvidenceStrength(r.Strength).Rank() < 0 {
		return dErrors.New(dErrors.CodeValidation, "unknown strength")
	}
	return nil
}

func (r *CreateRecordRequest) Input() service.CreateRecordInput {
	return service.CreateRecordInput{
		Title:        r.Title,
		Hours:        r.Hours,
		Date:         r.parsedDate,
		ActivityType: models.ActivityType(r.ActivityType),
		Category:     strings.TrimSpace(r.Category),
		Strength:     models.EvidenceStrength(r.Strength),
		Notes:        r.Notes,
	}
}

// UpgradeStrengthRequest is the HTTP request body for POST
// /records/{recordID}/strength.
type UpgradeStrengthRequest struct {
	Strength string `json:"strength"`
}

// Validate validates the request.
func (r *UpgradeStrengthRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if models.EvidenceStrength(r.Strength).Rank() < 0 {
		return dErrors.New(dErrors.CodeValidation, "unknown strength")
	}
	return nil
}

func (r *UpgradeStrengthRequest) ParsedStrength() models.EvidenceStrength {
	return models.EvidenceStrength(r.Strength)
}

// ReplaceAllocationsRequest is the HTTP request body for PUT
// /records/{recordID}/allocations.
type ReplaceAllocationsRequest struct {
	Allocations []AllocationInputBody `json:"allocations"`

	parsed []models.AllocationInput
}

// AllocationInputBody is one requested split.
type AllocationInputBody struct {
	UserCredentialID string  `json:"user_credential_id"`
	Hours            float64 `json:"hours"`
}

// Validate parses the credential IDs. Hour arithmetic is the ledger's
// responsibility; the handler only establishes shape.
func (r *ReplaceAllocationsRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.parsed = make([]models.AllocationInput, 0, len(r.Allocations))
	for _, in := range r.Allocations {
		ucID, err := id.ParseUserCredentialID(in.UserCredentialID)
		if err != nil {
			return err
		}
		r.parsed = append(r.parsed, models.AllocationInput{
			UserCredentialID: ucID,
			Hours:            in.Hours,
		})
	}
	return nil
}

func (r *ReplaceAllocationsRequest) Inputs() []models.AllocationInput {
	return r.parsed
}
