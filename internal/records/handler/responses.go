package handler

import (
	"time"

	"cpdtrack/internal/records/models"
)

// RecordResponse is the HTTP shape of a CPD record.
type RecordResponse struct {
	ID           string          `json:"id"`
	Title        string          `json:"title"`
	Hours        float64         `json:"hours"`
	Date         time.Time       `json:"date"`
	ActivityType string          `json:"activity_type"`
	Category     string          `json:"category,omitempty"`
	Status       string          `json:"status"`
	Source       string          `json:"source"`
	Strength     string          `json:"strength"`
	ActivityID   string          `json:"activity_id,omitempty"`
	Notes        models.NotesDoc `json:"notes,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
}

// FromRecord converts a domain CpdRecord to an HTTP response.
func FromRecord(r *models.CpdRecord) RecordResponse {
	resp := RecordResponse{
		ID:           r.ID.String(),
		Title:        r.Title,
		Hours:        r.Hours,
		Date:         r.Date,
		ActivityType: string(r.ActivityType),
		Category:     r.Category,
		Status:       string(r.Status),
		Source:       string(r.Source),
		Strength:     string(r.Strength),
		Notes:        r.Notes,
		CreatedAt:    r.CreatedAt,
		UpdatedAt:    r.UpdatedAt,
	}
	if r.ActivityID != nil {
		resp.ActivityID = r.ActivityID.String()
	}
	return resp
}

// AllocationResponse is the HTTP shape of one allocation.
type AllocationResponse struct {
	RecordID         string  `json:"record_id"`
	UserCredentialID string  `json:"user_credential_id"`
	Hours            float64 `json:"hours"`
}

// FromAllocation converts a domain Allocation to an HTTP response.
func FromAllocation(a models.Allocation) AllocationResponse {
	return AllocationResponse{
		RecordID:         a.RecordID.String(),
		UserCredentialID: a.UserCredentialID.String(),
		Hours:            a.Hours,
	}
}

// AllocationResultResponse is the HTTP response for a successful replace.
type AllocationResultResponse struct {
	Allocations    []AllocationResponse `json:"allocations"`
	TotalAllocated float64              `json:"total_allocated"`
	Unallocated    float64              `json:"unallocated"`
}

// FromAllocationResult converts a domain AllocationResult to an HTTP
// response.
func FromAllocationResult(result *models.AllocationResult) AllocationResultResponse {
	out := AllocationResultResponse{
		Allocations:    make([]AllocationResponse, 0, len(result.Allocations)),
		TotalAllocated: result.TotalAllocated,
		Unallocated:    result.Unallocated,
	}
	for _, a := range result.Allocations {
		out.Allocations = append(out.Allocations, FromAllocation(a))
	}
	return out
}
