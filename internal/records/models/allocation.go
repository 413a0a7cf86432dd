package models

import (
	"time"

	id "cpdtrack/pkg/domain"
)

// Allocation assigns a portion of one record's hours to one held credential.
// Unique per (record, credential) pair.
//
// Invariant, enforced at the write boundary by the ledger: the sum of
// allocated hours for a record never exceeds the record's total hours.
type Allocation struct {
	RecordID         id.RecordID         `json:"record_id"`
	UserCredentialID id.UserCredentialID `json:"user_credential_id"`
	Hours            float64             `json:"hours"`
	CreatedAt        time.Time           `json:"created_at"`
}

// AllocationInput is one requested split in a replace-all-allocations call.
type AllocationInput struct {
	UserCredentialID id.UserCredentialID `json:"user_credential_id"`
	Hours            float64             `json:"hours"`
}

// AllocationResult is the outcome of a successful replace.
type AllocationResult struct {
	Allocations    []Allocation `json:"allocations"`
	TotalAllocated float64      `json:"total_allocated"`
	// Unallocated is the remainder of the record's hours, always >= 0.
	Unallocated float64 `json:"unallocated"`
}
