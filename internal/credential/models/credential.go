package models

import (
	"encoding/json"
	"time"

	id "cpdtrack/pkg/domain"
)

// Requirements is the numeric core of a rule set: the hour totals a holder
// must reach within one cycle.
type Requirements struct {
	TotalHours      float64 `json:"total_hours"`
	EthicsHours     float64 `json:"ethics_hours"`
	StructuredHours float64 `json:"structured_hours"`
	CycleYears      int     `json:"cycle_years"`
}

// Credential is immutable reference data for a professional designation.
//
// Invariants:
//   - Name and IssuingBody are non-empty
//   - Region is an ISO 3166-1 alpha-2 country code
//   - BaseRequirements acts as the implicit version-0 rule pack: it applies
//     whenever no explicit RulePack covers the as-of date
type Credential struct {
	ID          id.CredentialID `json:"id"`
	Name        string          `json:"name"`
	IssuingBody string          `json:"issuing_body"`
	Region      string          `json:"region"`
	Vertical    string          `json:"vertical"`

	BaseRequirements Requirements `json:"base_requirements"`

	// CategoryRules is a free-form document describing category-level
	// constraints (e.g. maximum self-study hours). Opaque to the engine.
	CategoryRules json.RawMessage `json:"category_rules,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
