package models

import (
	"strings"

	id "cpdtrack/pkg/domain"
)

// CountryInternational is the sentinel country code matching any
// jurisdiction. Region-specific and INTL mappings are independent rows; an
// activity may yield both for one credential.
const CountryInternational = "INTL"

// CreditMapping is one jurisdiction-scoped credit value of an activity.
//
// State scoping:
//   - IncludeStates non-empty: the mapping applies only to those states
//   - ExcludeStates non-empty: the mapping applies everywhere except those
//
// Both lists hold uppercase state/province codes.
type CreditMapping struct {
	ID         id.MappingID  `json:"id"`
	ActivityID id.ActivityID `json:"activity_id"`

	Country    string  `json:"country"`
	Credits    float64 `json:"credits"`
	Category   string  `json:"category"`
	Structured bool    `json:"structured"`
	// ValidationMethod names how completion is verified for this
	// jurisdiction: quiz, attendance, certificate, self_declaration.
	ValidationMethod string `json:"validation_method"`

	IncludeStates []string `json:"include_states,omitempty"`
	ExcludeStates []string `json:"exclude_states,omitempty"`

	Active bool `json:"active"`
}

// AppliesTo reports whether this mapping covers a credential registered in
// the given country and state. Inactive mappings never apply.
func (m *CreditMapping) AppliesTo(country, state string) bool {
	if !m.Active {
		return false
	}
	if !strings.EqualFold(m.Country, country) && !strings.EqualFold(m.Country, CountryInternational) {
		return false
	}
	if len(m.IncludeStates) > 0 && !containsFold(m.IncludeStates, state) {
		return false
	}
	if len(m.ExcludeStates) > 0 && containsFold(m.ExcludeStates, state) {
		return false
	}
	return true
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ResolvedCredit is the jurisdiction-resolved credit value the engine hands
// to callers. Summation across entries is the caller's responsibility since
// categories and validation methods may differ per row.
type ResolvedCredit struct {
	MappingID        id.MappingID `json:"mapping_id"`
	Country          string       `json:"country"`
	Credits          float64      `json:"credits"`
	Category         string       `json:"category"`
	Structured       bool         `json:"structured"`
	ValidationMethod string       `json:"validation_method"`
}

// SumCredits totals resolved credit values for callers that want a single
// figure and accept mixing categories.
func SumCredits(credits []ResolvedCredit) float64 {
	var total float64
	for _, c := range credits {
		total += c.Credits
	}
	return total
}
