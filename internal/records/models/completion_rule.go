package models

import (
	"encoding/json"

	id "cpdtrack/pkg/domain"
)

// RuleType tags a completion rule variant. Evaluation dispatches on this tag
// through a strategy table; unknown tags fail closed.
type RuleType string

const (
	RuleQuizPass       RuleType = "quiz_pass"
	RuleEvidenceUpload RuleType = "evidence_upload"
	RuleWatchTime      RuleType = "watch_time"
	RuleAttendance     RuleType = "attendance"
)

// CompletionRule gates certificate issuance for one record. A record with
// zero active rules is trivially complete.
type CompletionRule struct {
	ID       id.RuleID       `json:"id"`
	RecordID id.RecordID     `json:"record_id"`
	Type     RuleType        `json:"rule_type"`
	Config   json.RawMessage `json:"config"`
	Active   bool            `json:"active"`
}

// RuleResult is one rule's evaluation outcome.
type RuleResult struct {
	RuleType RuleType `json:"rule_type"`
	Passed   bool     `json:"passed"`
	Detail   string   `json:"detail"`
}

// Evaluation is the full completion verdict for a record. AllPassed is the
// pure AND of rule results. EligibleForCertificate currently mirrors
// AllPassed; it stays a separate field so issuance can layer further gates
// without changing this contract.
type Evaluation struct {
	Rules                  []RuleResult `json:"rules"`
	AllPassed              bool         `json:"all_passed"`
	EligibleForCertificate bool         `json:"eligible_for_certificate"`
}
