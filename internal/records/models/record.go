package models

import (
	"time"

	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
)

// ActivityType classifies how a record's learning was delivered.
type ActivityType string

const (
	ActivityStructured   ActivityType = "structured"
	ActivityUnstructured ActivityType = "unstructured"
	ActivityVerifiable   ActivityType = "verifiable"
)

// CountsAsStructured reports whether hours of this type satisfy structured
// requirements. Verifiable activity is structured by definition.
func (t ActivityType) CountsAsStructured() bool {
	return t == ActivityStructured || t == ActivityVerifiable
}

// RecordStatus is the completion state of a record. Only completed records
// count toward compliance.
type RecordStatus string

const (
	StatusCompleted  RecordStatus = "completed"
	StatusInProgress RecordStatus = "in_progress"
	StatusPlanned    RecordStatus = "planned"
)

// RecordSource is the provenance of a record.
type RecordSource string

const (
	SourceManual   RecordSource = "manual"
	SourcePlatform RecordSource = "platform"
	SourceAuto     RecordSource = "auto"
	SourceImport   RecordSource = "import"
)

// EvidenceStrength ranks how well-substantiated a record is. The rank is
// monotonic: a record's strength may only increase, never decrease.
type EvidenceStrength string

const (
	StrengthManualOnly          EvidenceStrength = "manual_only"
	StrengthURLOnly             EvidenceStrength = "url_only"
	StrengthCertificateAttached EvidenceStrength = "certificate_attached"
	StrengthProviderVerified    EvidenceStrength = "provider_verified"
)

var strengthRank = map[EvidenceStrength]int{
	StrengthManualOnly:          0,
	StrengthURLOnly:             1,
	StrengthCertificateAttached: 2,
	StrengthProviderVerified:    3,
}

// Rank returns the strength's position on the ordered scale, -1 for unknown
// values so they never win a comparison.
func (s EvidenceStrength) Rank() int {
	r, ok := strengthRank[s]
	if !ok {
		return -1
	}
	return r
}

// MaxRecordHours caps a single logged activity. Regulators do not recognize
// single sittings beyond this.
const MaxRecordHours = 100.0

// CategoryEthics is the category whose hours satisfy ethics requirements.
const CategoryEthics = "ethics"

// NotesDoc is the record's free-form notes document. Collaborators (video
// player, event check-in) write signal keys here: watchPercent,
// attendanceConfirmed.
type NotesDoc map[string]any

// Float reads a numeric key, tolerating the JSON number decoding variants.
func (n NotesDoc) Float(key string) (float64, bool) {
	v, ok := n[key]
	if !ok {
		return 0, false
	}
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	}
	return 0, false
}

func (n NotesDoc) Bool(key string) (bool, bool) {
	v, ok := n[key]
	if !ok {
		return false, false
	}
	b, ok := v.(bool)
	return b, ok
}

// CpdRecord is one loggable unit of continuing education, owned by exactly
// one user.
type CpdRecord struct {
	ID     id.RecordID `json:"id"`
	UserID id.UserID   `json:"user_id"`

	Title        string       `json:"title"`
	Hours        float64      `json:"hours"`
	Date         time.Time    `json:"date"`
	ActivityType ActivityType `json:"activity_type"`
	Category     string       `json:"category"`

	Status   RecordStatus     `json:"status"`
	Source   RecordSource     `json:"source"`
	Strength EvidenceStrength `json:"strength"`

	// ActivityID links platform/auto records back to the catalog activity
	// that produced them; nil for manual records.
	ActivityID *id.ActivityID `json:"activity_id,omitempty"`

	Notes NotesDoc `json:"notes,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func NewRecord(recordID id.RecordID, userID id.UserID, title string, hours float64, date time.Time, activityType ActivityType, now time.Time) (*CpdRecord, error) {
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "record title is required")
	}
	if hours <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "record hours must be positive")
	}
	if hours > MaxRecordHours {
		return nil, dErrors.New(dErrors.CodeValidation, "record hours exceed the per-activity cap")
	}
	return &CpdRecord{
		ID:           recordID,
		UserID:       userID,
		Title:        title,
		Hours:        hours,
		Date:         date,
		ActivityType: activityType,
		Status:       StatusInProgress,
		Source:       SourceManual,
		Strength:     StrengthManualOnly,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// IsEthics reports whether the record's hours satisfy ethics requirements.
func (r *CpdRecord) IsEthics() bool { return r.Category == CategoryEthics }

// UpgradeStrength applies the monotonic strength policy: the new strength is
// written only when it outranks the current one. Returns whether a write
// happened. Downgrades and unknown values are no-ops, never errors, so a
// weaker late-arriving signal cannot erase a stronger one.
func (r *CpdRecord) UpgradeStrength(next EvidenceStrength, now time.Time) bool {
	if next.Rank() <= r.Strength.Rank() {
		return false
	}
	r.Strength = next
	r.UpdatedAt = now
	return true
}

// Complete transitions the record to completed.
func (r *CpdRecord) Complete(now time.Time) {
	r.Status = StatusCompleted
	r.UpdatedAt = now
}
