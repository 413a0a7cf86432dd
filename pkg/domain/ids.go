// Package domain defines typed identifiers shared across the engine.
//
// Every entity gets its own uuid-backed ID type so a RecordID can never be
// passed where a UserCredentialID is expected. Parse helpers enforce the
// trust-boundary invariant: IDs must be valid, non-empty, non-nil UUIDs.
package domain

import (
	"github.com/google/uuid"

	dErrors "cpdtrack/pkg/domain-errors"
)

type (
	// UserID identifies a professional tracked by the platform.
	UserID uuid.UUID

	// CredentialID identifies a credential definition (reference data).
	CredentialID uuid.UUID

	// RulePackID identifies one versioned rule set of a credential.
	RulePackID uuid.UUID

	// UserCredentialID identifies a user's holding of a credential.
	UserCredentialID uuid.UUID

	// RecordID identifies a logged CPD activity record.
	RecordID uuid.UUID

	// ActivityID identifies a catalog activity.
	ActivityID uuid.UUID

	// MappingID identifies a jurisdiction-scoped credit mapping row.
	MappingID uuid.UUID

	// RuleID identifies a completion rule attached to a record.
	RuleID uuid.UUID

	// QuizID identifies a quiz in the external quiz subsystem.
	QuizID uuid.UUID

	// CertificateID identifies an issued certificate.
	CertificateID uuid.UUID
)

func (id UserID) String() string           { return uuid.UUID(id).String() }
func (id CredentialID) String() string     { return uuid.UUID(id).String() }
func (id RulePackID) String() string       { return uuid.UUID(id).String() }
func (id UserCredentialID) String() string { return uuid.UUID(id).String() }
func (id RecordID) String() string         { return uuid.UUID(id).String() }
func (id ActivityID) String() string       { return uuid.UUID(id).String() }
func (id MappingID) String() string        { return uuid.UUID(id).String() }
func (id RuleID) String() string           { return uuid.UUID(id).String() }
func (id QuizID) String() string           { return uuid.UUID(id).String() }
func (id CertificateID) String() string    { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id CredentialID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id RulePackID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id UserCredentialID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id RecordID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ActivityID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id MappingID) IsNil() bool        { return uuid.UUID(id) == uuid.Nil }
func (id RuleID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id QuizID) IsNil() bool           { return uuid.UUID(id) == uuid.Nil }
func (id CertificateID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

// parseUUID is the single validation point for all ID parsing. Rejects empty
// strings, malformed UUIDs, and the nil UUID.
func parseUUID(raw, field string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must be a valid UUID")
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be the nil UUID")
	}
	return u, nil
}

func ParseUserID(raw string) (UserID, error) {
	u, err := parseUUID(raw, "user_id")
	return UserID(u), err
}

func ParseCredentialID(raw string) (CredentialID, error) {
	u, err := parseUUID(raw, "credential_id")
	return CredentialID(u), err
}

func ParseRulePackID(raw string) (RulePackID, error) {
	u, err := parseUUID(raw, "rule_pack_id")
	return RulePackID(u), err
}

func ParseUserCredentialID(raw string) (UserCredentialID, error) {
	u, err := parseUUID(raw, "user_credential_id")
	return UserCredentialID(u), err
}

func ParseRecordID(raw string) (RecordID, error) {
	u, err := parseUUID(raw, "record_id")
	return RecordID(u), err
}

func ParseActivityID(raw string) (ActivityID, error) {
	u, err := parseUUID(raw, "activity_id")
	return ActivityID(u), err
}

func ParseMappingID(raw string) (MappingID, error) {
	u, err := parseUUID(raw, "mapping_id")
	return MappingID(u), err
}

func ParseRuleID(raw string) (RuleID, error) {
	u, err := parseUUID(raw, "rule_id")
	return RuleID(u), err
}

func ParseQuizID(raw string) (QuizID, error) {
	u, err := parseUUID(raw, "quiz_id")
	return QuizID(u), err
}

func ParseCertificateID(raw string) (CertificateID, error) {
	u, err := parseUUID(raw, "certificate_id")
	return CertificateID(u), err
}
