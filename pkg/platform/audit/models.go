package audit

import (
	"time"

	id "cpdtrack/pkg/domain"
)

// EventCategory classifies audit events by their primary purpose. Compliance
// events require long retention; operations events can be sampled.
type EventCategory string

const (
	// CategoryCompliance covers events with regulatory significance:
	// rule pack changes, allocation rewrites, certificate issuance/revocation.
	CategoryCompliance EventCategory = "compliance"

	// CategoryOperations covers events useful for debugging and operational
	// visibility: evaluations run, cache invalidations, provider event skips.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category  EventCategory
	Timestamp time.Time
	UserID    id.UserID
	// Subject names the entity acted on (record ID, credential ID,
	// certificate code) when it is not the user itself.
	Subject string
	Action  string
	Detail  string
	// RequestID is the correlation ID from the request context, or the
	// idempotency key for provider-event driven actions.
	RequestID string
}

type AuditEvent string

const (
	// Rule administration events
	EventRulePackCreated AuditEvent = "rule_pack_created"

	// Allocation events
	EventAllocationsReplaced AuditEvent = "allocations_replaced"
	EventAllocationsRejected AuditEvent = "allocations_rejected"

	// Record events
	EventRecordSynthesized   AuditEvent = "record_synthesized"
	EventRecordDeleted       AuditEvent = "record_deleted"
	EventStrengthUpgraded    AuditEvent = "evidence_strength_upgraded"
	EventCompletionEvaluated AuditEvent = "completion_evaluated"

	// Certificate events
	EventCertificateIssued  AuditEvent = "certificate_issued"
	EventCertificateRevoked AuditEvent = "certificate_revoked"

	// Ingestion events
	EventProviderEventProcessed AuditEvent = "provider_event_processed"
	EventProviderEventDuplicate AuditEvent = "provider_event_duplicate"
)

// eventCategories maps each audit event to its category.
var eventCategories = map[AuditEvent]EventCategory{
	EventRulePackCreated:        CategoryCompliance,
	EventAllocationsReplaced:    CategoryCompliance,
	EventAllocationsRejected:    CategoryOperations,
	EventRecordSynthesized:      CategoryCompliance,
	EventRecordDeleted:          CategoryCompliance,
	EventStrengthUpgraded:       CategoryOperations,
	EventCompletionEvaluated:    CategoryOperations,
	EventCertificateIssued:      CategoryCompliance,
	EventCertificateRevoked:     CategoryCompliance,
	EventProviderEventProcessed: CategoryCompliance,
	EventProviderEventDuplicate: CategoryOperations,
}

// CategoryOf returns the category for a known event, defaulting to
// operations for unknown actions so nothing is silently dropped.
func CategoryOf(action AuditEvent) EventCategory {
	if c, ok := eventCategories[action]; ok {
		return c
	}
	return CategoryOperations
}
