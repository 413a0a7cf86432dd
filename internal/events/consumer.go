package events

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/google/uuid"

	issmodels "cpdtrack/internal/issuance/models"
	"cpdtrack/internal/platform/kafka"
	recmodels "cpdtrack/internal/records/models"
	id "cpdtrack/pkg/domain"
	audit "cpdtrack/pkg/platform/audit"
	"cpdtrack/pkg/platform/sentinel"
	"cpdtrack/pkg/requestcontext"
)

// eventRecordNamespace seeds the deterministic record ID derived from the
// provider's idempotency key. The uniqueness constraint on that record is
// what actually makes redelivery safe; the key table on top of it makes
// duplicates observable.
var eventRecordNamespace = uuid.MustParse("3d7b9e21-4f8a-4b6c-8e5d-a1c2f3b4d5e6")

// Issuer is the issuance pathway for synthesized records.
type Issuer interface {
	IssueForSyntheticRecord(ctx context.Context, record *recmodels.CpdRecord) (*issmodels.Certificate, error)
}

// AuditPublisher records processed and duplicate provider events.
type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Handler consumes provider CPD events and turns each distinct one into an
// auto-sourced record plus certificate.
type Handler struct {
	keys   IdempotencyStore
	issuer Issuer
	logger *slog.Logger
	audit  AuditPublisher
}

type Option func(*Handler)

func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) { h.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(h *Handler) { h.audit = p }
}

func NewHandler(keys IdempotencyStore, issuer Issuer, opts ...Option) (*Handler, error) {
	if keys == nil {
		return nil, fmt.Errorf("idempotency store is required")
	}
	if issuer == nil {
		return nil, fmt.Errorf("issuer is required")
	}
	h := &Handler{
		keys:   keys,
		issuer: issuer,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h, nil
}

var _ kafka.Handler = (*Handler)(nil)

// Handle processes one provider event. Malformed payloads are logged and
// acknowledged; they would fail identically on every redelivery. Errors from
// issuance propagate so the consumer retries the event with backoff before
// committing its offset.
func (h *Handler) Handle(ctx context.Context, msg *kafka.Message) error {
	ev, err := decodeProviderEvent(msg.Value)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping malformed provider event", "error", err, "topic", msg.Topic)
		return nil
	}
	ctx = requestcontext.WithRequestID(ctx, ev.IdempotencyKey)

	userID, err := id.ParseUserID(ev.UserID)
	if err != nil {
		h.logger.ErrorContext(ctx, "dropping provider event with invalid user id", "error", err, "idempotency_key", ev.IdempotencyKey)
		return nil
	}

	record := h.synthesizeRecord(ctx, userID, ev)
	if _, err := h.issuer.IssueForSyntheticRecord(ctx, record); err != nil {
		return fmt.Errorf("issue for provider event %s: %w", ev.IdempotencyKey, err)
	}

	// The record's uniqueness already absorbed any redelivery; the key table
	// tells us it happened.
	now := requestcontext.Now(ctx)
	if err := h.keys.MarkProcessed(ctx, ev.IdempotencyKey, now); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			h.logger.InfoContext(ctx, "duplicate provider event acknowledged", "idempotency_key", ev.IdempotencyKey)
			h.emit(ctx, userID, ev, audit.EventProviderEventDuplicate)
			return nil
		}
		return fmt.Errorf("mark provider event processed: %w", err)
	}

	h.emit(ctx, userID, ev, audit.EventProviderEventProcessed)
	h.logger.InfoContext(ctx, "provider event processed",
		"idempotency_key", ev.IdempotencyKey,
		"user_id", userID,
		"hours", ev.Hours,
	)
	return nil
}

func (h *Handler) synthesizeRecord(ctx context.Context, userID id.UserID, ev *ProviderEvent) *recmodels.CpdRecord {
	now := requestcontext.Now(ctx)
	date := ev.OccurredAt
	if date.IsZero() {
		date = now
	}
	notes := recmodels.NotesDoc{"idempotencyKey": ev.IdempotencyKey}
	if ev.QuizScore != nil {
		notes["quizScore"] = *ev.QuizScore
	}

	record := &recmodels.CpdRecord{
		ID:           id.RecordID(uuid.NewSHA1(eventRecordNamespace, []byte(ev.IdempotencyKey))),
		UserID:       userID,
		Title:        ev.Title,
		Hours:        ev.Hours,
		Date:         date,
		ActivityType: recmodels.ActivityVerifiable,
		Category:     ev.Category,
		Status:       recmodels.StatusCompleted,
		Source:       recmodels.SourceAuto,
		Strength:     recmodels.StrengthProviderVerified,
		Notes:        notes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if activityID, err := id.ParseActivityID(ev.ActivityID); err == nil {
		record.ActivityID = &activityID
	}
	return record
}

func (h *Handler) emit(ctx context.Context, userID id.UserID, ev *ProviderEvent, action audit.AuditEvent) {
	if h.audit == nil {
		return
	}
	_ = h.audit.Emit(ctx, audit.Event{
		Timestamp: requestcontext.Now(ctx),
		UserID:    userID,
		Subject:   ev.IdempotencyKey,
		Action:    string(action),
		Detail:    ev.Title,
		RequestID: requestcontext.RequestID(ctx),
	})
}
