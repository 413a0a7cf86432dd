package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"cpdtrack/internal/records/models"
	"cpdtrack/internal/records/service"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/httputil"
	"cpdtrack/pkg/requestcontext"
)

// Service defines the record and allocation operations the handler needs.
type Service interface {
	CreateRecord(ctx context.Context, userID id.UserID, in service.CreateRecordInput) (*models.CpdRecord, error)
	GetRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.CpdRecord, error)
	CompleteRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.CpdRecord, error)
	UpgradeStrength(ctx context.Context, userID id.UserID, recordID id.RecordID, next models.EvidenceStrength) (*models.CpdRecord, error)
	DeleteRecord(ctx context.Context, userID id.UserID, recordID id.RecordID) error
	ReplaceAllocations(ctx context.Context, userID id.UserID, recordID id.RecordID, inputs []models.AllocationInput) (*models.AllocationResult, error)
	ListAllocations(ctx context.Context, userID id.UserID, recordID id.RecordID) ([]models.Allocation, error)
}

// Evaluator runs completion rule evaluation for a record.
type Evaluator interface {
	Evaluate(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.Evaluation, error)
}

// Handler wires record endpoints to the records service.
type Handler struct {
	service   Service
	evaluator Evaluator
	logger    *slog.Logger
}

func New(service Service, evaluator Evaluator, logger *slog.Logger) *Handler {
	return &Handler{service: service, evaluator: evaluator, logger: logger}
}

// Register mounts record endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records", h.HandleCreate)
	r.Get("/records/{recordID}", h.HandleGet)
	r.Post("/records/{recordID}/complete", h.HandleComplete)
	r.Post("/records/{recordID}/strength", h.HandleUpgradeStrength)
	r.Delete("/records/{recordID}", h.HandleDelete)
	r.Put("/records/{recordID}/allocations", h.HandleReplaceAllocations)
	r.Get("/records/{recordID}/allocations", h.HandleListAllocations)
	r.Get("/records/{recordID}/completion", h.HandleEvaluateCompletion)
}

func (h *Handler) authed(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

func recordParam(w http.ResponseWriter, r *http.Request) (id.RecordID, bool) {
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.RecordID{}, false
	}
	return recordID, true
}

// HandleCreate handles POST /records.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateRecordRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.CreateRecord(ctx, userID, req.Input())
	if err != nil {
		h.logger.ErrorContext(ctx, "record creation failed",
			"request_id", requestID,
			"user_id", userID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRecord(record))
}

// HandleGet handles GET /records/{recordID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}

	record, err := h.service.GetRecord(r.Context(), userID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleComplete handles POST /records/{recordID}/complete.
func (h *Handler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}

	record, err := h.service.CompleteRecord(r.Context(), userID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleUpgradeStrength handles POST /records/{recordID}/strength.
func (h *Handler) HandleUpgradeStrength(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[UpgradeStrengthRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	record, err := h.service.UpgradeStrength(ctx, userID, recordID, req.ParsedStrength())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRecord(record))
}

// HandleDelete handles DELETE /records/{recordID}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteRecord(r.Context(), userID, recordID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleReplaceAllocations handles PUT /records/{recordID}/allocations. The
// request body is the complete replacement set; partial updates do not exist.
func (h *Handler) HandleReplaceAllocations(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReplaceAllocationsRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.ReplaceAllocations(ctx, userID, recordID, req.Inputs())
	if err != nil {
		h.logger.WarnContext(ctx, "allocation replacement failed",
			"request_id", requestID,
			"record_id", recordID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAllocationResult(result))
}

// HandleListAllocations handles GET /records/{recordID}/allocations.
func (h *Handler) HandleListAllocations(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}

	allocations, err := h.service.ListAllocations(r.Context(), userID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]AllocationResponse, 0, len(allocations))
	for _, a := range allocations {
		out = append(out, FromAllocation(a))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleEvaluateCompletion handles GET /records/{recordID}/completion.
func (h *Handler) HandleEvaluateCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, ok := recordParam(w, r)
	if !ok {
		return
	}

	evaluation, err := h.evaluator.Evaluate(r.Context(), userID, recordID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, evaluation)
}
