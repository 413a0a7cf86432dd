package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpdtrack/internal/credential/models"
	"cpdtrack/internal/credential/service"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/httputil"
	"cpdtrack/pkg/requestcontext"
)

// Service defines the credential operations the handler needs.
type Service interface {
	Resolve(ctx context.Context, credentialID id.CredentialID, asOf time.Time) (*models.RulePack, error)
	CreateRulePack(ctx context.Context, credentialID id.CredentialID, rules models.Requirements, effectiveFrom time.Time, changelog string) (*models.RulePack, error)
	Enroll(ctx context.Context, userID id.UserID, in service.EnrollInput) (*models.UserCredential, error)
	ListHoldings(ctx context.Context, userID id.UserID) ([]*models.UserCredential, error)
	RemoveHolding(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) error
}

// Handler wires credential and holding endpoints to the credential service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts credential endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/credentials/{credentialID}/rules", h.HandleResolveRules)
	r.Post("/credentials/{credentialID}/rule-packs", h.HandleCreateRulePack)
	r.Post("/me/credentials", h.HandleEnroll)
	r.Get("/me/credentials", h.HandleListHoldings)
	r.Delete("/me/credentials/{userCredentialID}", h.HandleRemoveHolding)
}

// HandleResolveRules handles GET /credentials/{credentialID}/rules?as_of=YYYY-MM-DD.
// Without as_of the rules in force today are returned.
func (h *Handler) HandleResolveRules(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	asOf := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "as_of must be a YYYY-MM-DD date"))
			return
		}
		asOf = parsed
	}

	pack, err := h.service.Resolve(ctx, credentialID, asOf)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromRulePack(pack))
}

// HandleCreateRulePack handles POST /credentials/{credentialID}/rule-packs.
func (h *Handler) HandleCreateRulePack(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	credentialID, err := id.ParseCredentialID(chi.URLParam(r, "credentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[CreateRulePackRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	pack, err := h.service.CreateRulePack(ctx, credentialID, req.Requirements(), req.ParsedEffectiveFrom(), req.Changelog)
	if err != nil {
		h.logger.ErrorContext(ctx, "rule pack creation failed",
			"request_id", requestID,
			"credential_id", credentialID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromRulePack(pack))
}

// HandleEnroll handles POST /me/credentials.
func (h *Handler) HandleEnroll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[EnrollRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	holding, err := h.service.Enroll(ctx, userID, req.Input())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, FromHolding(holding))
}

// HandleListHoldings handles GET /me/credentials.
func (h *Handler) HandleListHoldings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	holdings, err := h.service.ListHoldings(ctx, userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]HoldingResponse, 0, len(holdings))
	for _, holding := range holdings {
		out = append(out, FromHolding(holding))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleRemoveHolding handles DELETE /me/credentials/{userCredentialID}.
func (h *Handler) HandleRemoveHolding(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	ucID, err := id.ParseUserCredentialID(chi.URLParam(r, "userCredentialID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.RemoveHolding(ctx, userID, ucID); err != nil {
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
