package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpdtrack/internal/progress/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/httputil"
	"cpdtrack/pkg/requestcontext"
)

// Service defines the progress operations the handler needs.
type Service interface {
	ComputeProgress(ctx context.Context, userID id.UserID, ucID id.UserCredentialID) (*models.Progress, error)
}

// Handler serves compliance progress for a held credential.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts progress endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/me/credentials/{userCredentialID}/progress", h.HandleProgress)
}

// HandleProgress handles GET /me/credentials/{userCredentialID}/progress.
func (h *Handler) HandleProgress(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

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

	progress, err := h.service.ComputeProgress(ctx, userID, ucID)
	if err != nil {
		h.logger.ErrorContext(ctx, "progress computation failed",
			"request_id", requestID,
			"user_credential_id", ucID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "progress computed",
		"request_id", requestID,
		"user_credential_id", ucID,
		"percent", progress.ProgressPercent,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, progress)
}
