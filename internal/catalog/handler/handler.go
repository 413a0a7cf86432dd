package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"cpdtrack/internal/catalog/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/httputil"
)

// Service defines the catalog operations the handler needs.
type Service interface {
	Resolve(ctx context.Context, activityID id.ActivityID, country, state string) ([]models.ResolvedCredit, error)
}

// Handler serves the activity credit display endpoint.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts catalog endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/activities/{activityID}/credits", h.HandleResolveCredits)
}

// HandleResolveCredits handles GET
// /activities/{activityID}/credits?country=US&state=CA. Returns every
// mapping applicable to the given jurisdiction, most specific first.
func (h *Handler) HandleResolveCredits(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	activityID, err := id.ParseActivityID(chi.URLParam(r, "activityID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	country := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("country")))
	if country == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "country is required"))
		return
	}
	state := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("state")))

	credits, err := h.service.Resolve(ctx, activityID, country, state)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{
		"activity_id": activityID.String(),
		"country":     country,
		"credits":     credits,
	})
}
