package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"cpdtrack/internal/issuance/models"
	id "cpdtrack/pkg/domain"
	dErrors "cpdtrack/pkg/domain-errors"
	"cpdtrack/pkg/platform/httputil"
	"cpdtrack/pkg/requestcontext"
)

// Service defines the issuance operations the handler needs.
type Service interface {
	IssueIfEligible(ctx context.Context, userID id.UserID, recordID id.RecordID) (*models.Certificate, error)
	IssueForQuizPass(ctx context.Context, userID id.UserID, quizID id.QuizID) (*models.Certificate, error)
	Revoke(ctx context.Context, userID id.UserID, certID id.CertificateID) (*models.Certificate, error)
	VerifyByCode(ctx context.Context, code string) (*models.Certificate, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.Certificate, error)
}

// Handler wires certificate endpoints to the issuance service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the authenticated certificate endpoints.
func (h *Handler) Register(r chi.Router) {
	r.Post("/records/{recordID}/certificate", h.HandleIssue)
	r.Post("/quizzes/{quizID}/certificate", h.HandleIssueForQuizPass)
	r.Post("/certificates/{certificateID}/revoke", h.HandleRevoke)
	r.Get("/me/certificates", h.HandleList)
}

// RegisterPublic mounts the unauthenticated verification endpoint. External
// verifiers hit it with a certificate code from a printed document.
func (h *Handler) RegisterPublic(r chi.Router) {
	r.Get("/certificates/verify/{code}", h.HandleVerify)
}

func (h *Handler) authed(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	userID := requestcontext.UserID(r.Context())
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

// HandleIssue handles POST /records/{recordID}/certificate. Re-invocation for
// an already certified record returns the existing certificate with 200.
func (h *Handler) HandleIssue(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	recordID, err := id.ParseRecordID(chi.URLParam(r, "recordID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.service.IssueIfEligible(ctx, userID, recordID)
	if err != nil {
		h.logger.WarnContext(ctx, "certificate issuance failed",
			"request_id", requestID,
			"record_id", recordID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "certificate issuance handled",
		"request_id", requestID,
		"record_id", recordID,
		"code", cert.Code,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleIssueForQuizPass handles POST /quizzes/{quizID}/certificate.
func (h *Handler) HandleIssueForQuizPass(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	quizID, err := id.ParseQuizID(chi.URLParam(r, "quizID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.service.IssueForQuizPass(ctx, userID, quizID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleRevoke handles POST /certificates/{certificateID}/revoke.
func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}
	certID, err := id.ParseCertificateID(chi.URLParam(r, "certificateID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	cert, err := h.service.Revoke(r.Context(), userID, certID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCertificate(cert))
}

// HandleList handles GET /me/certificates.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.authed(w, r)
	if !ok {
		return
	}

	certs, err := h.service.ListByUser(r.Context(), userID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	out := make([]CertificateResponse, 0, len(certs))
	for _, cert := range certs {
		out = append(out, FromCertificate(cert))
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

// HandleVerify handles GET /certificates/verify/{code}.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	cert, err := h.service.VerifyByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromVerification(cert))
}
