// Package httptransport assembles the public HTTP surface: middleware chain,
// health and metrics endpoints, and the domain handlers.
package httptransport

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	cataloghandler "cpdtrack/internal/catalog/handler"
	credhandler "cpdtrack/internal/credential/handler"
	issuancehandler "cpdtrack/internal/issuance/handler"
	"cpdtrack/internal/platform/metrics"
	"cpdtrack/internal/platform/middleware"
	progresshandler "cpdtrack/internal/progress/handler"
	recordshandler "cpdtrack/internal/records/handler"
)

// Handlers collects the domain handlers mounted on the router.
type Handlers struct {
	Credentials  *credhandler.Handler
	Catalog      *cataloghandler.Handler
	Records      *recordshandler.Handler
	Issuance     *issuancehandler.Handler
	Progress     *progresshandler.Handler
	JWTValidator middleware.JWTValidator
}

// NewRouter builds the chi router. Health, metrics and certificate
// verification are public; everything else requires a bearer token.
func NewRouter(h Handlers, logger *slog.Logger, m *metrics.Metrics) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.LatencyMiddleware(m))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Group(func(pub chi.Router) {
		pub.Use(middleware.ContentTypeJSON)
		h.Issuance.RegisterPublic(pub)
		h.Catalog.Register(pub)
	})

	r.Group(func(auth chi.Router) {
		auth.Use(middleware.ContentTypeJSON)
		auth.Use(middleware.RequireAuth(h.JWTValidator, logger))
		h.Credentials.Register(auth)
		h.Records.Register(auth)
		h.Issuance.Register(auth)
		h.Progress.Register(auth)
	})

	return r
}
