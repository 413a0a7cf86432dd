package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"cpdtrack/internal/completion/ports"
	completionservice "cpdtrack/internal/completion/service"
	usercredentialStore "cpdtrack/internal/credential/store/usercredential"
	"cpdtrack/internal/records/service"
	allocationStore "cpdtrack/internal/records/store/allocation"
	recordStore "cpdtrack/internal/records/store/record"
	"cpdtrack/pkg/testutil"
)

func newRecordsRouter(t *testing.T) chi.Router {
	t.Helper()

	records := recordStore.NewInMemory()
	allocations := allocationStore.NewInMemory()
	holdings := usercredentialStore.NewInMemory()

	svc, err := service.New(records, allocations, holdings)
	if err != nil {
		t.Fatalf("failed to build records service: %v", err)
	}
	evaluator, err := completionservice.New(records,
		ports.NewInMemoryRuleStore(), ports.NewInMemoryQuizSource(), ports.NewInMemoryEvidenceCounter())
	if err != nil {
		t.Fatalf("failed to build completion service: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	New(svc, evaluator, logger).Register(router)
	return router
}

func TestAuthenticationRequired(t *testing.T) {
	router := newRecordsRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/records/"+uuid.NewString(), nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without authentication, got %d", rec.Code)
	}
}

func TestRecordLifecycleViaHandlers(t *testing.T) {
	router := newRecordsRouter(t)
	userID := uuid.NewString()

	var created struct {
		ID     uuid.UUID `json:"id"`
		Status string    `json:"status"`
	}

	testutil.Given(t, "an authenticated user logging a seminar", func(t *testing.T) {
		testutil.When(t, "creating the record", func(t *testing.T) {
			payload := map[string]any{
				"title":         "Chartered Ethics Seminar",
				"hours":         2.5,
				"date":          "2026-03-10",
				"activity_type": "structured",
				"category":      "ethics",
			}
			body, _ := json.Marshal(payload)
			req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
			req = testutil.WithUserID(req, userID)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			testutil.Then(t, "it starts in progress", func(t *testing.T) {
				if rec.Code != http.StatusCreated {
					t.Fatalf("expected 201 creating record, got %d: %s", rec.Code, rec.Body.String())
				}
				if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
					t.Fatalf("failed to decode create response: %v", err)
				}
				if created.ID == uuid.Nil {
					t.Fatalf("expected record id in response")
				}
				if created.Status != "in_progress" {
					t.Fatalf("expected in_progress status, got %q", created.Status)
				}
			})
		})

		testutil.When(t, "completing the record", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/records/"+created.ID.String()+"/complete", nil)
			req = testutil.WithUserID(req, userID)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			testutil.Then(t, "its status transitions", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200 completing record, got %d", rec.Code)
				}
				var completed struct {
					Status string `json:"status"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&completed); err != nil {
					t.Fatalf("failed to decode complete response: %v", err)
				}
				if completed.Status != "completed" {
					t.Fatalf("expected completed status, got %q", completed.Status)
				}
			})
		})

		testutil.When(t, "evaluating completion rules", func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/records/"+created.ID.String()+"/completion", nil)
			req = testutil.WithUserID(req, userID)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			testutil.Then(t, "a record with no rules is trivially complete", func(t *testing.T) {
				if rec.Code != http.StatusOK {
					t.Fatalf("expected 200 evaluating completion, got %d", rec.Code)
				}
				var evaluation struct {
					AllPassed bool `json:"all_passed"`
				}
				if err := json.NewDecoder(rec.Body).Decode(&evaluation); err != nil {
					t.Fatalf("failed to decode evaluation response: %v", err)
				}
				if !evaluation.AllPassed {
					t.Fatalf("expected trivially complete record with no rules")
				}
			})
		})
	})
}

func TestErrorEnvelope(t *testing.T) {
	router := newRecordsRouter(t)
	userID := uuid.NewString()

	t.Run("validation failures use the error envelope", func(t *testing.T) {
		payload := map[string]any{
			"title":         "Too Long",
			"hours":         500,
			"activity_type": "structured",
		}
		body, _ := json.Marshal(payload)
		req := httptest.NewRequest(http.MethodPost, "/records", bytes.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		req = testutil.WithUserID(req, userID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for hours above cap, got %d", rec.Code)
		}
		var envelope struct {
			Error       string `json:"error"`
			Description string `json:"error_description"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&envelope); err != nil {
			t.Fatalf("failed to decode error envelope: %v", err)
		}
		if envelope.Error == "" {
			t.Fatalf("expected error code in envelope")
		}
	})

	t.Run("unknown record reads as not found", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records/"+uuid.NewString(), nil)
		req = testutil.WithUserID(req, userID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404 for unknown record, got %d", rec.Code)
		}
	})

	t.Run("malformed record id is rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/records/not-a-uuid", nil)
		req = testutil.WithUserID(req, userID)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400 for malformed record id, got %d", rec.Code)
		}
	})
}
