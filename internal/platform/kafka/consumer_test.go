package kafka

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type flakyHandler struct {
	failures int
	attempts int
}

func (h *flakyHandler) Handle(_ context.Context, _ *Message) error {
	h.attempts++
	if h.attempts <= h.failures {
		return errors.New("store hiccup")
	}
	return nil
}

func TestHandleWithRetryRecoversFromTransientFailures(t *testing.T) {
	handler := &flakyHandler{failures: 2}
	c := &Consumer{
		handler: handler,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff: time.Millisecond,
	}

	msg := &Message{Topic: TopicProviderEvents, Key: []byte("prov-1"), Value: []byte(`{}`)}
	if err := c.handleWithRetry(context.Background(), msg); err != nil {
		t.Fatalf("expected retries to absorb transient failures, got %v", err)
	}
	if handler.attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", handler.attempts)
	}
}

type alwaysFailing struct{}

func (alwaysFailing) Handle(_ context.Context, _ *Message) error {
	return errors.New("down for good")
}

func TestHandleWithRetryStopsOnCancellation(t *testing.T) {
	c := &Consumer{
		handler: alwaysFailing{},
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		backoff: time.Hour,
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	msg := &Message{Topic: TopicProviderEvents, Key: []byte("prov-2"), Value: []byte(`{}`)}
	err := c.handleWithRetry(ctx, msg)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context cancellation to stop retries, got %v", err)
	}
}
