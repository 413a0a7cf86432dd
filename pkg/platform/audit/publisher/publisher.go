package publisher

import (
	"context"
	"log/slog"
	"sync"

	id "cpdtrack/pkg/domain"
	audit "cpdtrack/pkg/platform/audit"
)

// Sink receives every emitted event in addition to the store, e.g. a Kafka
// producer feeding the compliance topic. Sinks are best-effort: a sink
// failure is logged, never surfaced, because the store append is the source
// of truth.
type Sink interface {
	Publish(ctx context.Context, event audit.Event) error
}

// Publisher appends audit events to a store and fans them out to sinks.
// By default Emit is synchronous; WithAsyncBuffer switches to a buffered
// channel drained by a background goroutine.
type Publisher struct {
	store  audit.Store
	sinks  []Sink
	logger *slog.Logger

	inbox  chan audit.Event
	done   chan struct{}
	closed sync.Once
}

type Option func(*Publisher)

// WithAsyncBuffer enables asynchronous emission with the given buffer size.
// When the buffer is full Emit falls back to synchronous append so events
// are never dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.inbox = make(chan audit.Event, size)
	}
}

func WithSink(sink Sink) Option {
	return func(p *Publisher) {
		p.sinks = append(p.sinks, sink)
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

func NewPublisher(store audit.Store, opts ...Option) *Publisher {
	p := &Publisher{
		store:  store,
		logger: slog.Default(),
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.inbox != nil {
		go p.drain()
	}
	return p
}

// Emit records an event. Category is filled from the action when unset.
func (p *Publisher) Emit(ctx context.Context, event audit.Event) error {
	if event.Category == "" {
		event.Category = audit.CategoryOf(audit.AuditEvent(event.Action))
	}
	if p.inbox != nil {
		select {
		case p.inbox <- event:
			return nil
		default:
			// Buffer full: degrade to synchronous rather than drop.
		}
	}
	return p.persist(ctx, event)
}

func (p *Publisher) List(ctx context.Context, userID id.UserID) ([]audit.Event, error) {
	return p.store.ListByUser(ctx, userID)
}

// Close stops the background drain goroutine after flushing buffered events.
func (p *Publisher) Close() {
	p.closed.Do(func() {
		if p.inbox != nil {
			close(p.inbox)
			<-p.done
		}
	})
}

func (p *Publisher) drain() {
	defer close(p.done)
	for event := range p.inbox {
		if err := p.persist(context.Background(), event); err != nil {
			p.logger.Error("audit event append failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
}

func (p *Publisher) persist(ctx context.Context, event audit.Event) error {
	if err := p.store.Append(ctx, event); err != nil {
		return err
	}
	for _, sink := range p.sinks {
		if err := sink.Publish(ctx, event); err != nil {
			p.logger.Warn("audit sink publish failed",
				"action", event.Action,
				"error", err,
			)
		}
	}
	return nil
}
