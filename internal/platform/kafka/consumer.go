package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

// Message is the transport-agnostic shape handlers consume.
type Message struct {
	Topic string
	Key   []byte
	Value []byte
}

// Handler processes one message. A returned error makes the consumer retry
// the message with backoff; handlers that want to skip a poison message
// should log and return nil.
type Handler interface {
	Handle(ctx context.Context, msg *Message) error
}

const (
	initialHandleBackoff = time.Second
	maxHandleBackoff     = 30 * time.Second
)

// Consumer runs a consume loop over one or more topics within a group.
type Consumer struct {
	client  *kgo.Client
	handler Handler
	logger  *slog.Logger
	backoff time.Duration
}

func NewConsumer(brokers []string, group string, topics []string, handler Handler, logger *slog.Logger) (*Consumer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topics...),
		kgo.DisableAutoCommit(),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer client: %w", err)
	}
	return &Consumer{client: client, handler: handler, logger: logger, backoff: initialHandleBackoff}, nil
}

// Run polls until ctx is cancelled. Offsets are committed after each batch is
// fully handled, so a crash replays the in-flight batch; handlers must be
// idempotent (provider events carry idempotency keys for exactly this reason).
// Handler errors never stop the loop: a transient downstream failure blocks
// this partition with backoff until the message goes through.
func (c *Consumer) Run(ctx context.Context) error {
	defer c.client.Close()
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return ctx.Err()
		}
		for _, fetchErr := range fetches.Errors() {
			c.logger.Error("kafka fetch error",
				"topic", fetchErr.Topic,
				"partition", fetchErr.Partition,
				"error", fetchErr.Err,
			)
		}

		var runErr error
		fetches.EachRecord(func(record *kgo.Record) {
			if runErr != nil {
				return
			}
			msg := &Message{Topic: record.Topic, Key: record.Key, Value: record.Value}
			runErr = c.handleWithRetry(ctx, msg)
		})
		if runErr != nil {
			return runErr
		}

		if err := c.client.CommitUncommittedOffsets(ctx); err != nil {
			c.logger.Error("kafka commit failed", "error", err)
		}
	}
}

// handleWithRetry blocks until the message is handled or ctx is cancelled.
// The backoff doubles per attempt up to maxHandleBackoff; the held offset
// means nothing is lost while a downstream dependency recovers.
func (c *Consumer) handleWithRetry(ctx context.Context, msg *Message) error {
	backoff := c.backoff
	for {
		err := c.handler.Handle(ctx, msg)
		if err == nil {
			return nil
		}
		c.logger.Error("message handling failed, retrying",
			"topic", msg.Topic,
			"backoff", backoff,
			"error", err,
		)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}
		if backoff < maxHandleBackoff {
			backoff *= 2
			if backoff > maxHandleBackoff {
				backoff = maxHandleBackoff
			}
		}
	}
}
