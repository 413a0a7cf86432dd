package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/twmb/franz-go/pkg/kgo"

	audit "cpdtrack/pkg/platform/audit"
)

// Producer publishes records synchronously. The engine's write paths are
// request-scoped, so per-call ProduceSync keeps failure handling simple.
type Producer struct {
	client *kgo.Client
}

func NewProducer(brokers []string) (*Producer, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ProducerBatchCompression(kgo.SnappyCompression()),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}
	return &Producer{client: client}, nil
}

func (p *Producer) Client() *kgo.Client { return p.client }

func (p *Producer) Produce(ctx context.Context, topic string, key, value []byte) error {
	record := &kgo.Record{Topic: topic, Key: key, Value: value}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce to %s: %w", topic, err)
	}
	return nil
}

func (p *Producer) Close() {
	p.client.Close()
}

// AuditSink adapts the producer to the audit publisher's Sink interface,
// feeding the compliance topic.
type AuditSink struct {
	producer *Producer
}

func NewAuditSink(producer *Producer) *AuditSink {
	return &AuditSink{producer: producer}
}

func (s *AuditSink) Publish(ctx context.Context, event audit.Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}
	return s.producer.Produce(ctx, TopicAuditCompliance, []byte(event.UserID.String()), payload)
}
