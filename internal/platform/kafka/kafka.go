// Package kafka wraps franz-go with the small surface the engine needs:
// a producer for audit/compliance topics and a consumer loop for provider
// CPD events. Topic names are owned by this package so producers and
// consumers cannot drift.
package kafka

import (
	"context"
	"errors"
	"fmt"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	// TopicProviderEvents carries inbound provider CPD completion events.
	TopicProviderEvents = "cpd.provider.events"
	// TopicAuditCompliance carries outbound compliance audit events.
	TopicAuditCompliance = "cpd.audit.compliance"
)

// EnsureTopics creates the engine's topics if they do not exist. Safe to call
// on every startup; existing topics are left untouched.
func EnsureTopics(ctx context.Context, client *kgo.Client) error {
	adm := kadm.NewClient(client)
	resp, err := adm.CreateTopics(ctx, 3, 1, nil, TopicProviderEvents, TopicAuditCompliance)
	if err != nil {
		return fmt.Errorf("create topics: %w", err)
	}
	for _, t := range resp.Sorted() {
		if t.Err != nil && !errors.Is(t.Err, kerr.TopicAlreadyExists) {
			return fmt.Errorf("create topic %s: %w", t.Topic, t.Err)
		}
	}
	return nil
}
