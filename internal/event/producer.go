package event

import (
	"context"
	"fmt"

	"github.com/utafrali/catalog-search/internal/service"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
)

// publisher is satisfied by *pkgkafka.Producer.
type publisher interface {
	Publish(ctx context.Context, topic string, event *pkgkafka.Event) error
}

// Producer announces index promotions. It implements service.Publisher.
type Producer struct {
	publisher publisher
}

var _ service.Publisher = (*Producer)(nil)

// NewProducer wraps a Kafka producer.
func NewProducer(p publisher) *Producer {
	return &Producer{publisher: p}
}

// PublishIndexPromoted writes e to TopicIndexPromoted keyed by the alias.
func (p *Producer) PublishIndexPromoted(ctx context.Context, e service.IndexPromoted) error {
	event, err := pkgkafka.NewEvent(ctx, EventIndexPromoted, e.Alias, Source, e)
	if err != nil {
		return err
	}
	event.WithMetadata("run_id", e.RunID)
	if err := p.publisher.Publish(ctx, TopicIndexPromoted, event); err != nil {
		return fmt.Errorf("announce promotion of %s: %w", e.Index, err)
	}
	return nil
}

// RequestReindex publishes a reindex request, e.g. from the one-shot job
// when the API should run the reindex instead.
func (p *Producer) RequestReindex(ctx context.Context, req ReindexRequested) error {
	event, err := pkgkafka.NewEvent(ctx, EventReindexRequested, "catalog", Source, req)
	if err != nil {
		return err
	}
	return p.publisher.Publish(ctx, TopicReindexRequested, event)
}
