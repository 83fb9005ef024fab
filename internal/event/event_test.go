package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/service"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
	"github.com/utafrali/catalog-search/pkg/logger"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeReindexer struct {
	calls int
	err   error
}

func (f *fakeReindexer) Reindex(context.Context) (*service.ReindexResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &service.ReindexResult{RunID: "run-1", Promoted: true}, nil
}

type capturePublisher struct {
	topic string
	event *pkgkafka.Event
	err   error
}

func (c *capturePublisher) Publish(_ context.Context, topic string, e *pkgkafka.Event) error {
	c.topic, c.event = topic, e
	return c.err
}

func requestEvent(t *testing.T) *pkgkafka.Event {
	t.Helper()
	e, err := pkgkafka.NewEvent(context.Background(), EventReindexRequested, "catalog", "ops", ReindexRequested{Reason: "nightly"})
	require.NoError(t, err)
	return e
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "catalog.search.reindex-requested", TopicReindexRequested)
	assert.Equal(t, "catalog.search.index-promoted", TopicIndexPromoted)
}

func TestConsumer_RunsReindex(t *testing.T) {
	r := &fakeReindexer{}
	c := NewConsumer(r, testLogger())

	require.NoError(t, c.Handle(context.Background(), requestEvent(t)))
	assert.Equal(t, 1, r.calls)
}

func TestConsumer_ConflictIsAcknowledged(t *testing.T) {
	r := &fakeReindexer{err: apperrors.Conflict("reindex already in progress")}
	require.NoError(t, NewConsumer(r, testLogger()).Handle(context.Background(), requestEvent(t)))
}

func TestConsumer_FailureIsReturned(t *testing.T) {
	r := &fakeReindexer{err: errors.New("engine down")}
	err := NewConsumer(r, testLogger()).Handle(context.Background(), requestEvent(t))
	assert.EqualError(t, err, "engine down")
}

func TestConsumer_IgnoresUnknownTypes(t *testing.T) {
	r := &fakeReindexer{}
	err := NewConsumer(r, testLogger()).Handle(context.Background(), &pkgkafka.Event{EventType: "product.created"})
	require.NoError(t, err)
	assert.Zero(t, r.calls)
}

func TestConsumer_BadPayload(t *testing.T) {
	r := &fakeReindexer{}
	e := &pkgkafka.Event{EventType: EventReindexRequested, Data: []byte(`[]`)}
	require.Error(t, NewConsumer(r, testLogger()).Handle(context.Background(), e))
	assert.Zero(t, r.calls)
}

func TestConsumer_IdempotentRedelivery(t *testing.T) {
	r := &fakeReindexer{}
	h := pkgkafka.IdempotentHandler(pkgkafka.NewMemoryIdempotencyStore(time.Hour), NewConsumer(r, testLogger()).Handle, testLogger())
	e := requestEvent(t)

	require.NoError(t, h(context.Background(), e))
	require.NoError(t, h(context.Background(), e))
	assert.Equal(t, 1, r.calls)
}

func TestProducer_PublishIndexPromoted(t *testing.T) {
	pub := &capturePublisher{}
	ctx := logger.WithCorrelationID(context.Background(), "corr-9")

	err := NewProducer(pub).PublishIndexPromoted(ctx, service.IndexPromoted{
		RunID: "run-1", Alias: "products-index", Index: "products-2", Previous: "products-1", Documents: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, TopicIndexPromoted, pub.topic)
	assert.Equal(t, EventIndexPromoted, pub.event.EventType)
	assert.Equal(t, "products-index", pub.event.AggregateID)
	assert.Equal(t, "corr-9", pub.event.CorrelationID)
	assert.Equal(t, "run-1", pub.event.Metadata["run_id"])

	var got service.IndexPromoted
	require.NoError(t, pub.event.UnmarshalData(&got))
	assert.Equal(t, "products-2", got.Index)
	assert.Equal(t, int64(3), got.Documents)
}

func TestProducer_PublishError(t *testing.T) {
	pub := &capturePublisher{err: errors.New("no leader")}
	err := NewProducer(pub).PublishIndexPromoted(context.Background(), service.IndexPromoted{Index: "products-2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "products-2")
}

func TestProducer_RequestReindex(t *testing.T) {
	pub := &capturePublisher{}
	require.NoError(t, NewProducer(pub).RequestReindex(context.Background(), ReindexRequested{Reason: "manual"}))
	assert.Equal(t, TopicReindexRequested, pub.topic)
	assert.Equal(t, EventReindexRequested, pub.event.EventType)
}
