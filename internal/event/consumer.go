package event

import (
	"context"
	"errors"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/service"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	pkgkafka "github.com/utafrali/catalog-search/pkg/kafka"
)

// Reindexer runs a full reindex.
type Reindexer interface {
	Reindex(ctx context.Context) (*service.ReindexResult, error)
}

// Consumer handles events on TopicReindexRequested.
type Consumer struct {
	reindexer Reindexer
	logger    *slog.Logger
}

// NewConsumer creates a consumer driving reindexer.
func NewConsumer(reindexer Reindexer, logger *slog.Logger) *Consumer {
	return &Consumer{reindexer: reindexer, logger: logger}
}

// Handle processes one event. A request arriving while a run is already in
// progress is satisfied by that run and acknowledged.
func (c *Consumer) Handle(ctx context.Context, event *pkgkafka.Event) error {
	if event.EventType != EventReindexRequested {
		c.logger.WarnContext(ctx, "unknown event type received",
			slog.String("event_type", event.EventType),
			slog.String("event_id", event.EventID),
		)
		return nil
	}

	var req ReindexRequested
	if err := event.UnmarshalData(&req); err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "reindex requested",
		slog.String("event_id", event.EventID),
		slog.String("reason", req.Reason),
		slog.String("requested_by", req.RequestedBy),
	)

	result, err := c.reindexer.Reindex(ctx)
	if errors.Is(err, apperrors.ErrConflict) {
		c.logger.InfoContext(ctx, "reindex already running, request folded into it",
			slog.String("event_id", event.EventID))
		return nil
	}
	if err != nil {
		return err
	}
	c.logger.InfoContext(ctx, "requested reindex finished",
		slog.String("run_id", result.RunID),
		slog.Bool("promoted", result.Promoted),
	)
	return nil
}
