package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/source"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/logger"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalog-search/internal/service"

var errSynonymsDisabled = apperrors.InvalidInput("synonym editing is not configured")

// ReindexResult summarizes one run.
type ReindexResult struct {
	RunID      string        `json:"run_id"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration_ns"`
	Accepted   int64         `json:"accepted"`
	Skipped    int64         `json:"skipped"`
	Promoted   bool          `json:"promoted"`
	Alias      string        `json:"alias"`
	Live       string        `json:"live"`
}

// ReindexStatus reports whether a run is active and how the last one ended.
type ReindexStatus struct {
	Running   bool           `json:"running"`
	LastRun   *ReindexResult `json:"last_run,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// Reindex rebuilds the catalog index from the configured source and blocks
// until the run ends.
func (s *SearchService) Reindex(ctx context.Context) (*ReindexResult, error) {
	return s.ReindexFrom(ctx, s.source)
}

// ReindexFrom rebuilds the index from src: Init prepares an empty standby
// index, every document is submitted to it and Commit swaps the alias.
// Documents failing validation are skipped and counted. Any other insert
// failure aborts the run before Commit, leaving the live index untouched.
// Only one run may hold the lifecycle at a time.
func (s *SearchService) ReindexFrom(ctx context.Context, src source.DocumentSource) (*ReindexResult, error) {
	if !s.acquire() {
		return nil, apperrors.Conflict("reindex already in progress")
	}
	defer s.release()
	return s.run(ctx, uuid.NewString(), src)
}

// StartReindex starts a run from the configured source in the background
// and returns its id. The run outlives ctx's cancellation but keeps its
// values.
func (s *SearchService) StartReindex(ctx context.Context) (string, error) {
	if !s.acquire() {
		return "", apperrors.Conflict("reindex already in progress")
	}
	runID := uuid.NewString()
	bg := context.WithoutCancel(ctx)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.release()
		_, _ = s.run(bg, runID, s.source)
	}()
	return runID, nil
}

// ReindexStatus returns the current run state.
func (s *SearchService) ReindexStatus() ReindexStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := ReindexStatus{Running: s.running.Load(), LastRun: s.lastRun}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *SearchService) acquire() bool {
	if !s.running.CompareAndSwap(false, true) {
		reindexRunsTotal.WithLabelValues("rejected").Inc()
		return false
	}
	reindexInProgress.Set(1)
	return true
}

func (s *SearchService) release() {
	reindexInProgress.Set(0)
	s.running.Store(false)
}

func (s *SearchService) run(ctx context.Context, runID string, src source.DocumentSource) (result *ReindexResult, err error) {
	ctx = logger.WithRunID(ctx, runID)
	ctx, span := tracing.Start(ctx, tracing.Tracer(tracerName), "service.Reindex", "reindex.run_id", runID)
	defer func() { tracing.End(span, err) }()

	result = &ReindexResult{RunID: runID, StartedAt: time.Now().UTC(), Alias: s.cfg.AliasName()}
	defer func() {
		result.FinishedAt = time.Now().UTC()
		result.Duration = result.FinishedAt.Sub(result.StartedAt)
		reindexDuration.Observe(result.Duration.Seconds())
		s.record(result, err)
	}()

	s.logger.InfoContext(ctx, "reindex started", slog.String("alias", result.Alias))

	if src == nil {
		reindexRunsTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("reindex: no document source configured")
	}
	if err := s.lifecycle.Init(ctx, s.cfg.Clone()); err != nil {
		reindexRunsTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("reindex: %w", err)
	}
	previous := s.lifecycle.State().Live.Name

	accepted, skipped, err := s.submitAll(ctx, src)
	result.Accepted, result.Skipped = accepted, skipped
	if err != nil {
		reindexRunsTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("reindex: %w", err)
	}

	commitErr := s.lifecycle.Commit(ctx)
	live := s.lifecycle.State().Live.Name
	result.Live = live
	result.Promoted = accepted > 0 && live != previous

	switch {
	case !result.Promoted && commitErr != nil:
		reindexRunsTotal.WithLabelValues("failed").Inc()
		return result, fmt.Errorf("reindex: %w", commitErr)
	case !result.Promoted:
		reindexRunsTotal.WithLabelValues("empty").Inc()
		s.logger.WarnContext(ctx, "reindex finished without promotion",
			slog.Int64("accepted", accepted),
			slog.Int64("skipped", skipped),
		)
		return result, nil
	}

	s.announce(ctx, IndexPromoted{
		RunID:     runID,
		Alias:     result.Alias,
		Index:     live,
		Previous:  previous,
		Documents: accepted,
	})

	if commitErr != nil {
		reindexRunsTotal.WithLabelValues("partial").Inc()
		return result, fmt.Errorf("reindex: %w", commitErr)
	}
	reindexRunsTotal.WithLabelValues("promoted").Inc()
	s.logger.InfoContext(ctx, "reindex finished",
		slog.String("live", live),
		slog.Int64("accepted", accepted),
		slog.Int64("skipped", skipped),
	)
	return result, nil
}

// submitAll pipelines the source into InsertDocument with at most
// s.concurrency submissions in flight. The first hard failure cancels the
// rest.
func (s *SearchService) submitAll(ctx context.Context, src source.DocumentSource) (int64, int64, error) {
	var accepted, skipped atomic.Int64

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	eachErr := src.Each(gctx, func(doc domain.Document) error {
		if err := gctx.Err(); err != nil {
			return err
		}
		g.Go(func() error {
			_, err := s.lifecycle.InsertDocument(gctx, doc)
			switch {
			case err == nil:
				accepted.Add(1)
				return nil
			case errors.Is(err, apperrors.ErrValidation):
				skipped.Add(1)
				s.logger.WarnContext(gctx, "skipping invalid document",
					slog.String("id", doc.ID),
					slog.String("error", err.Error()),
				)
				return nil
			default:
				return err
			}
		})
		return nil
	})
	waitErr := g.Wait()

	switch {
	case waitErr != nil:
		return accepted.Load(), skipped.Load(), waitErr
	case eachErr != nil:
		return accepted.Load(), skipped.Load(), fmt.Errorf("read source: %w", eachErr)
	}
	return accepted.Load(), skipped.Load(), nil
}

func (s *SearchService) announce(ctx context.Context, e IndexPromoted) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishIndexPromoted(ctx, e); err != nil {
		s.logger.ErrorContext(ctx, "failed to announce index promotion",
			slog.String("index", e.Index),
			slog.String("error", err.Error()),
		)
	}
}

func (s *SearchService) record(result *ReindexResult, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun = result
	s.lastErr = err
}
