// Package service drives the catalog index: full reindex runs against the
// lifecycle manager and the read-side queries against the alias.
package service

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/lifecycle"
	"github.com/utafrali/catalog-search/internal/source"
)

// Lifecycle is the write side the reindex run drives.
type Lifecycle interface {
	lifecycle.IndexLifecycle
	State() lifecycle.State
}

// Finder runs free-text and id-prefix searches against the alias.
type Finder interface {
	Find(ctx context.Context, text, gender, language string) ([]domain.Document, error)
}

// Suggester answers autocomplete requests against the alias.
type Suggester interface {
	Suggest(ctx context.Context, term, gender, language string) ([]string, error)
}

// SynonymEditor reads and replaces the synonym rules applied at the next
// reindex.
type SynonymEditor interface {
	Contents(ctx context.Context) (string, error)
	Update(ctx context.Context, text string) error
}

// IndexPromoted describes a successful alias swap.
type IndexPromoted struct {
	RunID     string `json:"run_id"`
	Alias     string `json:"alias"`
	Index     string `json:"index"`
	Previous  string `json:"previous"`
	Documents int64  `json:"documents"`
}

// Publisher announces promotions to other services.
type Publisher interface {
	PublishIndexPromoted(ctx context.Context, e IndexPromoted) error
}

// Deps collects the collaborators of a SearchService. Synonyms and
// Publisher may be nil.
type Deps struct {
	Lifecycle   Lifecycle
	Finder      Finder
	Suggester   Suggester
	Source      source.DocumentSource
	Synonyms    SynonymEditor
	Publisher   Publisher
	IndexConfig *domain.IndexConfig

	// Concurrency bounds in-flight document submissions. Zero means 1.
	Concurrency int
}

// SearchService is the application facade used by the HTTP handlers, the
// Kafka consumer and the reindex job.
type SearchService struct {
	lifecycle   Lifecycle
	finder      Finder
	suggester   Suggester
	source      source.DocumentSource
	synonyms    SynonymEditor
	publisher   Publisher
	cfg         *domain.IndexConfig
	concurrency int
	logger      *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	lastRun *ReindexResult
	lastErr error
}

// New creates a SearchService. The index config is cloned.
func New(deps Deps, logger *slog.Logger) *SearchService {
	concurrency := deps.Concurrency
	if concurrency < 1 {
		concurrency = 1
	}
	return &SearchService{
		lifecycle:   deps.Lifecycle,
		finder:      deps.Finder,
		suggester:   deps.Suggester,
		source:      deps.Source,
		synonyms:    deps.Synonyms,
		publisher:   deps.Publisher,
		cfg:         deps.IndexConfig.Clone(),
		concurrency: concurrency,
		logger:      logger,
	}
}

// Find searches the catalog.
func (s *SearchService) Find(ctx context.Context, text, gender, language string) ([]domain.Document, error) {
	return s.finder.Find(ctx, text, gender, language)
}

// Suggest returns autocomplete suggestions.
func (s *SearchService) Suggest(ctx context.Context, term, gender, language string) ([]string, error) {
	return s.suggester.Suggest(ctx, term, gender, language)
}

// IndexState reports the lifecycle state.
func (s *SearchService) IndexState() lifecycle.State {
	return s.lifecycle.State()
}

// Synonyms returns the raw synonym rules.
func (s *SearchService) Synonyms(ctx context.Context) (string, error) {
	if s.synonyms == nil {
		return "", errSynonymsDisabled
	}
	return s.synonyms.Contents(ctx)
}

// UpdateSynonyms replaces the synonym rules. They take effect at the next
// reindex, when Init rebuilds the standby index.
func (s *SearchService) UpdateSynonyms(ctx context.Context, text string) error {
	if s.synonyms == nil {
		return errSynonymsDisabled
	}
	if err := s.synonyms.Update(ctx, text); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "synonym rules updated", slog.Int("bytes", len(text)))
	return nil
}

// Wait blocks until background reindex runs started by StartReindex return.
func (s *SearchService) Wait() {
	s.wg.Wait()
}
