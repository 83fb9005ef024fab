package engine

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
)

// EngineClient is the set of search engine operations the index lifecycle,
// the query builder and the suggestion aggregator depend on. Implementations
// may use Elasticsearch, in-memory storage, or other backends.
//
// Transport failures are reported as *domain.EngineError of kind
// apperrors.ErrConnection, rejected requests as apperrors.ErrEngine and
// rejected index creation or mappings as apperrors.ErrMapping.
type EngineClient interface {
	// CreateIndex creates an empty physical index with the given settings.
	CreateIndex(ctx context.Context, name string, settings IndexSettings) error

	// DeleteIndex removes a physical index. Deleting an absent index succeeds.
	DeleteIndex(ctx context.Context, name string) error

	// IndexExists reports whether a physical index exists.
	IndexExists(ctx context.Context, name string) (bool, error)

	// ApplyMapping installs the field mapping of an index.
	ApplyMapping(ctx context.Context, name, dataType string, fields map[string]domain.FieldSpec, defaults DefaultAnalyzers) error

	// BindAlias points alias at target and removes it from every other index
	// in a single atomic update.
	BindAlias(ctx context.Context, alias, target string) error

	// SubmitDocument stores a document in index under id.
	SubmitDocument(ctx context.Context, index, dataType, id string, fields map[string]any) error

	// Optimize merges the segments of an index.
	Optimize(ctx context.Context, index string) error

	// Refresh makes submitted documents visible to searches.
	Refresh(ctx context.Context, index string) error

	// Search runs a query (the engine's query DSL) against an index or alias
	// and returns the hits in engine order.
	Search(ctx context.Context, target string, query map[string]any) ([]domain.Document, error)

	// SuggestCompletion runs a single completion suggester.
	SuggestCompletion(ctx context.Context, target string, req SuggestRequest) ([]SuggestOption, error)

	// Ping checks whether the engine is reachable.
	Ping(ctx context.Context) error
}

// IndexSettings are the creation-time settings of a physical index.
type IndexSettings struct {
	ShardCount          int
	ReplicaCount        int
	Analysis            domain.Analysis
	DefaultSearchFields []string
}

// DefaultAnalyzers apply to text fields whose mapping names no analyzer.
type DefaultAnalyzers struct {
	Index  string
	Search string
}

// SuggestRequest is one completion suggester call against one field.
type SuggestRequest struct {
	Field     string
	Prefix    string
	Fuzziness int
	Size      int

	// Contexts filters by completion context, e.g. {"gender": ["male"]}.
	Contexts map[string][]string
}

// SuggestOption is one completion returned by the engine.
type SuggestOption struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}

// SettingsFor derives the creation settings of a physical index from cfg.
func SettingsFor(cfg *domain.IndexConfig) IndexSettings {
	return IndexSettings{
		ShardCount:          cfg.ShardCount,
		ReplicaCount:        cfg.ReplicaCount,
		Analysis:            cfg.Analysis,
		DefaultSearchFields: cfg.DefaultSearchFields(),
	}
}

// DefaultsFor returns the default analyzers of cfg.
func DefaultsFor(cfg *domain.IndexConfig) DefaultAnalyzers {
	return DefaultAnalyzers{Index: cfg.DefaultIndexAnalyzer, Search: cfg.DefaultSearchAnalyzer}
}
