// Package query composes the catalog search query and runs it against the
// read alias.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	apperrors "github.com/utafrali/catalog-search/pkg/errors"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalog-search/internal/query"

// Builder builds and runs catalog searches. It is safe for concurrent use.
type Builder struct {
	engine     engine.EngineClient
	alias      string
	minScore   float64
	maxResults int
	languages  []string
	logger     *slog.Logger
}

// NewBuilder creates a query builder for the index described by cfg. The
// first language is used when a request names none.
func NewBuilder(eng engine.EngineClient, cfg *domain.IndexConfig, languages []string, logger *slog.Logger) *Builder {
	return &Builder{
		engine:     eng,
		alias:      cfg.AliasName(),
		minScore:   cfg.MinScore,
		maxResults: cfg.MaxResults,
		languages:  slices.Clone(languages),
		logger:     logger,
	}
}

// Language resolves the request language against the builder's languages.
func (b *Builder) Language(lang string) (string, error) {
	return ResolveLanguage(lang, b.languages)
}

// ResolveLanguage returns the first of languages when lang is empty and the
// lower-cased lang when it is one of languages.
func ResolveLanguage(lang string, languages []string) (string, error) {
	if lang == "" {
		if len(languages) == 0 {
			return "", apperrors.InvalidInput("no search languages configured")
		}
		return languages[0], nil
	}
	lang = strings.ToLower(lang)
	if !slices.Contains(languages, lang) {
		return "", apperrors.InvalidInput(fmt.Sprintf("language must be one of: %s", strings.Join(languages, " ")))
	}
	return lang, nil
}

// Find returns the documents matching text in engine order. Gender is
// recorded for tracing only; hits are not filtered by it.
func (b *Builder) Find(ctx context.Context, text, gender, language string) (docs []domain.Document, err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer(tracerName), "query.Find",
		"search.gender", gender, "search.language", language)
	defer func() { tracing.End(span, err) }()

	lang, err := b.Language(language)
	if err != nil {
		return nil, err
	}

	docs, err = b.engine.Search(ctx, b.alias, b.Build(text, lang))
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}

	b.logger.Debug("search executed",
		slog.String("language", lang),
		slog.Bool("id_lookup", IsID(text)),
		slog.Int("hits", len(docs)),
	)
	return docs, nil
}

// Build returns the search body for text in lang. An id-like text only
// matches id prefixes; anything else is matched against the localized
// color, name and category fields as well.
func (b *Builder) Build(text, lang string) map[string]any {
	idPrefix := map[string]any{
		"prefix": map[string]any{
			domain.IDField: map[string]any{"value": strings.ToLower(text), "boost": 1.0},
		},
	}

	var boolQuery map[string]any
	if IsID(text) {
		boolQuery = map[string]any{"must": []any{idPrefix}}
	} else {
		escaped := Escape(text)
		boolQuery = map[string]any{"should": []any{
			idPrefix,
			fieldQuery(escaped, "color_"+lang),
			fieldQuery(escaped, "name_"+lang),
			map[string]any{"query_string": map[string]any{
				"query":            escaped,
				"fields":           []string{"name_" + lang, "suggest", "categories_" + lang, "color_" + lang},
				"default_operator": "OR",
				"boost":            1.0,
			}},
			fieldQuery(escaped, "categories_"+lang),
		}}
	}

	return map[string]any{
		"query":     map[string]any{"bool": boolQuery},
		"size":      b.maxResults,
		"min_score": b.minScore,
	}
}

func fieldQuery(escaped, field string) map[string]any {
	return map[string]any{"query_string": map[string]any{
		"query":         escaped,
		"default_field": field,
		"boost":         1.0,
	}}
}
