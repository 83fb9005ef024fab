// Package suggest aggregates autocomplete candidates from the completion
// fields of the catalog index.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/utafrali/catalog-search/internal/catalog"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	"github.com/utafrali/catalog-search/internal/query"
	"github.com/utafrali/catalog-search/pkg/tracing"
)

const tracerName = "github.com/utafrali/catalog-search/internal/suggest"

const (
	// fieldSize is the number of options requested per completion field.
	fieldSize = 100
	// textFuzziness is the edit distance allowed for free-text terms.
	textFuzziness = 1
)

// Policy decides what a partial engine failure does to a Suggest call.
type Policy string

const (
	// PolicyAbort fails the whole call when any field fails.
	PolicyAbort Policy = "abort"
	// PolicySkip drops failing fields and returns what the others found.
	PolicySkip Policy = "skip"
)

// ParsePolicy converts a configuration value into a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch p := Policy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return PolicyAbort, nil
	case PolicyAbort, PolicySkip:
		return p, nil
	default:
		return "", fmt.Errorf("unknown suggest failure policy %q", s)
	}
}

// Aggregator queries several completion fields and merges their options.
// It is safe for concurrent use.
type Aggregator struct {
	engine    engine.EngineClient
	alias     string
	fields    map[string]domain.FieldSpec
	languages []string
	policy    Policy
	logger    *slog.Logger
}

// NewAggregator creates an aggregator for the index described by cfg.
func NewAggregator(eng engine.EngineClient, cfg *domain.IndexConfig, languages []string, policy Policy, logger *slog.Logger) *Aggregator {
	if policy == "" {
		policy = PolicyAbort
	}
	return &Aggregator{
		engine:    eng,
		alias:     cfg.AliasName(),
		fields:    cfg.Clone().FieldMappings,
		languages: slices.Clone(languages),
		policy:    policy,
		logger:    logger,
	}
}

// Fields returns the completion fields queried for term in lang, in merge
// order.
func Fields(term, lang string) []string {
	if query.IsID(term) {
		return []string{catalog.IDSuggestField}
	}
	return catalog.SuggestFields(lang)
}

// Suggest returns the distinct completions for term. Options keep the order
// of the fields and, within a field, the engine's order. An id-like term only
// yields completions that literally start with it. A blank term yields an
// empty list without querying the engine.
func (a *Aggregator) Suggest(ctx context.Context, term, gender, language string) (out []string, err error) {
	ctx, span := tracing.Start(ctx, tracing.Tracer(tracerName), "suggest.Suggest",
		"suggest.gender", gender, "suggest.language", language)
	defer func() { tracing.End(span, err) }()

	lang, err := query.ResolveLanguage(language, a.languages)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(term) == "" {
		return []string{}, nil
	}

	isID := query.IsID(term)
	fields := Fields(term, lang)
	fuzziness := textFuzziness
	if isID {
		fuzziness = 0
	}

	results := make([][]engine.SuggestOption, len(fields))
	errs := make([]error, len(fields))

	g, gctx := errgroup.WithContext(ctx)
	for i, field := range fields {
		req := engine.SuggestRequest{
			Field:     field,
			Prefix:    term,
			Fuzziness: fuzziness,
			Size:      fieldSize,
			Contexts:  a.contexts(field, gender),
		}
		g.Go(func() error {
			opts, err := a.engine.SuggestCompletion(gctx, a.alias, req)
			if err != nil {
				FieldFailuresTotal.WithLabelValues(field).Inc()
				errs[i] = fmt.Errorf("suggest %s: %w", field, err)
				if a.policy == PolicyAbort {
					return errs[i]
				}
				return nil
			}
			results[i] = opts
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		RequestsTotal.WithLabelValues("failed").Inc()
		return nil, err
	}

	failed := 0
	for i, e := range errs {
		if e == nil {
			continue
		}
		failed++
		a.logger.WarnContext(ctx, "skipping failed suggest field",
			slog.String("field", fields[i]),
			slog.String("error", e.Error()),
		)
	}
	if failed == len(fields) {
		RequestsTotal.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("suggest: every field failed: %w", errors.Join(errs...))
	}

	out = merge(results, term, isID)
	if failed > 0 {
		RequestsTotal.WithLabelValues("partial").Inc()
	} else {
		RequestsTotal.WithLabelValues("ok").Inc()
	}
	a.logger.DebugContext(ctx, "suggestions collected",
		slog.String("language", lang),
		slog.Int("fields", len(fields)),
		slog.Int("suggestions", len(out)),
	)
	return out, nil
}

// contexts filters by gender when the field defines a completion context.
func (a *Aggregator) contexts(field, gender string) map[string][]string {
	spec, ok := a.fields[field]
	if !ok || spec.Context == nil || gender == "" {
		return nil
	}
	return map[string][]string{spec.Context.Name: {gender}}
}

// merge flattens the per-field options, keeping the first occurrence of each
// text. Comparison is case-sensitive.
func merge(results [][]engine.SuggestOption, term string, isID bool) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, opts := range results {
		for _, o := range opts {
			if _, dup := seen[o.Text]; dup {
				continue
			}
			seen[o.Text] = struct{}{}
			if isID && !strings.HasPrefix(o.Text, term) {
				continue
			}
			out = append(out, o.Text)
		}
	}
	return out
}
