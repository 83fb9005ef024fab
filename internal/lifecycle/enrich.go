package lifecycle

import (
	"context"
	"fmt"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
)

// SynonymStore supplies externally maintained synonym rules.
type SynonymStore interface {
	LoadSynonyms(ctx context.Context) ([]string, error)
}

// WordListStore resolves decompounder word list names to engine paths.
type WordListStore interface {
	WordListPath(name string) string
}

// Enrich returns a copy of cfg with the external synonym rules appended to
// every filter named in SynonymFilters and the word_list_path of every
// filter in WordListFilters resolved through words. A synonym filter that
// does not exist yet is created; a missing decompounder is left alone.
// Blank synonym lines are dropped. cfg is not modified. Either store may be
// nil.
func Enrich(ctx context.Context, cfg *domain.IndexConfig, synonyms SynonymStore, words WordListStore) (*domain.IndexConfig, error) {
	out := cfg.Clone()

	if synonyms != nil && len(out.SynonymFilters) > 0 {
		lines, err := synonyms.LoadSynonyms(ctx)
		if err != nil {
			return nil, fmt.Errorf("enrich: %w", err)
		}
		var rules []any
		for _, line := range lines {
			if line = strings.TrimSpace(line); line != "" {
				rules = append(rules, line)
			}
		}

		if out.Analysis.Filter == nil {
			out.Analysis.Filter = make(map[string]domain.Component)
		}
		for _, name := range out.SynonymFilters {
			filter, ok := out.Analysis.Filter[name]
			if !ok {
				filter = domain.Component{"type": "synonym"}
				out.Analysis.Filter[name] = filter
			}
			filter["synonyms"] = append(existingRules(filter["synonyms"]), rules...)
		}
	}

	if words != nil {
		for name, list := range out.WordListFilters {
			if filter, ok := out.Analysis.Filter[name]; ok {
				filter["word_list_path"] = words.WordListPath(list)
			}
		}
	}

	return out, nil
}

func existingRules(v any) []any {
	switch t := v.(type) {
	case []any:
		return t
	case []string:
		out := make([]any, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	case string:
		return []any{t}
	}
	return []any{}
}
