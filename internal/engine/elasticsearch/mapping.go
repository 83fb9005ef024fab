package elasticsearch

import (
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

// buildIndexSettings returns the index creation body.
func buildIndexSettings(s engine.IndexSettings) map[string]any {
	index := map[string]any{
		"number_of_shards":   s.ShardCount,
		"number_of_replicas": s.ReplicaCount,
	}
	if len(s.DefaultSearchFields) > 0 {
		index["query"] = map[string]any{"default_field": s.DefaultSearchFields}
	}

	settings := map[string]any{"index": index}
	analysis := map[string]any{}
	if len(s.Analysis.Analyzer) > 0 {
		analysis["analyzer"] = s.Analysis.Analyzer
	}
	if len(s.Analysis.Filter) > 0 {
		analysis["filter"] = s.Analysis.Filter
	}
	if len(s.Analysis.Tokenizer) > 0 {
		analysis["tokenizer"] = s.Analysis.Tokenizer
	}
	if len(analysis) > 0 {
		settings["analysis"] = analysis
	}
	return map[string]any{"settings": settings}
}

// buildMapping returns the put-mapping body for the field table.
func buildMapping(dataType string, fields map[string]domain.FieldSpec, defaults engine.DefaultAnalyzers) map[string]any {
	props := make(map[string]any, len(fields))
	for name, spec := range fields {
		props[name] = fieldMapping(spec, defaults)
	}
	return map[string]any{
		"_meta":      map[string]any{"data_type": dataType},
		"properties": props,
	}
}

func fieldMapping(spec domain.FieldSpec, defaults engine.DefaultAnalyzers) map[string]any {
	switch spec.Type {
	case domain.FieldTypeKeyword:
		return map[string]any{"type": "keyword"}
	case domain.FieldTypeNumeric:
		return map[string]any{"type": "double"}
	case domain.FieldTypeCompletion:
		m := map[string]any{"type": "completion"}
		setAnalyzers(m, spec.Analyzer, spec.SearchAnalyzer)
		if spec.Context != nil {
			m["contexts"] = []any{map[string]any{
				"name": spec.Context.Name,
				"type": spec.Context.Type,
				"path": spec.Context.Path,
			}}
		}
		return m
	default:
		m := map[string]any{"type": "text"}
		if spec.Analyzer == "" {
			setAnalyzers(m, defaults.Index, defaults.Search)
		} else {
			setAnalyzers(m, spec.Analyzer, spec.SearchAnalyzer)
		}
		return m
	}
}

func setAnalyzers(m map[string]any, analyzer, searchAnalyzer string) {
	if analyzer == "" {
		return
	}
	m["analyzer"] = analyzer
	if searchAnalyzer != "" {
		m["search_analyzer"] = searchAnalyzer
	}
}
