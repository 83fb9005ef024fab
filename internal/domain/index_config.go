package domain

import (
	"fmt"
	"maps"
	"slices"
	"sort"

	"github.com/utafrali/catalog-search/pkg/validator"
)

// Field types understood by the engine adapters.
const (
	FieldTypeText       = "text"
	FieldTypeKeyword    = "keyword"
	FieldTypeNumeric    = "numeric"
	FieldTypeCompletion = "completion"
)

// Slot and alias suffixes. The two physical indices rotate between
// <prefix>-1 and <prefix>-2 while readers always go through <prefix>-index.
const (
	slotOneSuffix = "-1"
	slotTwoSuffix = "-2"
	aliasSuffix   = "-index"
)

// Component is a free-form analysis component definition (an analyzer,
// token filter or tokenizer) in the engine's JSON shape.
type Component map[string]any

// Analysis groups the custom analysis components of an index.
type Analysis struct {
	Analyzer  map[string]Component `json:"analyzer,omitempty" yaml:"analyzer"`
	Filter    map[string]Component `json:"filter,omitempty" yaml:"filter"`
	Tokenizer map[string]Component `json:"tokenizer,omitempty" yaml:"tokenizer"`
}

// ContextSpec describes a completion-suggester context dimension, e.g. gender.
type ContextSpec struct {
	Name    string   `json:"name" yaml:"name" validate:"required"`
	Type    string   `json:"type" yaml:"type" validate:"required,oneof=category"`
	Path    string   `json:"path" yaml:"path" validate:"required"`
	Default []string `json:"default,omitempty" yaml:"default"`
}

// FieldSpec is the mapping of a single document field.
type FieldSpec struct {
	Type                   string       `json:"type" yaml:"type" validate:"required,oneof=text keyword numeric completion"`
	Analyzer               string       `json:"analyzer,omitempty" yaml:"analyzer"`
	SearchAnalyzer         string       `json:"search_analyzer,omitempty" yaml:"search_analyzer"`
	IncludeInDefaultSearch bool         `json:"include_in_default_search" yaml:"include_in_default_search"`
	Context                *ContextSpec `json:"context,omitempty" yaml:"context"`
}

// IndexConfig is the static description of the catalog index. A value is
// treated as immutable once handed to the lifecycle manager; use Clone to
// derive a modified copy.
type IndexConfig struct {
	Host                  string               `yaml:"host" validate:"required"`
	Port                  int                  `yaml:"port" validate:"gte=1,lte=65535"`
	ShardCount            int                  `yaml:"shard_count" validate:"gte=1"`
	ReplicaCount          int                  `yaml:"replica_count" validate:"gte=0"`
	DataTypeName          string               `yaml:"data_type" validate:"required"`
	IndexNamePrefix       string               `yaml:"index_name_prefix" validate:"required,indexname"`
	MinScore              float64              `yaml:"min_score" validate:"gte=0"`
	MaxResults            int                  `yaml:"max_results" validate:"gte=1,lte=10000"`
	DefaultIndexAnalyzer  string               `yaml:"default_index_analyzer"`
	DefaultSearchAnalyzer string               `yaml:"default_search_analyzer"`
	Analysis              Analysis             `yaml:"analysis"`
	FieldMappings         map[string]FieldSpec `yaml:"fields" validate:"required,min=1,dive"`
	MandatoryFields       []string             `yaml:"mandatory_fields"`

	// SynonymFilters names the token filters that receive externally loaded
	// synonym rules during enrichment.
	SynonymFilters []string `yaml:"synonym_filters"`

	// WordListFilters maps a decompounder filter name to the word list it
	// reads, e.g. "german_decompound" -> "german-common-nouns.txt".
	WordListFilters map[string]string `yaml:"word_list_filters"`
}

// SlotNames returns the two physical index names.
func (c *IndexConfig) SlotNames() (string, string) {
	return c.IndexNamePrefix + slotOneSuffix, c.IndexNamePrefix + slotTwoSuffix
}

// AliasName returns the name readers query.
func (c *IndexConfig) AliasName() string {
	return c.IndexNamePrefix + aliasSuffix
}

// Field looks up the mapping of a field.
func (c *IndexConfig) Field(name string) (FieldSpec, bool) {
	spec, ok := c.FieldMappings[name]
	return spec, ok
}

// DefaultSearchFields returns, sorted, the fields flagged for inclusion in
// the engine's default search field list.
func (c *IndexConfig) DefaultSearchFields() []string {
	var fields []string
	for name, spec := range c.FieldMappings {
		if spec.IncludeInDefaultSearch {
			fields = append(fields, name)
		}
	}
	sort.Strings(fields)
	return fields
}

// Validate checks the struct tags and the cross-field invariants.
func (c *IndexConfig) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("index config: %w", err)
	}
	for _, name := range c.MandatoryFields {
		if _, ok := c.FieldMappings[name]; !ok {
			return fmt.Errorf("index config: mandatory field %q has no mapping", name)
		}
	}
	for name, spec := range c.FieldMappings {
		for _, analyzer := range []string{spec.Analyzer, spec.SearchAnalyzer} {
			if analyzer == "" || IsBuiltinAnalyzer(analyzer) {
				continue
			}
			if _, ok := c.Analysis.Analyzer[analyzer]; !ok {
				return fmt.Errorf("index config: field %q references unknown analyzer %q", name, analyzer)
			}
		}
	}
	return nil
}

// Clone returns a deep copy that shares no mutable state with c.
func (c *IndexConfig) Clone() *IndexConfig {
	out := *c
	out.Analysis = c.Analysis.Clone()
	out.FieldMappings = make(map[string]FieldSpec, len(c.FieldMappings))
	for name, spec := range c.FieldMappings {
		if spec.Context != nil {
			ctx := *spec.Context
			ctx.Default = slices.Clone(spec.Context.Default)
			spec.Context = &ctx
		}
		out.FieldMappings[name] = spec
	}
	out.MandatoryFields = slices.Clone(c.MandatoryFields)
	out.SynonymFilters = slices.Clone(c.SynonymFilters)
	if c.WordListFilters != nil {
		out.WordListFilters = maps.Clone(c.WordListFilters)
	}
	return &out
}

// Clone returns a deep copy of the analysis settings.
func (a Analysis) Clone() Analysis {
	return Analysis{
		Analyzer:  cloneComponents(a.Analyzer),
		Filter:    cloneComponents(a.Filter),
		Tokenizer: cloneComponents(a.Tokenizer),
	}
}

func cloneComponents(in map[string]Component) map[string]Component {
	if in == nil {
		return nil
	}
	out := make(map[string]Component, len(in))
	for name, comp := range in {
		out[name] = Component(cloneMap(comp))
	}
	return out
}

func cloneMap(in map[string]any) map[string]any {
	if in == nil {
		return nil
	}
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return cloneMap(t)
	case Component:
		return Component(cloneMap(t))
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = cloneValue(t[i])
		}
		return out
	case []string:
		return slices.Clone(t)
	default:
		return v
	}
}

// IsBuiltinAnalyzer reports whether the engine ships the analyzer, so it
// need not be declared in the custom analysis block.
func IsBuiltinAnalyzer(name string) bool {
	switch name {
	case "standard", "simple", "whitespace", "stop", "keyword", "pattern",
		"fingerprint", "german", "english", "french":
		return true
	}
	return false
}
