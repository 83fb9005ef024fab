// Package catalog holds the default index description for the product
// catalog: German, English and French analysis chains, the localized text
// fields and the gendered completion fields used for autocomplete.
package catalog

import (
	"github.com/utafrali/catalog-search/internal/domain"
)

// Languages are the catalog languages with localized fields.
var Languages = []string{"de", "en", "fr"}

// DefaultLanguage is used when a request does not name one.
const DefaultLanguage = "de"

// DefaultGender is the completion context value documents without a gender
// are indexed under.
const DefaultGender = "female"

const (
	germanIndexAnalyzer  = "german_index_analyzer"
	englishIndexAnalyzer = "english_index_analyzer"
	frenchIndexAnalyzer  = "french_index_analyzer"
	searchAnalyzer       = "search_analyzer"
)

var colorSynonyms = []string{
	"red, rot",
	"black, schwarz",
	"green, grün",
	"yellow, gelb",
	"white, weiß, weiss",
	"magenta, magenta",
	"cyan, cyan",
	"taupe, taupe",
	"brown, braun",
	"blue, blau",
	"light, licht, lt",
	"dark, dunkel, dk",
	"orange, orange",
	"pink, pink",
	"violet, violett, viola",
	"gray, grau",
	"mint, minze",
	"beige, beige",
	"lila, lila",
	"mint, green, grün",
}

// Default returns a freshly built catalog index description. Every call
// returns an independent value.
func Default() *domain.IndexConfig {
	return &domain.IndexConfig{
		Host:                  "127.0.0.1",
		Port:                  9200,
		ShardCount:            1,
		ReplicaCount:          1,
		DataTypeName:          "product",
		IndexNamePrefix:       "products",
		MinScore:              0.6,
		MaxResults:            100,
		DefaultIndexAnalyzer:  germanIndexAnalyzer,
		DefaultSearchAnalyzer: searchAnalyzer,
		Analysis:              analysis(),
		FieldMappings:         fields(),
		MandatoryFields:       []string{domain.IDField},
		SynonymFilters:        []string{"german_synonyms", "english_synonyms"},
		WordListFilters: map[string]string{
			"german_decompound":  "german-common-nouns.txt",
			"english_decompound": "english-common-nouns.txt",
		},
	}
}

func analysis() domain.Analysis {
	return domain.Analysis{
		Analyzer: map[string]domain.Component{
			searchAnalyzer: {
				"type":      "custom",
				"tokenizer": "standard",
				"filter":    []any{"german_synonyms", "lowercase", "english_stemmer"},
			},
			germanIndexAnalyzer: {
				"type":      "custom",
				"tokenizer": "standard",
				"filter": []any{
					"german_synonyms", "german_keywords", "word_delimiter",
					"german_stemmer", "asciifolding", "german_stop",
				},
			},
			englishIndexAnalyzer: {
				"type":      "custom",
				"tokenizer": "standard",
				"filter":    []any{"lowercase", "english_stemmer", "english_keywords", "english_stop"},
			},
			frenchIndexAnalyzer: {
				"type":      "custom",
				"tokenizer": "standard",
				"filter":    []any{"french_elision", "lowercase", "french_stop", "french_keywords", "french_stemmer"},
			},
		},
		Filter: map[string]domain.Component{
			"german_stemmer":  {"type": "snowball", "language": "German2"},
			"english_stemmer": {"type": "snowball", "language": "English"},
			"french_stemmer":  {"type": "stemmer", "language": "light_french"},
			"german_stop":     {"type": "stop", "stopwords": "_german_"},
			"english_stop":    {"type": "stop", "stopwords": "_english_"},
			"french_stop":     {"type": "stop", "stopwords": "_french_"},
			"french_elision": {
				"type": "elision",
				"articles": []any{
					"l", "m", "t", "qu", "n", "s", "j", "d", "c",
					"jusqu", "quoiqu", "lorsqu", "puisqu",
				},
			},
			"german_keywords":  {"type": "keyword_marker", "keywords": []any{"keyword"}},
			"english_keywords": {"type": "keyword_marker", "keywords": []any{"keyword"}},
			"french_keywords":  {"type": "keyword_marker", "keywords": []any{"keyword"}},
			"german_synonyms":  synonymFilter(colorSynonyms...),
			"english_synonyms": synonymFilter("test, test"),
			"french_synonyms":  synonymFilter("test, test"),
			"trigrams_filter":  {"type": "ngram", "min_gram": 3, "max_gram": 3},
			"german_decompound": {
				"type":           "dictionary_decompounder",
				"word_list_path": "german-common-nouns.txt",
			},
			"english_decompound": {
				"type":           "dictionary_decompounder",
				"word_list_path": "english-common-nouns.txt",
			},
		},
	}
}

func synonymFilter(rules ...string) domain.Component {
	synonyms := make([]any, len(rules))
	for i, r := range rules {
		synonyms[i] = r
	}
	return domain.Component{"type": "synonym", "expand": true, "synonyms": synonyms}
}

func fields() map[string]domain.FieldSpec {
	m := map[string]domain.FieldSpec{
		"id":     {Type: domain.FieldTypeKeyword, IncludeInDefaultSearch: true},
		"sizeId": {Type: domain.FieldTypeKeyword, IncludeInDefaultSearch: true},
		"gender": {Type: domain.FieldTypeKeyword, IncludeInDefaultSearch: true},
		"brand":  {Type: domain.FieldTypeText, Analyzer: englishIndexAnalyzer, IncludeInDefaultSearch: true},
		"suggest_id": {
			Type:           domain.FieldTypeCompletion,
			Analyzer:       "whitespace",
			SearchAnalyzer: "whitespace",
		},
	}

	analyzers := map[string]string{
		"de": germanIndexAnalyzer,
		"en": englishIndexAnalyzer,
		"fr": frenchIndexAnalyzer,
	}
	for _, lang := range Languages {
		a := analyzers[lang]
		// Only the German name and description feed the default search list.
		m["name_"+lang] = domain.FieldSpec{Type: domain.FieldTypeText, Analyzer: a, IncludeInDefaultSearch: lang == "de"}
		m["description_"+lang] = domain.FieldSpec{Type: domain.FieldTypeText, Analyzer: a, IncludeInDefaultSearch: lang == "de"}
		m["color_"+lang] = domain.FieldSpec{Type: domain.FieldTypeText, Analyzer: a, IncludeInDefaultSearch: true}
		m["categories_"+lang] = domain.FieldSpec{Type: domain.FieldTypeText, Analyzer: a, IncludeInDefaultSearch: true}

		for _, prefix := range []string{"suggest_name_", "suggest_categories_", "suggest_color_", "suggest_"} {
			m[prefix+lang] = genderedCompletion()
		}
	}
	return m
}

func genderedCompletion() domain.FieldSpec {
	return domain.FieldSpec{
		Type:           domain.FieldTypeCompletion,
		Analyzer:       "simple",
		SearchAnalyzer: "simple",
		Context: &domain.ContextSpec{
			Name:    "gender",
			Type:    "category",
			Path:    "gender",
			Default: []string{DefaultGender},
		},
	}
}

// SuggestFields returns the completion fields queried for a free-text term,
// in merge order.
func SuggestFields(lang string) []string {
	return []string{
		"suggest_categories_" + lang,
		"suggest_name_" + lang,
		"suggest_" + lang,
		"suggest_id",
		"suggest_color_" + lang,
	}
}

// IDSuggestField is the only completion field queried for id-like terms.
const IDSuggestField = "suggest_id"
