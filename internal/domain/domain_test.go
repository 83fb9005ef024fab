package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

func testConfig() *IndexConfig {
	return &IndexConfig{
		Host:            "localhost",
		Port:            9200,
		ShardCount:      1,
		ReplicaCount:    0,
		DataTypeName:    "product",
		IndexNamePrefix: "products",
		MinScore:        0.6,
		MaxResults:      100,
		Analysis: Analysis{
			Analyzer: map[string]Component{
				"german_index_analyzer": {"type": "custom", "tokenizer": "standard", "filter": []any{"lowercase"}},
			},
			Filter: map[string]Component{
				"german_synonyms": {"type": "synonym", "synonyms": []any{"red, rot"}},
			},
		},
		FieldMappings: map[string]FieldSpec{
			"id":      {Type: FieldTypeKeyword, IncludeInDefaultSearch: true},
			"gender":  {Type: FieldTypeKeyword},
			"name_de": {Type: FieldTypeText, Analyzer: "german_index_analyzer", IncludeInDefaultSearch: true},
			"suggest_de": {
				Type:     FieldTypeCompletion,
				Analyzer: "simple",
				Context:  &ContextSpec{Name: "gender", Type: "category", Path: "gender", Default: []string{"female"}},
			},
		},
		MandatoryFields: []string{"id"},
	}
}

func TestIndexConfig_Names(t *testing.T) {
	cfg := testConfig()
	one, two := cfg.SlotNames()
	assert.Equal(t, "products-1", one)
	assert.Equal(t, "products-2", two)
	assert.Equal(t, "products-index", cfg.AliasName())
}

func TestIndexConfig_Validate(t *testing.T) {
	require.NoError(t, testConfig().Validate())

	t.Run("mandatory field without mapping", func(t *testing.T) {
		cfg := testConfig()
		cfg.MandatoryFields = append(cfg.MandatoryFields, "sku")
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `mandatory field "sku"`)
	})

	t.Run("unknown analyzer", func(t *testing.T) {
		cfg := testConfig()
		cfg.FieldMappings["name_en"] = FieldSpec{Type: FieldTypeText, Analyzer: "english_index_analyzer"}
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `unknown analyzer "english_index_analyzer"`)
	})

	t.Run("tag violations", func(t *testing.T) {
		cfg := testConfig()
		cfg.ShardCount = 0
		cfg.IndexNamePrefix = "Products"
		err := cfg.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "ShardCount")
		assert.Contains(t, err.Error(), "IndexNamePrefix")
	})

	t.Run("bad field type", func(t *testing.T) {
		cfg := testConfig()
		cfg.FieldMappings["weight"] = FieldSpec{Type: "float"}
		assert.Error(t, cfg.Validate())
	})
}

func TestIndexConfig_DefaultSearchFields(t *testing.T) {
	assert.Equal(t, []string{"id", "name_de"}, testConfig().DefaultSearchFields())
}

func TestIndexConfig_Clone_IsDeep(t *testing.T) {
	orig := testConfig()
	clone := orig.Clone()

	syn := clone.Analysis.Filter["german_synonyms"]["synonyms"].([]any)
	syn[0] = "blue, blau"
	clone.Analysis.Filter["german_synonyms"]["synonyms"] = append(syn, "green, grün")
	clone.FieldMappings["suggest_de"].Context.Default[0] = "male"
	clone.MandatoryFields[0] = "gender"

	assert.Equal(t, []any{"red, rot"}, orig.Analysis.Filter["german_synonyms"]["synonyms"])
	assert.Equal(t, []string{"female"}, orig.FieldMappings["suggest_de"].Context.Default)
	assert.Equal(t, []string{"id"}, orig.MandatoryFields)
}

func TestDocument_NewDocument(t *testing.T) {
	doc := NewDocument(map[string]any{"id": 4711, "name_de": "Schuh"})
	assert.Equal(t, "4711", doc.ID)
}

func TestDocument_Validate_ReportsEveryField(t *testing.T) {
	cfg := testConfig()
	doc := NewDocument(map[string]any{
		"name_de": "Schuh",
		"weight":  3,
		"brand":   "acme",
	})

	err := doc.Validate(cfg)
	require.Error(t, err)

	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, []string{"brand", "weight"}, verr.InvalidFields)
	assert.Equal(t, []string{"id"}, verr.MissingFields)
	assert.True(t, errors.Is(err, apperrors.ErrValidation))
	assert.Contains(t, err.Error(), "invalid fields supplied: brand, weight")
	assert.Contains(t, err.Error(), "missing mandatory fields or empty value: id")
}

func TestDocument_Validate_EmptyValues(t *testing.T) {
	cfg := testConfig()
	cfg.MandatoryFields = []string{"id", "name_de"}

	tests := []struct {
		name    string
		value   any
		missing bool
	}{
		{"blank string", "  ", true},
		{"nil", nil, true},
		{"empty slice", []any{}, true},
		{"zero number", 0, false},
		{"false", false, false},
		{"text", "Schuh", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := NewDocument(map[string]any{"id": "1", "name_de": tt.value})
			err := doc.Validate(cfg)
			if !tt.missing {
				assert.NoError(t, err)
				return
			}
			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, []string{"name_de"}, verr.MissingFields)
			assert.Empty(t, verr.InvalidFields)
		})
	}
}

func TestDocument_WithContextDefaults(t *testing.T) {
	cfg := testConfig()

	t.Run("fills absent gender", func(t *testing.T) {
		doc := NewDocument(map[string]any{"id": "1", "suggest_de": "Schuh"})
		filled := doc.WithContextDefaults(cfg)
		assert.Equal(t, "female", filled.Fields["gender"])
		_, touched := doc.Fields["gender"]
		assert.False(t, touched)
	})

	t.Run("keeps supplied gender", func(t *testing.T) {
		doc := NewDocument(map[string]any{"id": "1", "gender": "male"})
		assert.Equal(t, "male", doc.WithContextDefaults(cfg).Fields["gender"])
	})
}

func TestEngineError(t *testing.T) {
	err := NewMappingError("create index", "products-2", 400, "illegal_argument_exception", "unknown analyzer", nil)
	assert.Equal(t, "create index products-2: illegal_argument_exception: unknown analyzer", err.Error())
	assert.True(t, errors.Is(err, apperrors.ErrMapping))
	assert.False(t, errors.Is(err, apperrors.ErrEngine))

	cause := errors.New("connection refused")
	conn := NewConnectionError("ping", "", cause)
	assert.True(t, errors.Is(conn, apperrors.ErrConnection))
	assert.True(t, errors.Is(conn, cause))
	assert.Equal(t, "ping: connection refused", conn.Error())

	status := NewEngineError("refresh", "products-1", 503, "", "", nil)
	assert.Equal(t, "refresh products-1: unexpected status 503", status.Error())
}
