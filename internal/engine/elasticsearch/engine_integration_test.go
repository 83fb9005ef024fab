package elasticsearch_test

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/catalog-search/internal/catalog"
	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
	esengine "github.com/utafrali/catalog-search/internal/engine/elasticsearch"
)

// testLogger returns a discard logger suitable for tests.
func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newTestEngine creates an Elasticsearch engine for integration tests and a
// catalog config with a unique index prefix. It skips the test if
// ELASTICSEARCH_URL is not set.
func newTestEngine(t *testing.T) (*esengine.Engine, *domain.IndexConfig) {
	t.Helper()

	esURL := os.Getenv("ELASTICSEARCH_URL")
	if esURL == "" {
		t.Skip("ELASTICSEARCH_URL not set, skipping Elasticsearch integration tests")
	}

	eng, err := esengine.New(esengine.Config{Addresses: []string{esURL}}, testLogger())
	require.NoError(t, err, "failed to create Elasticsearch engine")

	cfg := catalog.Default()
	cfg.IndexNamePrefix = fmt.Sprintf("test-products-%d", time.Now().UnixNano())
	cfg.ReplicaCount = 0
	// Decompounders read word lists from the node's config directory.
	for name := range cfg.WordListFilters {
		delete(cfg.Analysis.Filter, name)
	}

	one, two := cfg.SlotNames()
	t.Cleanup(func() {
		_ = eng.DeleteIndex(context.Background(), one)
		_ = eng.DeleteIndex(context.Background(), two)
	})
	return eng, cfg
}

func TestES_Ping(t *testing.T) {
	eng, _ := newTestEngine(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	assert.NoError(t, eng.Ping(ctx))
}

func TestES_CatalogRoundTrip(t *testing.T) {
	eng, cfg := newTestEngine(t)
	ctx := context.Background()
	one, two := cfg.SlotNames()

	require.NoError(t, eng.CreateIndex(ctx, one, engine.SettingsFor(cfg)))
	require.NoError(t, eng.ApplyMapping(ctx, one, cfg.DataTypeName, cfg.FieldMappings, engine.DefaultsFor(cfg)))
	require.NoError(t, eng.BindAlias(ctx, cfg.AliasName(), one))

	doc := domain.NewDocument(map[string]any{
		"id":              "12345",
		"gender":          "male",
		"name_de":         "Rote Laufschuhe",
		"categories_de":   "Schuhe",
		"suggest_name_de": "Rote Laufschuhe",
		"suggest_id":      "12345",
	})
	require.NoError(t, eng.SubmitDocument(ctx, one, cfg.DataTypeName, doc.ID, doc.Fields))
	require.NoError(t, eng.Refresh(ctx, one))

	hits, err := eng.Search(ctx, cfg.AliasName(), map[string]any{
		"query": map[string]any{"prefix": map[string]any{"id": "123"}},
	})
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "12345", hits[0].ID)

	opts, err := eng.SuggestCompletion(ctx, cfg.AliasName(), engine.SuggestRequest{
		Field:     "suggest_name_de",
		Prefix:    "rote",
		Fuzziness: 1,
		Size:      100,
		Contexts:  map[string][]string{"gender": {"male"}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, opts)
	assert.Equal(t, "Rote Laufschuhe", opts[0].Text)

	// Swap the alias onto a second, empty index.
	require.NoError(t, eng.CreateIndex(ctx, two, engine.SettingsFor(cfg)))
	require.NoError(t, eng.ApplyMapping(ctx, two, cfg.DataTypeName, cfg.FieldMappings, engine.DefaultsFor(cfg)))
	require.NoError(t, eng.BindAlias(ctx, cfg.AliasName(), two))

	hits, err = eng.Search(ctx, cfg.AliasName(), map[string]any{"query": map[string]any{"match_all": map[string]any{}}})
	require.NoError(t, err)
	assert.Empty(t, hits)

	require.NoError(t, eng.Optimize(ctx, two))
	require.NoError(t, eng.DeleteIndex(ctx, one))
	exists, err := eng.IndexExists(ctx, one)
	require.NoError(t, err)
	assert.False(t, exists)
}
