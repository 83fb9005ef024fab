package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

// esSearchResponse is the structure used to decode Elasticsearch search responses.
type esSearchResponse struct {
	Took int `json:"took"`
	Hits struct {
		Hits []struct {
			ID     string         `json:"_id"`
			Score  float64        `json:"_score"`
			Source map[string]any `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// esSuggestResponse is the structure used to decode completion suggester responses.
type esSuggestResponse struct {
	Suggest map[string][]struct {
		Text    string `json:"text"`
		Options []struct {
			Text  string  `json:"text"`
			Score float64 `json:"_score"`
		} `json:"options"`
	} `json:"suggest"`
}

// suggestName is the key the single suggester is registered under.
const suggestName = "completion"

// SubmitDocument indexes a document under id. The document is not visible to
// searches until the index is refreshed.
func (e *Engine) SubmitDocument(ctx context.Context, index, dataType, id string, fields map[string]any) error {
	data, err := json.Marshal(fields)
	if err != nil {
		return fmt.Errorf("elasticsearch index: marshal document: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Index(
		index,
		bytes.NewReader(data),
		e.client.Index.WithDocumentID(id),
		e.client.Index.WithContext(ctx),
	)
	observe("index", start, err, res)
	if err != nil {
		return transportError(ctx, "index", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("index", index, res, false)
	}

	e.logger.Debug("indexed document", "index", index, "type", dataType, "id", id)
	return nil
}

// Search executes a query DSL body against target and returns the hits.
func (e *Engine) Search(ctx context.Context, target string, query map[string]any) ([]domain.Document, error) {
	data, err := json.Marshal(query)
	if err != nil {
		return nil, fmt.Errorf("elasticsearch search: marshal query: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Search(
		e.client.Search.WithIndex(target),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	observe("search", start, err, res)
	if err != nil {
		return nil, transportError(ctx, "search", target, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("search", target, res, false)
	}

	var esResp esSearchResponse
	if err := decode("search", target, res, &esResp); err != nil {
		return nil, err
	}

	docs := make([]domain.Document, 0, len(esResp.Hits.Hits))
	for _, hit := range esResp.Hits.Hits {
		docs = append(docs, domain.Document{ID: hit.ID, Fields: hit.Source})
	}

	e.logger.Debug("search executed", "target", target, "hits", len(docs), "took_ms", esResp.Took)
	return docs, nil
}

// SuggestCompletion runs one completion suggester and returns its options.
func (e *Engine) SuggestCompletion(ctx context.Context, target string, req engine.SuggestRequest) ([]engine.SuggestOption, error) {
	data, err := json.Marshal(buildSuggestBody(req))
	if err != nil {
		return nil, fmt.Errorf("elasticsearch suggest: marshal query: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Search(
		e.client.Search.WithIndex(target),
		e.client.Search.WithBody(bytes.NewReader(data)),
		e.client.Search.WithContext(ctx),
	)
	observe("suggest", start, err, res)
	if err != nil {
		return nil, transportError(ctx, "suggest", target, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return nil, responseError("suggest", target, res, false)
	}

	var esResp esSuggestResponse
	if err := decode("suggest", target, res, &esResp); err != nil {
		return nil, err
	}

	var options []engine.SuggestOption
	for _, entry := range esResp.Suggest[suggestName] {
		for _, opt := range entry.Options {
			options = append(options, engine.SuggestOption{Text: opt.Text, Score: opt.Score})
		}
	}
	return options, nil
}

func buildSuggestBody(req engine.SuggestRequest) map[string]any {
	completion := map[string]any{
		"field": req.Field,
	}
	if req.Size > 0 {
		completion["size"] = req.Size
	}
	if req.Fuzziness > 0 {
		completion["fuzzy"] = map[string]any{"fuzziness": req.Fuzziness}
	}
	if len(req.Contexts) > 0 {
		completion["contexts"] = req.Contexts
	}

	return map[string]any{
		"_source": false,
		"suggest": map[string]any{
			suggestName: map[string]any{
				"prefix":     req.Prefix,
				"completion": completion,
			},
		},
	}
}
