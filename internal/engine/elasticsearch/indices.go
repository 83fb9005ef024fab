package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

// CreateIndex creates an empty physical index with shards, replicas, the
// analysis block and the default query field list.
func (e *Engine) CreateIndex(ctx context.Context, name string, settings engine.IndexSettings) error {
	data, err := json.Marshal(buildIndexSettings(settings))
	if err != nil {
		return fmt.Errorf("elasticsearch create index: marshal settings: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.Create(
		name,
		e.client.Indices.Create.WithBody(bytes.NewReader(data)),
		e.client.Indices.Create.WithContext(ctx),
	)
	observe("create_index", start, err, res)
	if err != nil {
		return transportError(ctx, "create index", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("create index", name, res, true)
	}

	e.logger.Info("elasticsearch index created", "index", name)
	return nil
}

// DeleteIndex removes a physical index. A 404 response is treated as
// success (index already absent).
func (e *Engine) DeleteIndex(ctx context.Context, name string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.Delete(
		[]string{name},
		e.client.Indices.Delete.WithContext(ctx),
	)
	observe("delete_index", start, err, res)
	if err != nil {
		return transportError(ctx, "delete index", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return responseError("delete index", name, res, false)
	}

	e.logger.Info("elasticsearch index deleted", "index", name)
	return nil
}

// IndexExists reports whether a physical index (or alias) with the name exists.
func (e *Engine) IndexExists(ctx context.Context, name string) (bool, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.Exists(
		[]string{name},
		e.client.Indices.Exists.WithContext(ctx),
	)
	observe("index_exists", start, err, res)
	if err != nil {
		return false, transportError(ctx, "index exists", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	switch res.StatusCode {
	case http.StatusOK:
		return true, nil
	case http.StatusNotFound:
		return false, nil
	default:
		return false, responseError("index exists", name, res, false)
	}
}

// ApplyMapping installs the field mapping. The data type name is kept in the
// mapping's _meta block since mapping types no longer exist.
func (e *Engine) ApplyMapping(ctx context.Context, name, dataType string, fields map[string]domain.FieldSpec, defaults engine.DefaultAnalyzers) error {
	data, err := json.Marshal(buildMapping(dataType, fields, defaults))
	if err != nil {
		return fmt.Errorf("elasticsearch put mapping: marshal mapping: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.PutMapping(
		[]string{name},
		bytes.NewReader(data),
		e.client.Indices.PutMapping.WithContext(ctx),
	)
	observe("put_mapping", start, err, res)
	if err != nil {
		return transportError(ctx, "put mapping", name, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("put mapping", name, res, true)
	}

	e.logger.Info("elasticsearch mapping applied", "index", name, "fields", len(fields))
	return nil
}

// BindAlias moves alias onto target. The current holders are looked up first
// and every move happens in one _aliases request.
func (e *Engine) BindAlias(ctx context.Context, alias, target string) error {
	holders, err := e.aliasHolders(ctx, alias)
	if err != nil {
		return err
	}

	var actions []any
	for _, idx := range holders {
		if idx == target {
			continue
		}
		actions = append(actions, map[string]any{
			"remove": map[string]any{"index": idx, "alias": alias},
		})
	}
	actions = append(actions, map[string]any{
		"add": map[string]any{"index": target, "alias": alias},
	})

	data, err := json.Marshal(map[string]any{"actions": actions})
	if err != nil {
		return fmt.Errorf("elasticsearch update aliases: marshal actions: %w", err)
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.UpdateAliases(
		bytes.NewReader(data),
		e.client.Indices.UpdateAliases.WithContext(ctx),
	)
	observe("update_aliases", start, err, res)
	if err != nil {
		return transportError(ctx, "update aliases", target, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("update aliases", target, res, false)
	}

	e.logger.Info("elasticsearch alias bound", "alias", alias, "index", target, "previous", holders)
	return nil
}

// aliasHolders returns, sorted, the indices currently carrying alias.
func (e *Engine) aliasHolders(ctx context.Context, alias string) ([]string, error) {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.GetAlias(
		e.client.Indices.GetAlias.WithName(alias),
		e.client.Indices.GetAlias.WithContext(ctx),
	)
	observe("get_alias", start, err, res)
	if err != nil {
		return nil, transportError(ctx, "get alias", alias, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.IsError() {
		return nil, responseError("get alias", alias, res, false)
	}

	var body map[string]json.RawMessage
	if err := decode("get alias", alias, res, &body); err != nil {
		return nil, err
	}
	holders := make([]string, 0, len(body))
	for idx := range body {
		holders = append(holders, idx)
	}
	sort.Strings(holders)
	return holders, nil
}

// Optimize force-merges an index down to a single segment.
func (e *Engine) Optimize(ctx context.Context, index string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.Forcemerge(
		e.client.Indices.Forcemerge.WithIndex(index),
		e.client.Indices.Forcemerge.WithMaxNumSegments(1),
		e.client.Indices.Forcemerge.WithContext(ctx),
	)
	observe("forcemerge", start, err, res)
	if err != nil {
		return transportError(ctx, "forcemerge", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("forcemerge", index, res, false)
	}
	return nil
}

// Refresh makes every submitted document of an index searchable.
func (e *Engine) Refresh(ctx context.Context, index string) error {
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	res, err := e.client.Indices.Refresh(
		e.client.Indices.Refresh.WithIndex(index),
		e.client.Indices.Refresh.WithContext(ctx),
	)
	observe("refresh", start, err, res)
	if err != nil {
		return transportError(ctx, "refresh", index, err)
	}
	defer func() { _ = res.Body.Close() }()

	if res.IsError() {
		return responseError("refresh", index, res, false)
	}
	return nil
}
