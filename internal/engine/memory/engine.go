package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"sync"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

// Operation names used for call recording and failure injection.
const (
	OpCreateIndex    = "create_index"
	OpDeleteIndex    = "delete_index"
	OpIndexExists    = "index_exists"
	OpApplyMapping   = "apply_mapping"
	OpBindAlias      = "bind_alias"
	OpSubmitDocument = "submit_document"
	OpOptimize       = "optimize"
	OpRefresh        = "refresh"
	OpSearch         = "search"
	OpSuggest        = "suggest"
	OpPing           = "ping"
)

// Call is one recorded engine operation.
type Call struct {
	Op     string
	Target string
}

type index struct {
	settings engine.IndexSettings
	dataType string
	fields   map[string]domain.FieldSpec

	// docs are searchable; pending become searchable on Refresh.
	docs    map[string]map[string]any
	pending map[string]map[string]any

	optimized bool
}

type failure struct {
	target string
	err    error
}

// Engine is an in-memory implementation of engine.EngineClient. It keeps
// indices, aliases and documents in maps and evaluates the subset of the
// query DSL the catalog queries use. Thread-safe via sync.RWMutex.
type Engine struct {
	mu       sync.RWMutex
	indices  map[string]*index
	aliases  map[string]string
	calls    []Call
	failures map[string]failure
}

var _ engine.EngineClient = (*Engine)(nil)

// New creates a new in-memory search engine.
func New() *Engine {
	return &Engine{
		indices:  make(map[string]*index),
		aliases:  make(map[string]string),
		failures: make(map[string]failure),
	}
}

// FailOn makes every call of op fail with err. A non-empty target limits the
// failure to calls against that index, alias or suggest field.
func (e *Engine) FailOn(op, target string, err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures[op] = failure{target: target, err: err}
}

// ClearFailures removes every injected failure.
func (e *Engine) ClearFailures() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.failures = make(map[string]failure)
}

// Calls returns the operations recorded so far, in call order.
func (e *Engine) Calls() []Call {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return append([]Call(nil), e.calls...)
}

// ResetCalls forgets the recorded operations.
func (e *Engine) ResetCalls() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = nil
}

// Indices returns the names of the existing physical indices, sorted.
func (e *Engine) Indices() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	names := make([]string, 0, len(e.indices))
	for name := range e.indices {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// AliasTarget returns the index alias currently points at.
func (e *Engine) AliasTarget(alias string) (string, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	target, ok := e.aliases[alias]
	return target, ok
}

// DocumentCount returns the number of documents submitted to an index or
// the index an alias points at, refreshed or not.
func (e *Engine) DocumentCount(name string) int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, _, ok := e.resolve(name)
	if !ok {
		return 0
	}
	ids := make(map[string]struct{}, len(idx.docs)+len(idx.pending))
	for id := range idx.docs {
		ids[id] = struct{}{}
	}
	for id := range idx.pending {
		ids[id] = struct{}{}
	}
	return len(ids)
}

// Document returns a stored document, refreshed or not. name may be an alias.
func (e *Engine) Document(name, id string) (map[string]any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, _, ok := e.resolve(name)
	if !ok {
		return nil, false
	}
	if doc, ok := idx.pending[id]; ok {
		return maps.Clone(doc), true
	}
	doc, ok := idx.docs[id]
	return maps.Clone(doc), ok
}

// Settings returns the creation settings and mapping of an index.
func (e *Engine) Settings(name string) (engine.IndexSettings, map[string]domain.FieldSpec, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indices[name]
	if !ok {
		return engine.IndexSettings{}, nil, false
	}
	return idx.settings, idx.fields, true
}

// record logs the call and returns the injected failure, if any. Callers
// hold e.mu.
func (e *Engine) record(op, target string) error {
	e.calls = append(e.calls, Call{Op: op, Target: target})
	if f, ok := e.failures[op]; ok && (f.target == "" || f.target == target) {
		return f.err
	}
	return nil
}

// resolve maps an alias or index name to the physical index. Callers hold e.mu.
func (e *Engine) resolve(target string) (*index, string, bool) {
	name := target
	if aliased, ok := e.aliases[target]; ok {
		name = aliased
	}
	idx, ok := e.indices[name]
	return idx, name, ok
}

func indexNotFound(op, name string) error {
	return domain.NewEngineError(op, name, 404, "index_not_found_exception", fmt.Sprintf("no such index [%s]", name), nil)
}

// CreateIndex creates an empty index.
func (e *Engine) CreateIndex(_ context.Context, name string, settings engine.IndexSettings) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpCreateIndex, name); err != nil {
		return err
	}
	if _, ok := e.indices[name]; ok {
		return domain.NewMappingError("create index", name, 400, "resource_already_exists_exception",
			fmt.Sprintf("index [%s] already exists", name), nil)
	}
	for analyzer, comp := range settings.Analysis.Analyzer {
		for _, f := range filterNames(comp) {
			if _, ok := settings.Analysis.Filter[f]; !ok && !isBuiltinFilter(f) {
				return domain.NewMappingError("create index", name, 400, "illegal_argument_exception",
					fmt.Sprintf("analyzer [%s] references unknown filter [%s]", analyzer, f), nil)
			}
		}
	}

	e.indices[name] = &index{
		settings: settings,
		docs:     make(map[string]map[string]any),
		pending:  make(map[string]map[string]any),
	}
	return nil
}

// DeleteIndex removes an index and any alias pointing at it.
func (e *Engine) DeleteIndex(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpDeleteIndex, name); err != nil {
		return err
	}
	delete(e.indices, name)
	for alias, target := range e.aliases {
		if target == name {
			delete(e.aliases, alias)
		}
	}
	return nil
}

// IndexExists reports whether a physical index exists.
func (e *Engine) IndexExists(_ context.Context, name string) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpIndexExists, name); err != nil {
		return false, err
	}
	_, ok := e.indices[name]
	return ok, nil
}

// ApplyMapping stores the field table after checking every analyzer it
// names is declared or built in.
func (e *Engine) ApplyMapping(_ context.Context, name, dataType string, fields map[string]domain.FieldSpec, defaults engine.DefaultAnalyzers) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpApplyMapping, name); err != nil {
		return err
	}
	idx, ok := e.indices[name]
	if !ok {
		return indexNotFound("put mapping", name)
	}

	known := func(a string) bool {
		if a == "" || domain.IsBuiltinAnalyzer(a) {
			return true
		}
		_, ok := idx.settings.Analysis.Analyzer[a]
		return ok
	}
	for field, spec := range fields {
		analyzer, search := spec.Analyzer, spec.SearchAnalyzer
		if spec.Type == domain.FieldTypeText && analyzer == "" {
			analyzer, search = defaults.Index, defaults.Search
		}
		for _, a := range []string{analyzer, search} {
			if !known(a) {
				return domain.NewMappingError("put mapping", name, 400, "mapper_parsing_exception",
					fmt.Sprintf("analyzer [%s] has not been configured in mappings for field [%s]", a, field), nil)
			}
		}
	}

	idx.dataType = dataType
	idx.fields = make(map[string]domain.FieldSpec, len(fields))
	maps.Copy(idx.fields, fields)
	return nil
}

// BindAlias points alias at target.
func (e *Engine) BindAlias(_ context.Context, alias, target string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpBindAlias, target); err != nil {
		return err
	}
	if _, ok := e.indices[target]; !ok {
		return indexNotFound("update aliases", target)
	}
	e.aliases[alias] = target
	return nil
}

// SubmitDocument stores a document; it becomes searchable on Refresh.
func (e *Engine) SubmitDocument(_ context.Context, name, _ string, id string, fields map[string]any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpSubmitDocument, name); err != nil {
		return err
	}
	idx, ok := e.indices[name]
	if !ok {
		return indexNotFound("index", name)
	}
	idx.pending[id] = maps.Clone(fields)
	return nil
}

// Optimize marks the index as merged.
func (e *Engine) Optimize(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpOptimize, name); err != nil {
		return err
	}
	idx, ok := e.indices[name]
	if !ok {
		return indexNotFound("forcemerge", name)
	}
	idx.optimized = true
	return nil
}

// Refresh makes pending documents searchable.
func (e *Engine) Refresh(_ context.Context, name string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.record(OpRefresh, name); err != nil {
		return err
	}
	idx, ok := e.indices[name]
	if !ok {
		return indexNotFound("refresh", name)
	}
	maps.Copy(idx.docs, idx.pending)
	clear(idx.pending)
	return nil
}

// Ping always succeeds unless a failure is injected.
func (e *Engine) Ping(_ context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.record(OpPing, "")
}

// Optimized reports whether Optimize ran on the index.
func (e *Engine) Optimized(name string) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	idx, ok := e.indices[name]
	return ok && idx.optimized
}

func filterNames(comp domain.Component) []string {
	switch t := comp["filter"].(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, v := range t {
			if s, ok := v.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func isBuiltinFilter(name string) bool {
	switch name {
	case "lowercase", "uppercase", "asciifolding", "word_delimiter", "word_delimiter_graph",
		"stop", "trim", "unique", "reverse", "porter_stem", "kstem", "shingle":
		return true
	}
	return false
}
