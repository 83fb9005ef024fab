package memory

import (
	"context"
	"fmt"
	"maps"
	"sort"
	"strings"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/internal/engine"
)

type hit struct {
	id    string
	score float64
	doc   map[string]any
}

// Search evaluates a query DSL body. Supported clauses: bool (must, should,
// filter, must_not), prefix, term, query_string and match_all. Top-level
// size and min_score are honoured. Hits are ordered by score, then id.
func (e *Engine) Search(_ context.Context, target string, body map[string]any) ([]domain.Document, error) {
	e.mu.Lock()
	if err := e.record(OpSearch, target); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	idx, name, ok := e.resolve(target)
	if !ok {
		e.mu.Unlock()
		return nil, indexNotFound("search", name)
	}
	docs := make(map[string]map[string]any, len(idx.docs))
	for id, doc := range idx.docs {
		docs[id] = maps.Clone(doc)
	}
	defaultFields := idx.settings.DefaultSearchFields
	e.mu.Unlock()

	query, _ := body["query"].(map[string]any)
	if query == nil {
		query = map[string]any{"match_all": map[string]any{}}
	}
	minScore, _ := toFloat(body["min_score"])
	size := 10
	if s, ok := toFloat(body["size"]); ok {
		size = int(s)
	}

	ev := evaluator{defaultFields: defaultFields}
	var hits []hit
	for id, doc := range docs {
		matched, score, err := ev.eval(query, doc)
		if err != nil {
			return nil, domain.NewEngineError("search", name, 400, "parsing_exception", err.Error(), nil)
		}
		if !matched || score < minScore {
			continue
		}
		hits = append(hits, hit{id: id, score: score, doc: doc})
	}

	sort.Slice(hits, func(i, j int) bool {
		if hits[i].score != hits[j].score {
			return hits[i].score > hits[j].score
		}
		return hits[i].id < hits[j].id
	})
	if len(hits) > size {
		hits = hits[:size]
	}

	out := make([]domain.Document, 0, len(hits))
	for _, h := range hits {
		out = append(out, domain.Document{ID: h.id, Fields: h.doc})
	}
	return out, nil
}

type evaluator struct {
	defaultFields []string
}

func (ev evaluator) eval(q map[string]any, doc map[string]any) (bool, float64, error) {
	for kind, raw := range q {
		spec, _ := raw.(map[string]any)
		switch kind {
		case "match_all":
			return true, boostOf(spec), nil
		case "bool":
			return ev.evalBool(spec, doc)
		case "prefix":
			field, value, boost := fieldClause(spec)
			for _, v := range fieldValues(doc, field) {
				if strings.HasPrefix(v, value) {
					return true, boost, nil
				}
			}
			return false, 0, nil
		case "term":
			field, value, boost := fieldClause(spec)
			for _, v := range fieldValues(doc, field) {
				if v == value {
					return true, boost, nil
				}
			}
			return false, 0, nil
		case "query_string":
			return ev.evalQueryString(spec, doc), boostOf(spec), nil
		default:
			return false, 0, fmt.Errorf("unknown query [%s]", kind)
		}
	}
	return false, 0, fmt.Errorf("empty query")
}

func (ev evaluator) evalBool(spec map[string]any, doc map[string]any) (bool, float64, error) {
	var score float64
	for _, clause := range clauses(spec["must"]) {
		ok, s, err := ev.eval(clause, doc)
		if err != nil || !ok {
			return false, 0, err
		}
		score += s
	}
	for _, clause := range clauses(spec["filter"]) {
		ok, _, err := ev.eval(clause, doc)
		if err != nil || !ok {
			return false, 0, err
		}
	}
	for _, clause := range clauses(spec["must_not"]) {
		ok, _, err := ev.eval(clause, doc)
		if err != nil {
			return false, 0, err
		}
		if ok {
			return false, 0, nil
		}
	}

	should := clauses(spec["should"])
	matchedShould := 0
	for _, clause := range should {
		ok, s, err := ev.eval(clause, doc)
		if err != nil {
			return false, 0, err
		}
		if ok {
			matchedShould++
			score += s
		}
	}
	if len(should) > 0 && matchedShould == 0 && len(clauses(spec["must"])) == 0 && len(clauses(spec["filter"])) == 0 {
		return false, 0, nil
	}
	if len(should) == 0 && score == 0 {
		score = 1
	}
	return true, score * boostOf(spec), nil
}

// evalQueryString matches lowercased terms as substrings of the listed
// fields. Escapes are removed and boolean operators ignored.
func (ev evaluator) evalQueryString(spec map[string]any, doc map[string]any) bool {
	text, _ := spec["query"].(string)
	terms := queryTerms(text)
	if len(terms) == 0 {
		return false
	}

	fields := stringList(spec["fields"])
	if len(fields) == 0 {
		if f, ok := spec["default_field"].(string); ok {
			fields = []string{f}
		} else {
			fields = ev.defaultFields
		}
	}
	var values []string
	for _, f := range fields {
		for _, v := range fieldValues(doc, f) {
			values = append(values, strings.ToLower(v))
		}
	}

	and := strings.EqualFold(fmt.Sprint(spec["default_operator"]), "and")
	for _, term := range terms {
		found := false
		for _, v := range values {
			if strings.Contains(v, term) {
				found = true
				break
			}
		}
		if and && !found {
			return false
		}
		if !and && found {
			return true
		}
	}
	return and
}

func queryTerms(text string) []string {
	var b strings.Builder
	escaped := false
	for _, r := range text {
		switch {
		case escaped:
			b.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		default:
			b.WriteRune(r)
		}
	}
	var terms []string
	for _, tok := range strings.Fields(strings.ToLower(b.String())) {
		tok = strings.Trim(tok, "&|!()\"")
		if tok == "" || tok == "and" || tok == "or" || tok == "not" {
			continue
		}
		terms = append(terms, tok)
	}
	return terms
}

// SuggestCompletion matches the prefix against the completion inputs of
// req.Field. Analyzers other than whitespace and keyword fold case. With
// fuzziness the prefix may differ from the input's head by that many edits.
func (e *Engine) SuggestCompletion(_ context.Context, target string, req engine.SuggestRequest) ([]engine.SuggestOption, error) {
	e.mu.Lock()
	if err := e.record(OpSuggest, req.Field); err != nil {
		e.mu.Unlock()
		return nil, err
	}
	idx, name, ok := e.resolve(target)
	if !ok {
		e.mu.Unlock()
		return nil, indexNotFound("suggest", name)
	}
	spec, mapped := idx.fields[req.Field]
	docs := make([]hit, 0, len(idx.docs))
	for id, doc := range idx.docs {
		docs = append(docs, hit{id: id, doc: maps.Clone(doc)})
	}
	e.mu.Unlock()

	if !mapped || spec.Type != domain.FieldTypeCompletion {
		return nil, domain.NewEngineError("suggest", name, 400, "illegal_argument_exception",
			fmt.Sprintf("no mapping found for field [%s]", req.Field), nil)
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].id < docs[j].id })

	fold := spec.Analyzer != "whitespace" && spec.Analyzer != "keyword"
	prefix := req.Prefix
	if fold {
		prefix = strings.ToLower(prefix)
	}

	var options []engine.SuggestOption
	for _, d := range docs {
		if !contextMatches(spec.Context, req.Contexts, d.doc) {
			continue
		}
		for _, input := range fieldValues(d.doc, req.Field) {
			cmp := input
			if fold {
				cmp = strings.ToLower(cmp)
			}
			switch {
			case strings.HasPrefix(cmp, prefix):
				options = append(options, engine.SuggestOption{Text: input, Score: 1})
			case req.Fuzziness > 0 && prefixWithin(cmp, prefix, req.Fuzziness):
				options = append(options, engine.SuggestOption{Text: input, Score: 0.5})
			}
		}
	}

	sort.SliceStable(options, func(i, j int) bool { return options[i].Score > options[j].Score })
	if req.Size > 0 && len(options) > req.Size {
		options = options[:req.Size]
	}
	return options, nil
}

func contextMatches(spec *domain.ContextSpec, want map[string][]string, doc map[string]any) bool {
	if spec == nil {
		return true
	}
	values, ok := want[spec.Name]
	if !ok || len(values) == 0 {
		return true
	}
	have := fieldValues(doc, spec.Path)
	if len(have) == 0 {
		have = spec.Default
	}
	for _, h := range have {
		for _, w := range values {
			if h == w {
				return true
			}
		}
	}
	return false
}

// prefixWithin reports whether some head of input is within max edits of prefix.
func prefixWithin(input, prefix string, max int) bool {
	in := []rune(input)
	p := []rune(prefix)
	for n := len(p) - max; n <= len(p)+max; n++ {
		if n < 0 || n > len(in) {
			continue
		}
		if levenshtein(in[:n], p) <= max {
			return true
		}
	}
	return false
}

func levenshtein(a, b []rune) int {
	prev := make([]int, len(b)+1)
	cur := make([]int, len(b)+1)
	for j := range prev {
		prev[j] = j
	}
	for i := 1; i <= len(a); i++ {
		cur[0] = i
		for j := 1; j <= len(b); j++ {
			cost := 1
			if a[i-1] == b[j-1] {
				cost = 0
			}
			cur[j] = min(prev[j]+1, cur[j-1]+1, prev[j-1]+cost)
		}
		prev, cur = cur, prev
	}
	return prev[len(b)]
}

func clauses(v any) []map[string]any {
	switch t := v.(type) {
	case map[string]any:
		return []map[string]any{t}
	case []map[string]any:
		return t
	case []any:
		out := make([]map[string]any, 0, len(t))
		for _, c := range t {
			if m, ok := c.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

// fieldClause reads {field: value} or {field: {value: v, boost: b}}.
func fieldClause(spec map[string]any) (string, string, float64) {
	for field, raw := range spec {
		if m, ok := raw.(map[string]any); ok {
			return field, fmt.Sprint(m["value"]), boostOf(m)
		}
		return field, fmt.Sprint(raw), 1
	}
	return "", "", 1
}

func boostOf(spec map[string]any) float64 {
	if b, ok := toFloat(spec["boost"]); ok {
		return b
	}
	return 1
}

func toFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case float64:
		return t, true
	case float32:
		return float64(t), true
	}
	return 0, false
}

func stringList(v any) []string {
	switch t := v.(type) {
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, s := range t {
			out = append(out, fmt.Sprint(s))
		}
		return out
	}
	return nil
}

// fieldValues flattens a document field to strings. Completion inputs of
// the form {"input": [...]} are unwrapped.
func fieldValues(doc map[string]any, field string) []string {
	return flatten(doc[field])
}

func flatten(v any) []string {
	switch t := v.(type) {
	case nil:
		return nil
	case string:
		return []string{t}
	case []string:
		return t
	case []any:
		var out []string
		for _, item := range t {
			out = append(out, flatten(item)...)
		}
		return out
	case map[string]any:
		return flatten(t["input"])
	default:
		return []string{fmt.Sprint(t)}
	}
}
