package domain

import (
	"fmt"
	"maps"
	"reflect"
	"sort"
	"strings"
)

// IDField is the field every catalog document is keyed by.
const IDField = "id"

// Document is a single catalog entry as stored in (or returned by) the index.
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// NewDocument builds a Document from a raw field map, deriving the id from
// the "id" field.
func NewDocument(fields map[string]any) Document {
	return Document{ID: stringValue(fields[IDField]), Fields: fields}
}

// Ack confirms a document was accepted into a physical index.
type Ack struct {
	Index string `json:"index"`
	ID    string `json:"id"`
}

// Validate checks the document against the field mapping and mandatory
// fields of cfg. Every offending field is reported, sorted by name.
func (d Document) Validate(cfg *IndexConfig) error {
	var invalid, missing []string

	for name := range d.Fields {
		if _, ok := cfg.FieldMappings[name]; !ok {
			invalid = append(invalid, name)
		}
	}
	for _, name := range cfg.MandatoryFields {
		v, ok := d.Fields[name]
		if !ok || isEmpty(v) {
			missing = append(missing, name)
		}
	}

	if len(invalid) == 0 && len(missing) == 0 {
		return nil
	}
	sort.Strings(invalid)
	sort.Strings(missing)
	return &ValidationError{DocumentID: d.ID, InvalidFields: invalid, MissingFields: missing}
}

// WithContextDefaults returns a copy of the document where every completion
// context path that is mapped but absent is filled with the context default.
// The receiver is not modified.
func (d Document) WithContextDefaults(cfg *IndexConfig) Document {
	var out map[string]any
	for _, spec := range cfg.FieldMappings {
		if spec.Type != FieldTypeCompletion || spec.Context == nil || len(spec.Context.Default) == 0 {
			continue
		}
		path := spec.Context.Path
		if _, mapped := cfg.FieldMappings[path]; !mapped {
			continue
		}
		if v, ok := d.Fields[path]; ok && !isEmpty(v) {
			continue
		}
		if out == nil {
			out = maps.Clone(d.Fields)
		}
		if len(spec.Context.Default) == 1 {
			out[path] = spec.Context.Default[0]
		} else {
			out[path] = append([]string(nil), spec.Context.Default...)
		}
	}
	if out == nil {
		return d
	}
	return Document{ID: d.ID, Fields: out}
}

// isEmpty reports whether a mandatory value counts as absent: nil, a blank
// string, or an empty collection. Zero numbers and false are real values.
func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	if s, ok := v.(string); ok {
		return strings.TrimSpace(s) == ""
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Map, reflect.Array:
		return rv.Len() == 0
	case reflect.Pointer:
		return rv.IsNil()
	}
	return false
}

func stringValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	default:
		return fmt.Sprint(t)
	}
}
