package domain

import (
	"fmt"
	"strings"

	apperrors "github.com/utafrali/catalog-search/pkg/errors"
)

// ValidationError lists every field that made a document unacceptable.
type ValidationError struct {
	DocumentID    string
	InvalidFields []string
	MissingFields []string
}

func (e *ValidationError) Error() string {
	var parts []string
	if len(e.InvalidFields) > 0 {
		parts = append(parts, "invalid fields supplied: "+strings.Join(e.InvalidFields, ", "))
	}
	if len(e.MissingFields) > 0 {
		parts = append(parts, "missing mandatory fields or empty value: "+strings.Join(e.MissingFields, ", "))
	}
	msg := strings.Join(parts, "; ")
	if e.DocumentID != "" {
		return fmt.Sprintf("document %q: %s", e.DocumentID, msg)
	}
	return msg
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

// Fields returns every offending field name, invalid ones first.
func (e *ValidationError) Fields() []string {
	out := make([]string, 0, len(e.InvalidFields)+len(e.MissingFields))
	out = append(out, e.InvalidFields...)
	return append(out, e.MissingFields...)
}

// EngineError describes a failed call to the search engine. Kind is one of
// apperrors.ErrConnection, apperrors.ErrEngine or apperrors.ErrMapping.
type EngineError struct {
	Kind   error
	Op     string
	Index  string
	Status int
	Type   string
	Reason string
	Err    error
}

func (e *EngineError) Error() string {
	var b strings.Builder
	b.WriteString(e.Op)
	if e.Index != "" {
		b.WriteString(" ")
		b.WriteString(e.Index)
	}
	b.WriteString(": ")
	switch {
	case e.Type != "":
		fmt.Fprintf(&b, "%s: %s", e.Type, e.Reason)
	case e.Err != nil:
		b.WriteString(e.Err.Error())
	case e.Status != 0:
		fmt.Fprintf(&b, "unexpected status %d", e.Status)
	default:
		b.WriteString(e.Kind.Error())
	}
	return b.String()
}

func (e *EngineError) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// NewConnectionError wraps a transport failure.
func NewConnectionError(op, index string, err error) *EngineError {
	return &EngineError{Kind: apperrors.ErrConnection, Op: op, Index: index, Err: err}
}

// NewEngineError describes an engine-side rejection or a timed-out call.
func NewEngineError(op, index string, status int, typ, reason string, err error) *EngineError {
	return &EngineError{Kind: apperrors.ErrEngine, Op: op, Index: index, Status: status, Type: typ, Reason: reason, Err: err}
}

// NewMappingError describes a rejected index creation or mapping update.
func NewMappingError(op, index string, status int, typ, reason string, err error) *EngineError {
	return &EngineError{Kind: apperrors.ErrMapping, Op: op, Index: index, Status: status, Type: typ, Reason: reason, Err: err}
}
