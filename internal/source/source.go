// Package source reads the full catalog for a reindex run.
package source

import (
	"context"

	"github.com/utafrali/catalog-search/internal/domain"
)

// DocumentSource streams every catalog document to fn, one at a time and in
// a stable order. Iteration stops at the first error fn returns.
type DocumentSource interface {
	Each(ctx context.Context, fn func(domain.Document) error) error
}

// Func adapts a plain function to DocumentSource.
type Func func(ctx context.Context, fn func(domain.Document) error) error

// Each calls f.
func (f Func) Each(ctx context.Context, fn func(domain.Document) error) error {
	return f(ctx, fn)
}

// Static serves a fixed slice of documents.
func Static(docs ...domain.Document) DocumentSource {
	return Func(func(ctx context.Context, fn func(domain.Document) error) error {
		for _, d := range docs {
			if err := ctx.Err(); err != nil {
				return err
			}
			if err := fn(d); err != nil {
				return err
			}
		}
		return nil
	})
}
