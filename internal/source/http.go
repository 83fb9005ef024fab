package source

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

// DocumentsPath is the product-service listing of search documents.
const DocumentsPath = "/api/v1/products/search-documents"

// jsonGetter is satisfied by *httpclient.CircuitBreakerClient.
type jsonGetter interface {
	GetJSON(ctx context.Context, url string, dst any) error
}

// HTTPSource pages through the product service's search-document listing.
type HTTPSource struct {
	client  jsonGetter
	baseURL string
	perPage int
	logger  *slog.Logger
}

// NewHTTPSource creates a source reading from the product service at
// baseURL, perPage documents per request.
func NewHTTPSource(client jsonGetter, baseURL string, perPage int, logger *slog.Logger) *HTTPSource {
	return &HTTPSource{client: client, baseURL: baseURL, perPage: perPage, logger: logger}
}

// Each requests pages until the service reports no further page or returns
// an empty one.
func (s *HTTPSource) Each(ctx context.Context, fn func(domain.Document) error) error {
	endpoint, err := url.JoinPath(s.baseURL, DocumentsPath)
	if err != nil {
		return fmt.Errorf("product service url: %w", err)
	}

	page := pagination.New(1, s.perPage)
	for {
		q := url.Values{}
		page.Encode(q)

		var result pagination.Result[map[string]any]
		if err := s.client.GetJSON(ctx, endpoint+"?"+q.Encode(), &result); err != nil {
			return fmt.Errorf("fetch page %d: %w", page.Page, err)
		}
		s.logger.DebugContext(ctx, "fetched catalog page",
			slog.Int("page", result.Page),
			slog.Int("total_pages", result.TotalPages),
			slog.Int("documents", len(result.Data)),
		)

		for _, fields := range result.Data {
			if err := fn(domain.NewDocument(fields)); err != nil {
				return err
			}
		}
		if !result.HasNext || len(result.Data) == 0 {
			return nil
		}
		page = page.Next()
	}
}
