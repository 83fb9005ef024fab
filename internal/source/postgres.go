package source

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log/slog"

	"github.com/utafrali/catalog-search/internal/domain"
	"github.com/utafrali/catalog-search/pkg/database"
	"github.com/utafrali/catalog-search/pkg/pagination"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrations returns the schema migrations of the catalog_documents table,
// ready for database.RunMigrations.
func Migrations() fs.FS {
	sub, err := fs.Sub(migrationFiles, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

const selectDocuments = `SELECT id, fields FROM catalog_documents ORDER BY id LIMIT $1 OFFSET $2`

// PostgresSource reads the catalog_documents table page by page. Each row
// holds a document id and its fields as a JSON object.
type PostgresSource struct {
	db       database.Querier
	pageSize int
	logger   *slog.Logger
}

// NewPostgresSource creates a source reading pageSize rows per query.
func NewPostgresSource(db database.Querier, pageSize int, logger *slog.Logger) *PostgresSource {
	return &PostgresSource{db: db, pageSize: pageSize, logger: logger}
}

// Each walks the table in id order. A row whose fields lack an id gets the
// row id.
func (s *PostgresSource) Each(ctx context.Context, fn func(domain.Document) error) error {
	page := pagination.New(1, s.pageSize)
	for {
		docs, err := s.fetch(ctx, page)
		if err != nil {
			return err
		}
		for _, d := range docs {
			if err := fn(d); err != nil {
				return err
			}
		}
		if len(docs) < page.PerPage {
			return nil
		}
		page = page.Next()
	}
}

func (s *PostgresSource) fetch(ctx context.Context, page pagination.Params) (docs []domain.Document, err error) {
	ctx, end := database.TraceQuery(ctx, "ListCatalogDocuments", selectDocuments)
	defer func() { end(err) }()

	rows, err := s.db.Query(ctx, selectDocuments, page.PerPage, page.Offset())
	if err != nil {
		return nil, fmt.Errorf("query catalog_documents page %d: %w", page.Page, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			raw []byte
		)
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scan catalog document: %w", err)
		}
		fields := make(map[string]any)
		if err := json.Unmarshal(raw, &fields); err != nil {
			return nil, fmt.Errorf("decode catalog document %s: %w", id, err)
		}
		if _, ok := fields[domain.IDField]; !ok {
			fields[domain.IDField] = id
		}
		docs = append(docs, domain.NewDocument(fields))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read catalog_documents: %w", err)
	}

	s.logger.DebugContext(ctx, "read catalog rows",
		slog.Int("page", page.Page),
		slog.Int("rows", len(docs)),
	)
	return docs, nil
}
