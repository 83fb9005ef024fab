package database

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const documentsTable = "CREATE TABLE catalog_documents (id TEXT PRIMARY KEY)"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func migrations() fstest.MapFS {
	return fstest.MapFS{
		"002_index.up.sql":  {Data: []byte("CREATE INDEX ON catalog_documents (updated_at)")},
		"001_init.up.sql":   {Data: []byte(documentsTable)},
		"001_init.down.sql": {Data: []byte("DROP TABLE catalog_documents")},
		"README.md":         {Data: []byte("docs")},
	}
}

func TestRunMigrations_AppliesPendingInOrder(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(createMigrationsTable).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(migrationApplied).WithArgs("001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectQuery(migrationApplied).WithArgs("002_index.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec("CREATE INDEX ON catalog_documents (updated_at)").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(recordMigration).WithArgs("002_index.up.sql").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, RunMigrations(context.Background(), mock, migrations(), discardLogger()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_SQLErrorRollsBack(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	fsys := fstest.MapFS{"001_init.up.sql": {Data: []byte(documentsTable)}}

	mock.ExpectExec(createMigrationsTable).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectQuery(migrationApplied).WithArgs("001_init.up.sql").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectBegin()
	mock.ExpectExec(documentsTable).WillReturnError(errors.New("syntax error at or near"))
	mock.ExpectRollback()

	err = RunMigrations(context.Background(), mock, fsys, discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "execute migration 001_init.up.sql")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunMigrations_TrackingTableFailure(t *testing.T) {
	mock, err := NewMockPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectExec(createMigrationsTable).WillReturnError(errors.New("permission denied for schema public"))

	err = RunMigrations(context.Background(), mock, migrations(), discardLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create schema_migrations table")
	assert.NoError(t, mock.ExpectationsWereMet())
}
