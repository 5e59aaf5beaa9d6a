// Package dbtest builds database handles for tests: a go-sqlmock backed DB
// for statement-level tests, and a real PostgreSQL DB for integration tests.
package dbtest

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/logging"
)

// NewMock returns a DB backed by go-sqlmock. Unmet expectations fail the
// test at cleanup.
func NewMock(t *testing.T) (database.DB, sqlmock.Sqlmock) {
	t.Helper()

	conn, mock, err := sqlmock.New()
	require.NoError(t, err)

	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		_ = conn.Close()
	})

	return database.NewDatabaseInstance(sqlx.NewDb(conn, "postgres"), logging.Discard()), mock
}

// NewPostgres connects to DATABASE_URL and applies the migrations. The test
// is skipped in -short mode or when DATABASE_URL is unset.
func NewPostgres(t *testing.T) database.DB {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping database integration test in short mode")
	}
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	logger := logging.Discard()
	db, err := database.Connect(ctx, dsn, database.PoolConfig{MaxOpenConns: 2}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	require.NoError(t, db.GetContext(ctx, &name, "SELECT current_database()"))

	migrations := database.NewMigrationService(logger, &database.MigrationConfig{
		MigrationFolderPath: MigrationsPath(),
		AutoRollback:        true,
	})
	require.NoError(t, migrations.MigratePostgres(db, name))

	return db
}

// MigrationsPath returns the absolute path of db/pg in this module.
func MigrationsPath() string {
	_, file, _, _ := runtime.Caller(0)
	return filepath.Join(filepath.Dir(file), "..", "..", "..", "db", "pg")
}
