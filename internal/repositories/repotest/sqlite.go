// Package repotest opens migrated in-memory SQLite databases for tests.
package repotest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/ormvat/dossierflow/internal/migrations"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"
)

// SQLiteDSN returns a DSN of a fresh, private in-memory database.
func SQLiteDSN() string {
	return "file:" + uuid.NewString() + "?mode=memory&cache=shared&_time_format=sqlite"
}

// OpenSQLite returns an in-memory database with every migration applied.
// It is closed when the test ends.
func OpenSQLite(t testing.TB) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", SQLiteDSN())
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	goose.SetLogger(goose.NopLogger())
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("sqlite3"); err != nil {
		t.Fatalf("goose dialect: %v", err)
	}
	if err := goose.UpContext(context.Background(), db, "sqlite"); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}
