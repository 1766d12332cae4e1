// Package repomanager vends repositories bound to a dbx.DBTX and applies the
// embedded goose migrations, for each supported database.
package repomanager

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/migrations"
	"github.com/ormvat/dossierflow/internal/repositories/audit"
	"github.com/ormvat/dossierflow/internal/repositories/entries"
	"github.com/ormvat/dossierflow/internal/repositories/holidays"
	"github.com/pressly/goose/v3"
)

type RepositoryManager interface {
	Dialect() dbx.Dialect
	RunMigrations(context.Context, *sql.DB) error
	Entries(db dbx.DBTX) entries.Repository
	Audit(db dbx.DBTX) audit.Repository
	Holidays(db dbx.DBTX) holidays.Repository
}

// New returns the manager of the given dialect.
func New(d dbx.Dialect) (RepositoryManager, error) {
	switch d {
	case dbx.Postgres:
		return NewPostgresRepositoryManager(), nil
	case dbx.SQLite:
		return NewSQLiteRepositoryManager(), nil
	default:
		return nil, fmt.Errorf("no repositories for dialect %q", d)
	}
}

// gooseUpContext is a seam for testing goose.UpContext.
var gooseUpContext = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// runMigrations applies the migrations found under the dialect's directory
// of the embedded FS.
func runMigrations(ctx context.Context, db *sql.DB, d dbx.Dialect) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect(d.GooseDialect()); err != nil {
		return err
	}
	return gooseUpContext(ctx, db, string(d))
}
