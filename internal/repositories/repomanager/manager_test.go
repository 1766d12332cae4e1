package repomanager

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/repositories/audit"
	"github.com/ormvat/dossierflow/internal/repositories/entries"
	"github.com/ormvat/dossierflow/internal/repositories/holidays"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

// stubUp replaces the goose runner for the duration of the test.
func stubUp(t *testing.T, fn func(dir string, opts []goose.OptionsFunc) error) {
	t.Helper()
	prev := gooseUpContext
	gooseUpContext = func(_ context.Context, _ *sql.DB, dir string, opts ...goose.OptionsFunc) error {
		return fn(dir, opts)
	}
	t.Cleanup(func() { gooseUpContext = prev })
}

func mockDB(t *testing.T) *sql.DB {
	t.Helper()
	db, _, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestNew(t *testing.T) {
	m, err := New(dbx.Postgres)
	require.NoError(t, err)
	assert.IsType(t, &PostgresRepositoryManager{}, m)
	assert.Equal(t, dbx.Postgres, m.Dialect())

	m, err = New(dbx.SQLite)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepositoryManager{}, m)
	assert.Equal(t, dbx.SQLite, m.Dialect())

	_, err = New("oracle")
	assert.Error(t, err)
}

func TestManagers_VendRepositories(t *testing.T) {
	db := mockDB(t)

	for _, m := range []RepositoryManager{NewPostgresRepositoryManager(), NewSQLiteRepositoryManager()} {
		t.Run(string(m.Dialect()), func(t *testing.T) {
			var (
				e entries.Repository  = m.Entries(db)
				a audit.Repository    = m.Audit(db)
				h holidays.Repository = m.Holidays(db)
			)
			assert.NotNil(t, e)
			assert.NotNil(t, a)
			assert.NotNil(t, h)
		})
	}
	assert.IsType(t, &entries.SQLRepository{}, NewSQLiteRepositoryManager().Entries(db))
}

func TestRunMigrations_PicksDialectDirectory(t *testing.T) {
	db := mockDB(t)

	var dirs []string
	stubUp(t, func(dir string, opts []goose.OptionsFunc) error {
		assert.Empty(t, opts)
		dirs = append(dirs, dir)
		return nil
	})

	ctx := context.Background()
	require.NoError(t, NewPostgresRepositoryManager().RunMigrations(ctx, db))
	require.NoError(t, NewSQLiteRepositoryManager().RunMigrations(ctx, db))
	assert.Equal(t, []string{"postgres", "sqlite"}, dirs)
}

func TestRunMigrations_PropagatesFailure(t *testing.T) {
	db := mockDB(t)
	stubUp(t, func(string, []goose.OptionsFunc) error { return errors.New("dirty migration 3") })

	err := NewPostgresRepositoryManager().RunMigrations(context.Background(), db)
	assert.EqualError(t, err, "dirty migration 3")
}

func TestRunMigrations_SQLiteEndToEnd(t *testing.T) {
	db, err := sql.Open("sqlite", "file:repomanager?mode=memory&cache=shared")
	require.NoError(t, err)
	defer db.Close()
	db.SetMaxOpenConns(1)

	goose.SetLogger(goose.NopLogger())
	m := NewSQLiteRepositoryManager()
	require.NoError(t, m.RunMigrations(context.Background(), db))
	// Applying twice is a no-op.
	require.NoError(t, m.RunMigrations(context.Background(), db))

	list, err := m.Holidays(db).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, list)
}
