// Package entries provides SQL repositories for the workflow phase history.
package entries

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/models"
)

// SQLRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type SQLRepository struct {
	db      dbx.DBTX
	dialect dbx.Dialect
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.Postgres}
}

// NewSQLiteRepository constructs a repository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLRepository {
	return &SQLRepository{db: db, dialect: dbx.SQLite}
}

const entryColumns = `id, dossier_id, seq, phase_id, entered_at, exited_at, actor_user_id, comment`

// LockDossier takes a transaction-scoped advisory lock on PostgreSQL. SQLite
// serializes writers on its own, so nothing is done there.
func (r *SQLRepository) LockDossier(ctx context.Context, dossierID string) error {
	if r.dialect != dbx.Postgres {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, dossierID); err != nil {
		return fmt.Errorf("lock dossier: %w", err)
	}
	return nil
}

// FindOpen returns the entry of dossierID whose exited_at is unset.
func (r *SQLRepository) FindOpen(ctx context.Context, dossierID string) (*models.WorkflowEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM workflow_entries
		WHERE dossier_id = $1 AND exited_at IS NULL`

	row := r.db.QueryRowContext(ctx, r.dialect.Rebind(query), dossierID)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select open entry: %w", err)
	}
	return e, nil
}

// ListByDossier returns the dossier's entries, most recent first. Entries
// opened within the same instant keep the order given by seq.
func (r *SQLRepository) ListByDossier(ctx context.Context, dossierID string) ([]*models.WorkflowEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM workflow_entries
		WHERE dossier_id = $1
		ORDER BY seq DESC, entered_at DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), dossierID)
	if err != nil {
		return nil, fmt.Errorf("select entries: %w", err)
	}
	return collectEntries(rows)
}

// ListOpen returns the current entry of every dossier.
func (r *SQLRepository) ListOpen(ctx context.Context) ([]*models.WorkflowEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM workflow_entries
		WHERE exited_at IS NULL
		ORDER BY dossier_id`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select open entries: %w", err)
	}
	return collectEntries(rows)
}

func collectEntries(rows *sql.Rows) ([]*models.WorkflowEntry, error) {
	defer rows.Close()

	var result []*models.WorkflowEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Close marks the entry as left at exitedAt. The update only applies to an
// open entry, so a concurrent close makes this one report ErrConflict.
func (r *SQLRepository) Close(ctx context.Context, id string, exitedAt time.Time) error {
	query := `UPDATE workflow_entries SET exited_at = $1 WHERE id = $2 AND exited_at IS NULL`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), exitedAt, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	switch n {
	case 1:
		return nil
	case 0:
		return fmt.Errorf("close entry %s: %w", id, common.ErrConflict)
	default:
		return fmt.Errorf("unexpected rows affected: %d", n)
	}
}

// Insert adds entry. A second open entry for the same dossier, or a reused
// seq, violates a unique index and is reported as ErrConflict.
func (r *SQLRepository) Insert(ctx context.Context, entry *models.WorkflowEntry) error {
	query := `INSERT INTO workflow_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var exitedAt sql.NullTime
	if entry.ExitedAt != nil {
		exitedAt = sql.NullTime{Time: *entry.ExitedAt, Valid: true}
	}

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		entry.ID, entry.DossierID, entry.Seq, entry.PhaseID, entry.EnteredAt, exitedAt, entry.ActorUserID, entry.Comment)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("insert entry for dossier %s: %w", entry.DossierID, common.ErrConflict)
		}
		return fmt.Errorf("insert entry: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.WorkflowEntry, error) {
	var (
		e        models.WorkflowEntry
		exitedAt sql.NullTime
	)
	if err := s.Scan(&e.ID, &e.DossierID, &e.Seq, &e.PhaseID, &e.EnteredAt, &exitedAt, &e.ActorUserID, &e.Comment); err != nil {
		return nil, err
	}
	e.EnteredAt = e.EnteredAt.UTC()
	if exitedAt.Valid {
		t := exitedAt.Time.UTC()
		e.ExitedAt = &t
	}
	return &e, nil
}
