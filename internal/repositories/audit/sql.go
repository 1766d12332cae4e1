// Package audit provides SQL repositories for the audit trail.
package audit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

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

const auditColumns = `id, entity_type, entity_id, seq, created_at, actor_user_id, action,
	old_value, new_value, details, prev_hash, hash`

// LockEntity takes a transaction-scoped advisory lock on PostgreSQL and does
// nothing on SQLite.
func (r *SQLRepository) LockEntity(ctx context.Context, entityType, entityID string) error {
	if r.dialect != dbx.Postgres {
		return nil
	}
	if _, err := r.db.ExecContext(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, "audit:"+entityType+":"+entityID); err != nil {
		return fmt.Errorf("lock audit trail: %w", err)
	}
	return nil
}

func (r *SQLRepository) Last(ctx context.Context, entityType, entityID string) (*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq DESC
		LIMIT 1`

	e, err := scanEntry(r.db.QueryRowContext(ctx, r.dialect.Rebind(query), entityType, entityID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select last audit entry: %w", err)
	}
	return e, nil
}

func (r *SQLRepository) Append(ctx context.Context, e *models.AuditEntry) error {
	query := `INSERT INTO audit_entries (` + auditColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.db.ExecContext(ctx, r.dialect.Rebind(query),
		e.ID, e.EntityType, e.EntityID, e.Seq, e.Timestamp, e.ActorUserID, e.Action,
		e.OldValue, e.NewValue, e.Details, e.PrevHash, e.Hash)
	if err != nil {
		if dbx.IsUniqueViolation(err) {
			return fmt.Errorf("append audit entry %s/%s #%d: %w", e.EntityType, e.EntityID, e.Seq, common.ErrConflict)
		}
		return fmt.Errorf("append audit entry: %w", err)
	}
	return nil
}

func (r *SQLRepository) ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	query := `SELECT ` + auditColumns + ` FROM audit_entries
		WHERE entity_type = $1 AND entity_id = $2
		ORDER BY seq DESC`

	rows, err := r.db.QueryContext(ctx, r.dialect.Rebind(query), entityType, entityID)
	if err != nil {
		return nil, fmt.Errorf("select audit entries: %w", err)
	}
	defer rows.Close()

	var result []*models.AuditEntry
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

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (*models.AuditEntry, error) {
	var e models.AuditEntry
	if err := s.Scan(&e.ID, &e.EntityType, &e.EntityID, &e.Seq, &e.Timestamp, &e.ActorUserID, &e.Action,
		&e.OldValue, &e.NewValue, &e.Details, &e.PrevHash, &e.Hash); err != nil {
		return nil, err
	}
	e.Timestamp = e.Timestamp.UTC()
	return &e, nil
}
