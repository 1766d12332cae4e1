// Package holidays provides SQL repositories for the holiday calendar.
package holidays

import (
	"context"
	"fmt"
	"time"

	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/models"
)

// DateLayout is the storage form of a holiday date.
const DateLayout = "2006-01-02"

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

func (r *SQLRepository) List(ctx context.Context) ([]models.Holiday, error) {
	query := `SELECT holiday_date, label, recurring FROM holidays ORDER BY holiday_date`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("select holidays: %w", err)
	}
	defer rows.Close()

	var result []models.Holiday
	for rows.Next() {
		var (
			h    models.Holiday
			date string
		)
		if err := rows.Scan(&date, &h.Label, &h.Recurring); err != nil {
			return nil, err
		}
		if h.Date, err = time.Parse(DateLayout, date); err != nil {
			return nil, fmt.Errorf("%w: holiday date %q: %v", common.ErrDataIntegrity, date, err)
		}
		result = append(result, h)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLRepository) Upsert(ctx context.Context, h models.Holiday) error {
	query := `INSERT INTO holidays (holiday_date, label, recurring)
		VALUES ($1, $2, $3)
		ON CONFLICT (holiday_date)
		DO UPDATE SET label = EXCLUDED.label, recurring = EXCLUDED.recurring`

	if _, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), h.Date.Format(DateLayout), h.Label, h.Recurring); err != nil {
		return fmt.Errorf("upsert holiday: %w", err)
	}
	return nil
}

func (r *SQLRepository) Delete(ctx context.Context, date time.Time) error {
	query := `DELETE FROM holidays WHERE holiday_date = $1`

	res, err := r.db.ExecContext(ctx, r.dialect.Rebind(query), date.Format(DateLayout))
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("holiday %s: %w", date.Format(DateLayout), common.ErrorNotFound)
	}
	return nil
}
