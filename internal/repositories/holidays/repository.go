package holidays

import (
	"context"
	"time"

	"github.com/ormvat/dossierflow/internal/models"
)

// Repository stores the holidays excluded from working-day counting.
type Repository interface {
	// List returns every holiday ordered by date.
	List(ctx context.Context) ([]models.Holiday, error)
	// Upsert adds a holiday or replaces the one on the same date.
	Upsert(ctx context.Context, h models.Holiday) error
	// Delete removes the holiday on date, or returns common.ErrorNotFound.
	Delete(ctx context.Context, date time.Time) error
}
