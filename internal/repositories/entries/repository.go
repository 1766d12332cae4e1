package entries

import (
	"context"
	"time"

	"github.com/ormvat/dossierflow/internal/models"
)

// Repository stores the phase history of dossiers. Only the workflow engine
// writes through it.
type Repository interface {
	// LockDossier serializes transitions on dossierID until the enclosing
	// transaction ends.
	LockDossier(ctx context.Context, dossierID string) error
	// FindOpen returns the dossier's open entry or common.ErrorNotFound.
	FindOpen(ctx context.Context, dossierID string) (*models.WorkflowEntry, error)
	// ListByDossier returns every entry of the dossier, most recent first.
	ListByDossier(ctx context.Context, dossierID string) ([]*models.WorkflowEntry, error)
	// ListOpen returns the open entry of every dossier, ordered by dossier id.
	ListOpen(ctx context.Context) ([]*models.WorkflowEntry, error)
	// Close sets exitedAt on the open entry id. It returns common.ErrConflict
	// when the entry is no longer open.
	Close(ctx context.Context, id string, exitedAt time.Time) error
	// Insert adds an entry. It returns common.ErrConflict when the dossier
	// already has an open entry.
	Insert(ctx context.Context, entry *models.WorkflowEntry) error
}
