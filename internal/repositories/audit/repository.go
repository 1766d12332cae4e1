package audit

import (
	"context"

	"github.com/ormvat/dossierflow/internal/models"
)

// Repository is the append-only store of audit entries. It has no update or
// delete operation.
type Repository interface {
	// LockEntity serializes appends to one entity's trail until the
	// enclosing transaction ends.
	LockEntity(ctx context.Context, entityType, entityID string) error
	// Last returns the entry with the highest sequence number of the entity,
	// or common.ErrorNotFound when the trail is empty.
	Last(ctx context.Context, entityType, entityID string) (*models.AuditEntry, error)
	// Append stores entry. A sequence number already taken is reported as
	// common.ErrConflict.
	Append(ctx context.Context, entry *models.AuditEntry) error
	// ListByEntity returns the entity's trail, most recent first.
	ListByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error)
}
