// Package audit is the write-once ledger of actions performed on dossiers
// and on the holiday calendar. Each entity has its own trail, numbered from
// 1 and hash-chained so that a later modification of the storage is
// detectable with Verify.
package audit

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
)

// Recorder appends audit entries inside a caller's transaction. The
// workflow engine depends on this rather than on Log.
type Recorder interface {
	RecordWith(ctx context.Context, tx dbx.DBTX, entry *models.AuditEntry) error
}

// Log is the audit ledger over the configured storage.
type Log struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	logger      logging.Logger
	now         func() time.Time
}

// NewLog constructs a Log.
func NewLog(db *sql.DB, repomanager repomanager.RepositoryManager, logger logging.Logger) *Log {
	return &Log{
		db:          db,
		repomanager: repomanager,
		logger:      logger.With("module", "audit"),
		now:         time.Now,
	}
}

// Record appends entry in its own transaction.
func (l *Log) Record(ctx context.Context, entry *models.AuditEntry) error {
	return dbx.WithTx(ctx, l.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return l.RecordWith(ctx, tx, entry)
	})
}

// RecordWith appends entry using tx, so that the entry is committed or
// discarded together with the caller's own writes. ID and Timestamp are
// filled in when empty; Seq, PrevHash and Hash are always assigned here.
func (l *Log) RecordWith(ctx context.Context, tx dbx.DBTX, entry *models.AuditEntry) error {
	if entry.EntityType == "" || entry.EntityID == "" || entry.Action == "" {
		return fmt.Errorf("%w: audit entry needs entity type, entity id and action", common.ErrInvalidInput)
	}

	repo := l.repomanager.Audit(tx)
	if err := repo.LockEntity(ctx, entry.EntityType, entry.EntityID); err != nil {
		return err
	}

	entry.Seq = 1
	entry.PrevHash = ""
	last, err := repo.Last(ctx, entry.EntityType, entry.EntityID)
	switch {
	case err == nil:
		entry.Seq = last.Seq + 1
		entry.PrevHash = last.Hash
	case !errors.Is(err, common.ErrorNotFound):
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = l.now()
	}
	entry.Timestamp = entry.Timestamp.UTC().Truncate(time.Microsecond)

	if entry.Hash, err = Hash(entry); err != nil {
		return err
	}
	if err := repo.Append(ctx, entry); err != nil {
		return err
	}

	l.logger.Debug(ctx, "audit entry recorded",
		"entity_type", entry.EntityType, "entity_id", entry.EntityID, "seq", entry.Seq, "action", entry.Action)
	return nil
}

// QueryByEntity returns the entity's trail, most recent first.
func (l *Log) QueryByEntity(ctx context.Context, entityType, entityID string) ([]*models.AuditEntry, error) {
	return l.repomanager.Audit(l.db).ListByEntity(ctx, entityType, entityID)
}

// Verify recomputes the entity's hash chain and returns the number of
// entries checked. A gap in the numbering, a broken link or a hash
// mismatch is reported as common.ErrDataIntegrity.
func (l *Log) Verify(ctx context.Context, entityType, entityID string) (int, error) {
	trail, err := l.QueryByEntity(ctx, entityType, entityID)
	if err != nil {
		return 0, err
	}
	return VerifyChain(chronological(trail))
}

// VerifyChain checks entries listed oldest first.
func VerifyChain(entries []*models.AuditEntry) (int, error) {
	prev := ""
	for i, e := range entries {
		if e.Seq != int64(i+1) {
			return i, fmt.Errorf("%w: entry %s has seq %d, want %d", common.ErrDataIntegrity, e.ID, e.Seq, i+1)
		}
		if e.PrevHash != prev {
			return i, fmt.Errorf("%w: entry #%d does not link to #%d", common.ErrDataIntegrity, e.Seq, e.Seq-1)
		}
		h, err := Hash(e)
		if err != nil {
			return i, err
		}
		if h != e.Hash {
			return i, fmt.Errorf("%w: entry #%d content does not match its hash", common.ErrDataIntegrity, e.Seq)
		}
		prev = e.Hash
	}
	return len(entries), nil
}

// Hash computes the chained hash of entry. Hash itself is not covered.
func Hash(entry *models.AuditEntry) (string, error) {
	hashable := struct {
		ID          string `json:"id"`
		EntityType  string `json:"entity_type"`
		EntityID    string `json:"entity_id"`
		Seq         int64  `json:"seq"`
		Timestamp   string `json:"timestamp"`
		ActorUserID string `json:"actor_user_id"`
		Action      string `json:"action"`
		OldValue    string `json:"old_value"`
		NewValue    string `json:"new_value"`
		Details     string `json:"details"`
		PrevHash    string `json:"prev_hash"`
	}{
		ID:          entry.ID,
		EntityType:  entry.EntityType,
		EntityID:    entry.EntityID,
		Seq:         entry.Seq,
		Timestamp:   entry.Timestamp.UTC().Format(time.RFC3339Nano),
		ActorUserID: entry.ActorUserID,
		Action:      entry.Action,
		OldValue:    entry.OldValue,
		NewValue:    entry.NewValue,
		Details:     entry.Details,
		PrevHash:    entry.PrevHash,
	}
	data, err := json.Marshal(hashable)
	if err != nil {
		return "", fmt.Errorf("marshal audit entry for hashing: %w", err)
	}
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:]), nil
}

func chronological(trail []*models.AuditEntry) []*models.AuditEntry {
	out := make([]*models.AuditEntry, len(trail))
	for i, e := range trail {
		out[len(trail)-1-i] = e
	}
	return out
}
