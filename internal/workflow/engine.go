// Package workflow moves dossiers through the phases of the catalog. It owns
// the phase history: every transition closes the current entry and opens
// the next one in a single transaction, together with its audit entry.
//
// Authorization is left to the caller; Guard offers the role check of the
// subsidy program on top of the Engine.
package workflow

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/ormvat/dossierflow/internal/audit"
	"github.com/ormvat/dossierflow/internal/calendar"
	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
	"go.opentelemetry.io/otel/metric"
)

// Transition kinds, as reported in logs and metrics.
const (
	KindInitialize = "initialize"
	KindAdvance    = "advance"
	KindReturn     = "return"
	KindMove       = "move"
)

var auditActions = map[string]string{
	KindInitialize: common.ActionWorkflowInit,
	KindAdvance:    common.ActionWorkflowAdvance,
	KindReturn:     common.ActionWorkflowReturn,
	KindMove:       common.ActionWorkflowMove,
}

// Engine is safe for concurrent use. Transitions on one dossier are
// serialized; dossiers are independent of each other.
type Engine struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	catalog     *catalog.Catalog
	calendar    *calendar.Calendar
	audit       audit.Recorder
	logger      logging.Logger

	now     func() time.Time
	meter   metric.Meter
	metrics *metrics
	locks   *keyedMutex
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithMeter sets the meter the transition counters are created on. The
// global meter provider is used by default.
func WithMeter(m metric.Meter) Option {
	return func(e *Engine) { e.meter = m }
}

// NewEngine constructs an Engine.
func NewEngine(
	db *sql.DB,
	repomanager repomanager.RepositoryManager,
	cat *catalog.Catalog,
	cal *calendar.Calendar,
	recorder audit.Recorder,
	logger logging.Logger,
	opts ...Option,
) (*Engine, error) {
	e := &Engine{
		db:          db,
		repomanager: repomanager,
		catalog:     cat,
		calendar:    cal,
		audit:       recorder,
		logger:      logger.With("module", "workflow"),
		now:         time.Now,
		locks:       newKeyedMutex(),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.meter == nil {
		e.meter = defaultMeter()
	}
	m, err := newMetrics(e.meter)
	if err != nil {
		return nil, fmt.Errorf("workflow metrics: %w", err)
	}
	e.metrics = m
	return e, nil
}

// Catalog returns the phase catalog the engine works with.
func (e *Engine) Catalog() *catalog.Catalog { return e.catalog }

// Calendar returns the working-day calendar the engine works with.
func (e *Engine) Calendar() *calendar.Calendar { return e.calendar }

// clock is rounded to what every supported store keeps, so that a closing
// exitedAt reads back equal to the next enteredAt.
func (e *Engine) clock() time.Time {
	return e.now().UTC().Truncate(time.Microsecond)
}

// precondition is evaluated against the open entry under the dossier lock.
// It is nil for an uninitialized dossier.
type precondition func(current *models.WorkflowEntry) error

// Initialize opens the first phase of dossierID. It fails with
// ErrAlreadyInitialized when the dossier has a current phase.
func (e *Engine) Initialize(ctx context.Context, dossierID, actorUserID, comment string) (*models.WorkflowEntry, error) {
	return e.initialize(ctx, dossierID, actorUserID, comment, nil)
}

// Advance moves dossierID to the successor of its current phase.
func (e *Engine) Advance(ctx context.Context, dossierID, actorUserID, comment string) (*models.WorkflowEntry, error) {
	return e.advance(ctx, dossierID, actorUserID, comment, nil)
}

// ReturnToPrevious moves dossierID back to the predecessor of its current
// phase.
func (e *Engine) ReturnToPrevious(ctx context.Context, dossierID, actorUserID, comment string) (*models.WorkflowEntry, error) {
	return e.returnToPrevious(ctx, dossierID, actorUserID, comment, nil)
}

// MoveToPhase jumps dossierID to targetPhaseID, in either direction.
func (e *Engine) MoveToPhase(ctx context.Context, dossierID string, targetPhaseID int, actorUserID, comment string) (*models.WorkflowEntry, error) {
	return e.moveToPhase(ctx, dossierID, targetPhaseID, actorUserID, comment, nil)
}

func (e *Engine) initialize(ctx context.Context, dossierID, actorUserID, comment string, pre precondition) (*models.WorkflowEntry, error) {
	return e.transition(ctx, KindInitialize, dossierID, actorUserID, comment, pre,
		func(*models.WorkflowEntry) (catalog.Phase, error) {
			return e.catalog.First(), nil
		})
}

func (e *Engine) advance(ctx context.Context, dossierID, actorUserID, comment string, pre precondition) (*models.WorkflowEntry, error) {
	return e.transition(ctx, KindAdvance, dossierID, actorUserID, comment, pre,
		func(cur *models.WorkflowEntry) (catalog.Phase, error) {
			next, err := e.catalog.Successor(cur.PhaseID)
			if err != nil {
				return catalog.Phase{}, err
			}
			if next == nil {
				return catalog.Phase{}, common.ErrTerminalPhase
			}
			return *next, nil
		})
}

func (e *Engine) returnToPrevious(ctx context.Context, dossierID, actorUserID, comment string, pre precondition) (*models.WorkflowEntry, error) {
	return e.transition(ctx, KindReturn, dossierID, actorUserID, comment, pre,
		func(cur *models.WorkflowEntry) (catalog.Phase, error) {
			prev, err := e.catalog.Predecessor(cur.PhaseID)
			if err != nil {
				return catalog.Phase{}, err
			}
			if prev == nil {
				return catalog.Phase{}, common.ErrNoPredecessor
			}
			return *prev, nil
		})
}

func (e *Engine) moveToPhase(ctx context.Context, dossierID string, targetPhaseID int, actorUserID, comment string, pre precondition) (*models.WorkflowEntry, error) {
	return e.transition(ctx, KindMove, dossierID, actorUserID, comment, pre,
		func(*models.WorkflowEntry) (catalog.Phase, error) {
			return e.catalog.Get(targetPhaseID)
		})
}

// transition is the single write path of the phase history. Everything up
// to the choice of the target phase only reads, so a rejected transition
// leaves no trace.
func (e *Engine) transition(
	ctx context.Context,
	kind, dossierID, actorUserID, comment string,
	pre precondition,
	target func(current *models.WorkflowEntry) (catalog.Phase, error),
) (entry *models.WorkflowEntry, err error) {
	from := 0
	defer func() {
		e.metrics.record(ctx, kind, err)
		if err != nil {
			e.logger.Warn(ctx, "transition rejected",
				"kind", kind, "dossier_id", dossierID, "actor_user_id", actorUserID, "error", err)
			return
		}
		e.logger.Info(ctx, "phase changed",
			"kind", kind, "dossier_id", dossierID, "from", from, "to", entry.PhaseID, "actor_user_id", actorUserID)
	}()

	if dossierID == "" {
		return nil, fmt.Errorf("%w: empty dossier id", common.ErrInvalidInput)
	}

	unlock := e.locks.Lock(dossierID)
	defer unlock()

	err = dbx.WithTx(ctx, e.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := e.repomanager.Entries(tx)
		if err := repo.LockDossier(ctx, dossierID); err != nil {
			return err
		}

		current, err := repo.FindOpen(ctx, dossierID)
		switch {
		case errors.Is(err, common.ErrorNotFound):
			current = nil
			if kind != KindInitialize {
				return common.ErrNoCurrentPhase
			}
		case err != nil:
			return err
		case kind == KindInitialize:
			return common.ErrAlreadyInitialized
		}

		if pre != nil {
			if err := pre(current); err != nil {
				return err
			}
		}

		phase, err := target(current)
		if err != nil {
			return err
		}

		now := e.clock()
		oldValue := ""
		seq := int64(1)
		if current != nil {
			if now.Before(current.EnteredAt) {
				return fmt.Errorf("%w: clock %s is before entry %s was entered at %s",
					common.ErrDataIntegrity, now.Format(time.RFC3339Nano), current.ID, current.EnteredAt.Format(time.RFC3339Nano))
			}
			if err := repo.Close(ctx, current.ID, now); err != nil {
				return err
			}
			from = current.PhaseID
			oldValue = phaseValue(current.PhaseID)
			seq = current.Seq + 1
		}

		entry = &models.WorkflowEntry{
			ID:          uuid.NewString(),
			DossierID:   dossierID,
			Seq:         seq,
			PhaseID:     phase.ID,
			EnteredAt:   now,
			ActorUserID: actorUserID,
			Comment:     comment,
		}
		if err := repo.Insert(ctx, entry); err != nil {
			return err
		}

		return e.audit.RecordWith(ctx, tx, &models.AuditEntry{
			EntityType:  common.EntityDossier,
			EntityID:    dossierID,
			Timestamp:   now,
			ActorUserID: actorUserID,
			Action:      auditActions[kind],
			OldValue:    oldValue,
			NewValue:    phaseValue(phase.ID),
			Details:     comment,
		})
	})
	if err != nil {
		if dbx.IsSerializationFailure(err) {
			err = fmt.Errorf("%w: %v", common.ErrConflict, err)
		}
		return nil, fmt.Errorf("%s dossier %s: %w", kind, dossierID, err)
	}
	return entry, nil
}

func phaseValue(id int) string {
	return fmt.Sprintf("Phase %d", id)
}

// CurrentPhase returns the open entry of dossierID, or ErrNoCurrentPhase.
func (e *Engine) CurrentPhase(ctx context.Context, dossierID string) (*models.WorkflowEntry, error) {
	entry, err := e.repomanager.Entries(e.db).FindOpen(ctx, dossierID)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, common.ErrNoCurrentPhase
	}
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// History returns every entry of dossierID, most recent first. Stored
// entries that contradict each other are reported as ErrDataIntegrity.
func (e *Engine) History(ctx context.Context, dossierID string) ([]*models.WorkflowEntry, error) {
	entries, err := e.repomanager.Entries(e.db).ListByDossier(ctx, dossierID)
	if err != nil {
		return nil, err
	}
	if err := checkHistory(entries); err != nil {
		return nil, fmt.Errorf("history of dossier %s: %w", dossierID, err)
	}
	return entries, nil
}

func checkHistory(entries []*models.WorkflowEntry) error {
	open := 0
	for _, entry := range entries {
		if entry.ExitedAt == nil {
			open++
			continue
		}
		if entry.ExitedAt.Before(entry.EnteredAt) {
			return fmt.Errorf("%w: entry %s exited at %s before it was entered at %s", common.ErrDataIntegrity,
				entry.ID, entry.ExitedAt.Format(time.RFC3339Nano), entry.EnteredAt.Format(time.RFC3339Nano))
		}
	}
	if open > 1 {
		return fmt.Errorf("%w: %d open entries", common.ErrDataIntegrity, open)
	}
	return nil
}
