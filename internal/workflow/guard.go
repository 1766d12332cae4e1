package workflow

import (
	"context"
	"fmt"

	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/models"
)

// Guard applies the program's role rule before each transition: only the
// role assigned to the current phase, or an administrator, may move a
// dossier. Initialization belongs to the role of the first phase. The check
// runs under the same lock and transaction as the transition it guards.
type Guard struct {
	engine *Engine
}

// NewGuard wraps engine.
func NewGuard(engine *Engine) *Guard {
	return &Guard{engine: engine}
}

// Engine returns the wrapped engine for read operations.
func (g *Guard) Engine() *Engine { return g.engine }

// CanAct reports whether role may act on dossierID in its current phase.
func (g *Guard) CanAct(ctx context.Context, dossierID string, role catalog.Role) (bool, error) {
	current, err := g.engine.CurrentPhase(ctx, dossierID)
	if err != nil {
		return false, err
	}
	return g.engine.catalog.CanAct(current.PhaseID, role), nil
}

func (g *Guard) allow(role catalog.Role) precondition {
	return func(current *models.WorkflowEntry) error {
		phaseID := g.engine.catalog.First().ID
		if current != nil {
			phaseID = current.PhaseID
		}
		if !g.engine.catalog.CanAct(phaseID, role) {
			return fmt.Errorf("%w: role %s cannot act in phase %d", common.ErrForbidden, role, phaseID)
		}
		return nil
	}
}

// Initialize is Engine.Initialize for a user acting as role.
func (g *Guard) Initialize(ctx context.Context, dossierID, actorUserID string, role catalog.Role, comment string) (*models.WorkflowEntry, error) {
	return g.engine.initialize(ctx, dossierID, actorUserID, comment, g.allow(role))
}

// Advance is Engine.Advance for a user acting as role.
func (g *Guard) Advance(ctx context.Context, dossierID, actorUserID string, role catalog.Role, comment string) (*models.WorkflowEntry, error) {
	return g.engine.advance(ctx, dossierID, actorUserID, comment, g.allow(role))
}

// ReturnToPrevious is Engine.ReturnToPrevious for a user acting as role.
func (g *Guard) ReturnToPrevious(ctx context.Context, dossierID, actorUserID string, role catalog.Role, comment string) (*models.WorkflowEntry, error) {
	return g.engine.returnToPrevious(ctx, dossierID, actorUserID, comment, g.allow(role))
}

// MoveToPhase is Engine.MoveToPhase for a user acting as role.
func (g *Guard) MoveToPhase(ctx context.Context, dossierID string, targetPhaseID int, actorUserID string, role catalog.Role, comment string) (*models.WorkflowEntry, error) {
	return g.engine.moveToPhase(ctx, dossierID, targetPhaseID, actorUserID, comment, g.allow(role))
}
