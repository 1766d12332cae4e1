package workflow

import (
	"context"
	"testing"
	"time"

	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openEntries(entries []*models.WorkflowEntry) int {
	n := 0
	for _, e := range entries {
		if e.Open() {
			n++
		}
	}
	return n
}

func TestInitializeThenAdvance(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	first, err := f.engine.Initialize(ctx, "D", "U1", "created")
	require.NoError(t, err)
	assert.Equal(t, 1, first.PhaseID)
	assert.True(t, first.EnteredAt.Equal(monday))

	next, err := f.engine.Advance(ctx, "D", "U2", "sent")
	require.NoError(t, err)
	assert.Equal(t, 2, next.PhaseID)

	current, err := f.engine.CurrentPhase(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, 2, current.PhaseID)
	assert.Equal(t, "U2", current.ActorUserID)
	assert.Equal(t, "sent", current.Comment)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, 2, history[0].PhaseID)
	assert.Equal(t, 1, history[1].PhaseID)
	assert.Equal(t, "created", history[1].Comment)
	require.NotNil(t, history[1].ExitedAt)
	assert.True(t, history[1].ExitedAt.Equal(history[0].EnteredAt))
	assert.Equal(t, 1, openEntries(history))

	trail, err := f.log.QueryByEntity(ctx, common.EntityDossier, "D")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, common.ActionWorkflowAdvance, trail[0].Action)
	assert.Equal(t, "Phase 1", trail[0].OldValue)
	assert.Equal(t, "Phase 2", trail[0].NewValue)
	assert.Equal(t, "U2", trail[0].ActorUserID)
	assert.Equal(t, "sent", trail[0].Details)
	assert.Equal(t, common.ActionWorkflowInit, trail[1].Action)
	assert.Empty(t, trail[1].OldValue)

	n, err := f.log.Verify(ctx, common.EntityDossier, "D")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestInitialize_Twice(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "created")
	require.NoError(t, err)

	_, err = f.engine.Initialize(ctx, "D", "U1", "again")
	assert.ErrorIs(t, err, common.ErrAlreadyInitialized)
	assert.ErrorIs(t, err, common.ErrInvalidState)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestTransitionsOnUninitializedDossier(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Advance(ctx, "D", "U1", "")
	assert.ErrorIs(t, err, common.ErrNoCurrentPhase)
	_, err = f.engine.ReturnToPrevious(ctx, "D", "U1", "")
	assert.ErrorIs(t, err, common.ErrNoCurrentPhase)
	_, err = f.engine.MoveToPhase(ctx, "D", 3, "U1", "")
	assert.ErrorIs(t, err, common.ErrNoCurrentPhase)
	_, err = f.engine.CurrentPhase(ctx, "D")
	assert.ErrorIs(t, err, common.ErrNoCurrentPhase)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestEmptyDossierID(t *testing.T) {
	f := newFixture(t, nil)
	_, err := f.engine.Initialize(context.Background(), "", "U1", "")
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestAdvanceThenReturn_RestoresPhaseAndAppends(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "created")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "D", "U1", "")
	require.NoError(t, err)

	before, err := f.engine.History(ctx, "D")
	require.NoError(t, err)

	_, err = f.engine.Advance(ctx, "D", "U2", "to commission")
	require.NoError(t, err)
	back, err := f.engine.ReturnToPrevious(ctx, "D", "U3", "incomplete file")
	require.NoError(t, err)
	assert.Equal(t, 2, back.PhaseID)

	after, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	assert.Len(t, after, len(before)+2)
	assert.Equal(t, 1, openEntries(after))

	trail, err := f.log.QueryByEntity(ctx, common.EntityDossier, "D")
	require.NoError(t, err)
	assert.Equal(t, common.ActionWorkflowReturn, trail[0].Action)
	assert.Equal(t, "Phase 3", trail[0].OldValue)
	assert.Equal(t, "Phase 2", trail[0].NewValue)
}

func TestReturnAtFirstPhase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "")
	require.NoError(t, err)

	_, err = f.engine.ReturnToPrevious(ctx, "D", "U1", "")
	assert.ErrorIs(t, err, common.ErrNoPredecessor)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	assert.Len(t, history, 1)
}

func TestAdvanceAtTerminalPhase_LeavesNoTrace(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "")
	require.NoError(t, err)
	last, err := f.engine.MoveToPhase(ctx, "D", 8, "ADMIN1", "override")
	require.NoError(t, err)
	assert.Equal(t, 8, last.PhaseID)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	trail, err := f.log.QueryByEntity(ctx, common.EntityDossier, "D")
	require.NoError(t, err)

	_, err = f.engine.Advance(ctx, "D", "U1", "")
	assert.ErrorIs(t, err, common.ErrTerminalPhase)

	historyAfter, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	trailAfter, err := f.log.QueryByEntity(ctx, common.EntityDossier, "D")
	require.NoError(t, err)
	assert.Len(t, historyAfter, len(history))
	assert.Len(t, trailAfter, len(trail))

	current, err := f.engine.CurrentPhase(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, last.ID, current.ID)
}

func TestMoveToPhase(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "")
	require.NoError(t, err)

	for _, bad := range []int{0, -3, 9} {
		_, err = f.engine.MoveToPhase(ctx, "D", bad, "U1", "")
		assert.ErrorIs(t, err, common.ErrInvalidPhase)
		assert.ErrorIs(t, err, common.ErrInvalidInput)
	}

	e, err := f.engine.MoveToPhase(ctx, "D", 6, "U1", "skip")
	require.NoError(t, err)
	assert.Equal(t, 6, e.PhaseID)
	e, err = f.engine.MoveToPhase(ctx, "D", 2, "U1", "several steps back")
	require.NoError(t, err)
	assert.Equal(t, 2, e.PhaseID)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	assert.Len(t, history, 3)

	trail, err := f.log.QueryByEntity(ctx, common.EntityDossier, "D")
	require.NoError(t, err)
	assert.Equal(t, common.ActionWorkflowMove, trail[0].Action)
	assert.Equal(t, "Phase 6", trail[0].OldValue)
}

func TestClockBeforeCurrentEntry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "D", "U1", "")
	require.NoError(t, err)

	f.clock.Set(monday.Add(-time.Hour))
	_, err = f.engine.Advance(ctx, "D", "U1", "")
	assert.ErrorIs(t, err, common.ErrDataIntegrity)

	current, err := f.engine.CurrentPhase(ctx, "D")
	require.NoError(t, err)
	assert.Equal(t, 1, current.PhaseID)
}

func TestHistory_ExitBeforeEntryIsSurfaced(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	repo := f.engine.repomanager.Entries(f.db)
	exited := monday.Add(-time.Hour)
	require.NoError(t, repo.Insert(ctx, &models.WorkflowEntry{
		ID: "skewed", DossierID: "D", PhaseID: 1, EnteredAt: monday, ExitedAt: &exited, ActorUserID: "U1",
	}))

	_, err := f.engine.History(ctx, "D")
	assert.ErrorIs(t, err, common.ErrDataIntegrity)
	_, err = f.engine.HistoryView(ctx, "D")
	assert.ErrorIs(t, err, common.ErrDataIntegrity)
}

func TestDossiersAreIndependent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)

	_, err := f.engine.Initialize(ctx, "A", "U1", "")
	require.NoError(t, err)
	_, err = f.engine.Initialize(ctx, "B", "U1", "")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "A", "U1", "")
	require.NoError(t, err)

	a, err := f.engine.CurrentPhase(ctx, "A")
	require.NoError(t, err)
	b, err := f.engine.CurrentPhase(ctx, "B")
	require.NoError(t, err)
	assert.Equal(t, 2, a.PhaseID)
	assert.Equal(t, 1, b.PhaseID)
}

func TestHistory_TransitionsWithinOneInstant(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, nil)
	f.clock.step = 0

	_, err := f.engine.Initialize(ctx, "D", "U1", "")
	require.NoError(t, err)
	_, err = f.engine.Advance(ctx, "D", "U1", "")
	require.NoError(t, err)
	_, err = f.engine.ReturnToPrevious(ctx, "D", "U2", "")
	require.NoError(t, err)

	history, err := f.engine.History(ctx, "D")
	require.NoError(t, err)
	require.Len(t, history, 3)

	var phases, seqs []int
	for _, e := range history {
		phases = append(phases, e.PhaseID)
		seqs = append(seqs, int(e.Seq))
		assert.True(t, e.EnteredAt.Equal(monday))
	}
	assert.Equal(t, []int{1, 2, 1}, phases)
	assert.Equal(t, []int{3, 2, 1}, seqs)
	assert.True(t, history[0].Open())
}
