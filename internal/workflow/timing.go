package workflow

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/models"
)

// Timing describes where a dossier stands against the deadline of its
// current phase. A dossier that was never initialized has Started false,
// status draft and no other field set. A phase without a maximum duration
// has HasDeadline false and a nil DaysRemaining.
type Timing struct {
	DossierID              string               `json:"dossier_id"`
	Started                bool                 `json:"started"`
	Status                 models.DossierStatus `json:"status"`
	PhaseID                int                  `json:"phase_id,omitempty"`
	PhaseName              string               `json:"phase_name,omitempty"`
	AssignedRole           catalog.Role         `json:"assigned_role,omitempty"`
	EnteredAt              time.Time            `json:"entered_at,omitzero"`
	MaxDurationWorkingDays int                  `json:"max_duration_working_days"`
	HasDeadline            bool                 `json:"has_deadline"`
	Deadline               *time.Time           `json:"deadline,omitempty"`
	DaysElapsed            int                  `json:"days_elapsed"`
	DaysRemaining          *int                 `json:"days_remaining"`
	IsLate                 bool                 `json:"is_late"`
	DaysLate               int                  `json:"days_late"`
}

// TimingInfo computes the timing of dossierID's current phase against the
// calendar, at the engine's current time.
func (e *Engine) TimingInfo(ctx context.Context, dossierID string) (*Timing, error) {
	current, err := e.CurrentPhase(ctx, dossierID)
	if errors.Is(err, common.ErrNoCurrentPhase) {
		return &Timing{DossierID: dossierID, Status: models.StatusDraft}, nil
	}
	if err != nil {
		return nil, err
	}
	return e.timing(current, e.clock())
}

func (e *Engine) timing(current *models.WorkflowEntry, now time.Time) (*Timing, error) {
	phase, err := e.catalog.Get(current.PhaseID)
	if err != nil {
		return nil, fmt.Errorf("timing of dossier %s: %w", current.DossierID, err)
	}

	t := &Timing{
		DossierID:              current.DossierID,
		Started:                true,
		Status:                 phase.StatusHint(),
		PhaseID:                phase.ID,
		PhaseName:              phase.Name,
		AssignedRole:           phase.Role,
		EnteredAt:              current.EnteredAt,
		MaxDurationWorkingDays: phase.MaxDurationWorkingDays,
		DaysElapsed:            e.calendar.WorkingDaysBetween(current.EnteredAt, now),
	}

	deadline, ok := e.calendar.Deadline(current.EnteredAt, phase.MaxDurationWorkingDays)
	if !ok {
		return t, nil
	}
	remaining := e.calendar.Remaining(deadline, now)
	t.HasDeadline = true
	t.Deadline = &deadline
	t.IsLate = remaining < 0
	if t.IsLate {
		t.DaysLate = -remaining
		remaining = 0
	}
	t.DaysRemaining = &remaining
	return t, nil
}

// Overview counts the dossiers in progress, all measured at the same
// instant. Dossiers sitting in a phase the catalog no longer defines are
// counted in Unknown and left out of the other figures.
type Overview struct {
	Total   int                   `json:"total"`
	Late    int                   `json:"late"`
	Unknown int                   `json:"unknown"`
	ByStage map[catalog.Stage]int `json:"by_stage"`
	ByRole  map[catalog.Role]int  `json:"by_role"`
	Timings []Timing              `json:"timings"`
}

// Overview computes the timing of every initialized dossier, ordered by
// dossier id.
func (e *Engine) Overview(ctx context.Context) (*Overview, error) {
	open, err := e.repomanager.Entries(e.db).ListOpen(ctx)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	o := &Overview{
		ByStage: map[catalog.Stage]int{},
		ByRole:  map[catalog.Role]int{},
		Timings: make([]Timing, 0, len(open)),
	}
	for _, entry := range open {
		o.Total++
		t, err := e.timing(entry, now)
		if errors.Is(err, common.ErrInvalidPhase) {
			o.Unknown++
			continue
		}
		if err != nil {
			return nil, err
		}
		phase, _ := e.catalog.Get(t.PhaseID)
		if phase.Stage != "" {
			o.ByStage[phase.Stage]++
		}
		o.ByRole[t.AssignedRole]++
		if t.IsLate {
			o.Late++
		}
		o.Timings = append(o.Timings, *t)
	}
	return o, nil
}

// LateDossiers returns the timing of every dossier past the deadline of its
// current phase, the latest first.
func (e *Engine) LateDossiers(ctx context.Context) ([]Timing, error) {
	o, err := e.Overview(ctx)
	if err != nil {
		return nil, err
	}
	late := make([]Timing, 0, o.Late)
	for _, t := range o.Timings {
		if t.IsLate {
			late = append(late, t)
		}
	}
	sort.SliceStable(late, func(i, j int) bool { return late[i].DaysLate > late[j].DaysLate })
	return late, nil
}

// HistoryRow is a phase-history entry as shown to users.
type HistoryRow struct {
	PhaseID             int        `json:"phase_id"`
	PhaseName           string     `json:"phase_name"`
	EnteredAt           time.Time  `json:"entered_at"`
	ExitedAt            *time.Time `json:"exited_at,omitempty"`
	ActorUserID         string     `json:"actor_user_id"`
	Comment             string     `json:"comment"`
	DurationWorkingDays int        `json:"duration_working_days"`
	Late                bool       `json:"late"`
}

// HistoryView returns the history of dossierID, most recent first, with the
// working days spent in each phase. The open entry is measured up to now.
func (e *Engine) HistoryView(ctx context.Context, dossierID string) ([]HistoryRow, error) {
	entries, err := e.History(ctx, dossierID)
	if err != nil {
		return nil, err
	}

	now := e.clock()
	rows := make([]HistoryRow, 0, len(entries))
	for _, entry := range entries {
		end := now
		if entry.ExitedAt != nil {
			end = *entry.ExitedAt
		}
		row := HistoryRow{
			PhaseID:             entry.PhaseID,
			PhaseName:           phaseValue(entry.PhaseID),
			EnteredAt:           entry.EnteredAt,
			ExitedAt:            entry.ExitedAt,
			ActorUserID:         entry.ActorUserID,
			Comment:             entry.Comment,
			DurationWorkingDays: e.calendar.WorkingDaysBetween(entry.EnteredAt, end),
		}
		// Entries from a former, longer catalog keep their generic name.
		if phase, err := e.catalog.Get(entry.PhaseID); err == nil {
			row.PhaseName = phase.Name
			if deadline, ok := e.calendar.Deadline(entry.EnteredAt, phase.MaxDurationWorkingDays); ok {
				row.Late = e.calendar.Remaining(deadline, end) < 0
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}
