package cli

import (
	"context"
	"strconv"
	"time"

	"github.com/ormvat/dossierflow/internal/app"
	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/workflow"
)

const displayLayout = "2006-01-02 15:04"

func parseMigrate(args []string) (action, error) {
	if err := newFlagSet("migrate").Parse(args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		if err := a.Migrate(ctx); err != nil {
			return err
		}
		return p.message("migrations applied")
	}, nil
}

type transitionFlags struct {
	dossier string
	actor   string
	role    string
	comment string
	phase   int
}

func parseTransitionFlags(name string, args []string, withPhase bool) (*transitionFlags, error) {
	f := &transitionFlags{}
	fs := newFlagSet(name)
	fs.StringVar(&f.dossier, "dossier", "", "dossier id")
	fs.StringVar(&f.actor, "actor", "", "acting user id")
	fs.StringVar(&f.role, "role", "", "role of the acting user")
	fs.StringVar(&f.comment, "comment", "", "comment stored with the entry")
	if withPhase {
		fs.IntVar(&f.phase, "phase", 0, "target phase id")
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}

	names := []string{"dossier", "actor", "role"}
	if withPhase {
		names = append(names, "phase")
	}
	if err := required(fs, names...); err != nil {
		return nil, err
	}
	return f, nil
}

type guardedTransition func(ctx context.Context, g *workflow.Guard, f *transitionFlags) (*models.WorkflowEntry, error)

// transitionCommand builds the parser of a role-checked transition.
func transitionCommand(name string, withPhase bool, do guardedTransition) func([]string) (action, error) {
	return func(args []string) (action, error) {
		f, err := parseTransitionFlags(name, args, withPhase)
		if err != nil {
			return nil, err
		}
		return func(ctx context.Context, a *app.App, p *printer) error {
			ctx, cancel := a.Context(ctx)
			defer cancel()
			entry, err := do(ctx, a.Guard(), f)
			if err != nil {
				return err
			}
			return printEntry(a, p, entry)
		}, nil
	}
}

var (
	parseInitialize = transitionCommand("init", false,
		func(ctx context.Context, g *workflow.Guard, f *transitionFlags) (*models.WorkflowEntry, error) {
			return g.Initialize(ctx, f.dossier, f.actor, catalog.Role(f.role), f.comment)
		})
	parseAdvance = transitionCommand("advance", false,
		func(ctx context.Context, g *workflow.Guard, f *transitionFlags) (*models.WorkflowEntry, error) {
			return g.Advance(ctx, f.dossier, f.actor, catalog.Role(f.role), f.comment)
		})
	parseReturn = transitionCommand("return", false,
		func(ctx context.Context, g *workflow.Guard, f *transitionFlags) (*models.WorkflowEntry, error) {
			return g.ReturnToPrevious(ctx, f.dossier, f.actor, catalog.Role(f.role), f.comment)
		})
	parseMove = transitionCommand("move", true,
		func(ctx context.Context, g *workflow.Guard, f *transitionFlags) (*models.WorkflowEntry, error) {
			return g.MoveToPhase(ctx, f.dossier, f.phase, f.actor, catalog.Role(f.role), f.comment)
		})
)

func parseDossier(name string, args []string) (string, error) {
	fs := newFlagSet(name)
	dossier := fs.String("dossier", "", "dossier id")
	if err := fs.Parse(args); err != nil {
		return "", err
	}
	if err := required(fs, "dossier"); err != nil {
		return "", err
	}
	return *dossier, nil
}

func parseCurrent(args []string) (action, error) {
	dossier, err := parseDossier("current", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		entry, err := a.Engine().CurrentPhase(ctx, dossier)
		if err != nil {
			return err
		}
		return printEntry(a, p, entry)
	}, nil
}

type entryView struct {
	*models.WorkflowEntry
	PhaseName string               `json:"phase_name"`
	Status    models.DossierStatus `json:"status"`
}

func printEntry(a *app.App, p *printer, e *models.WorkflowEntry) error {
	loc := a.Engine().Calendar().Location()
	v := entryView{WorkflowEntry: e}
	if phase, err := a.Engine().Catalog().Get(e.PhaseID); err == nil {
		v.PhaseName = phase.Name
		v.Status = phase.StatusHint()
	}
	return p.print(v,
		[]string{"DOSSIER", "PHASE", "NAME", "STATUS", "ENTERED", "ACTOR", "COMMENT"},
		func() [][]string {
			return [][]string{{
				e.DossierID, strconv.Itoa(e.PhaseID), v.PhaseName, string(v.Status),
				e.EnteredAt.In(loc).Format(displayLayout), e.ActorUserID, e.Comment,
			}}
		})
}

func parseHistory(args []string) (action, error) {
	dossier, err := parseDossier("history", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		rows, err := a.Engine().HistoryView(ctx, dossier)
		if err != nil {
			return err
		}

		loc := a.Engine().Calendar().Location()
		return p.print(rows,
			[]string{"PHASE", "NAME", "ENTERED", "EXITED", "DAYS", "LATE", "ACTOR", "COMMENT"},
			func() [][]string {
				out := make([][]string, 0, len(rows))
				for _, r := range rows {
					exited := "-"
					if r.ExitedAt != nil {
						exited = r.ExitedAt.In(loc).Format(displayLayout)
					}
					out = append(out, []string{
						strconv.Itoa(r.PhaseID), r.PhaseName,
						r.EnteredAt.In(loc).Format(displayLayout), exited,
						strconv.Itoa(r.DurationWorkingDays), yesNo(r.Late), r.ActorUserID, r.Comment,
					})
				}
				return out
			})
	}, nil
}

func parseTiming(args []string) (action, error) {
	dossier, err := parseDossier("timing", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		t, err := a.Engine().TimingInfo(ctx, dossier)
		if err != nil {
			return err
		}
		return p.print(t, []string{"FIELD", "VALUE"}, func() [][]string {
			return timingRows(t, a.Engine().Calendar().Location())
		})
	}, nil
}

func timingRows(t *workflow.Timing, loc *time.Location) [][]string {
	if !t.Started {
		return [][]string{{"dossier", t.DossierID}, {"started", "no"}, {"status", string(t.Status)}}
	}
	rows := [][]string{
		{"dossier", t.DossierID},
		{"status", string(t.Status)},
		{"phase", strconv.Itoa(t.PhaseID) + " " + t.PhaseName},
		{"role", string(t.AssignedRole)},
		{"entered", t.EnteredAt.In(loc).Format(displayLayout)},
		{"elapsed", strconv.Itoa(t.DaysElapsed)},
	}
	if !t.HasDeadline {
		return append(rows, []string{"deadline", "none"})
	}
	rows = append(rows,
		[]string{"max days", strconv.Itoa(t.MaxDurationWorkingDays)},
		[]string{"deadline", t.Deadline.In(loc).Format(displayLayout)},
		[]string{"remaining", strconv.Itoa(*t.DaysRemaining)},
		[]string{"late", yesNo(t.IsLate)},
	)
	if t.IsLate {
		rows = append(rows, []string{"days late", strconv.Itoa(t.DaysLate)})
	}
	return rows
}

// parseLate lists the dossiers past their phase deadline. With -all it
// prints the overview of every dossier in progress instead.
func parseLate(args []string) (action, error) {
	fs := newFlagSet("late")
	all := fs.Bool("all", false, "show every dossier in progress with the totals")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		loc := a.Engine().Calendar().Location()

		if !*all {
			late, err := a.Engine().LateDossiers(ctx)
			if err != nil {
				return err
			}
			return p.print(late, timingHeader, func() [][]string { return timingTable(late, loc) })
		}

		o, err := a.Engine().Overview(ctx)
		if err != nil {
			return err
		}
		return p.print(o, timingHeader, func() [][]string {
			rows := timingTable(o.Timings, loc)
			return append(rows, []string{
				"TOTAL " + strconv.Itoa(o.Total), "", "", "", "", "", "", "",
				strconv.Itoa(o.Late),
			})
		})
	}, nil
}

var timingHeader = []string{"DOSSIER", "PHASE", "NAME", "STATUS", "ROLE", "ENTERED", "DEADLINE", "ELAPSED", "DAYS LATE"}

func timingTable(ts []workflow.Timing, loc *time.Location) [][]string {
	out := make([][]string, 0, len(ts))
	for _, t := range ts {
		deadline := "-"
		if t.Deadline != nil {
			deadline = t.Deadline.In(loc).Format(displayLayout)
		}
		out = append(out, []string{
			t.DossierID, strconv.Itoa(t.PhaseID), t.PhaseName, string(t.Status), string(t.AssignedRole),
			t.EnteredAt.In(loc).Format(displayLayout), deadline,
			strconv.Itoa(t.DaysElapsed), strconv.Itoa(t.DaysLate),
		})
	}
	return out
}

type phaseView struct {
	catalog.Phase
	RoleName string `json:"role_name"`
}

func parsePhases(args []string) (action, error) {
	if err := newFlagSet("phases").Parse(args); err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		cat := a.Engine().Catalog()
		phases := cat.Phases()
		views := make([]phaseView, 0, len(phases))
		for _, ph := range phases {
			views = append(views, phaseView{Phase: ph, RoleName: cat.RoleName(ph.Role)})
		}
		return p.print(views, []string{"ID", "STAGE", "NAME", "ROLE", "MAX DAYS"}, func() [][]string {
			out := make([][]string, 0, len(views))
			for _, v := range views {
				days := "-"
				if v.HasDeadline() {
					days = strconv.Itoa(v.MaxDurationWorkingDays)
				}
				out = append(out, []string{strconv.Itoa(v.ID), string(v.Stage), v.Name, v.RoleName, days})
			}
			return out
		})
	}, nil
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
