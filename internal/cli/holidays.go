package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ormvat/dossierflow/internal/app"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/holidays"
)

func parseHolidays(args []string) (action, error) {
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: missing holidays subcommand", errUsage)
	}

	switch args[0] {
	case "list":
		if err := newFlagSet("holidays list").Parse(args[1:]); err != nil {
			return nil, err
		}
		return listHolidays, nil
	case "add":
		return parseAddHoliday(args[1:])
	case "delete":
		return parseDeleteHoliday(args[1:])
	case "import":
		return parseImportHolidays(args[1:])
	default:
		return nil, fmt.Errorf("%w: unknown holidays subcommand %q", errUsage, args[0])
	}
}

func listHolidays(ctx context.Context, a *app.App, p *printer) error {
	ctx, cancel := a.Context(ctx)
	defer cancel()
	list, err := a.Holidays().List(ctx)
	if err != nil {
		return err
	}
	if list == nil {
		list = []models.Holiday{}
	}
	return p.print(list, []string{"DATE", "LABEL", "RECURRING"}, func() [][]string {
		out := make([][]string, 0, len(list))
		for _, h := range list {
			out = append(out, []string{h.Date.Format(holidays.DateLayout), h.Label, yesNo(h.Recurring)})
		}
		return out
	})
}

func parseDate(s string) (time.Time, error) {
	d, err := time.Parse(holidays.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: date %q: expected YYYY-MM-DD", common.ErrInvalidInput, s)
	}
	return d, nil
}

func parseAddHoliday(args []string) (action, error) {
	fs := newFlagSet("holidays add")
	date := fs.String("date", "", "holiday date (YYYY-MM-DD)")
	label := fs.String("label", "", "holiday label")
	recurring := fs.Bool("recurring", false, "same month and day every year")
	actor := fs.String("actor", "admin", "acting user id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(fs, "date", "label"); err != nil {
		return nil, err
	}
	d, err := parseDate(*date)
	if err != nil {
		return nil, err
	}

	h := models.Holiday{Date: d, Label: *label, Recurring: *recurring}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		if err := a.Holidays().Add(ctx, *actor, h); err != nil {
			return err
		}
		return p.message("holiday %s added", *date)
	}, nil
}

func parseDeleteHoliday(args []string) (action, error) {
	fs := newFlagSet("holidays delete")
	date := fs.String("date", "", "holiday date (YYYY-MM-DD)")
	actor := fs.String("actor", "admin", "acting user id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(fs, "date"); err != nil {
		return nil, err
	}
	d, err := parseDate(*date)
	if err != nil {
		return nil, err
	}

	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		if err := a.Holidays().Delete(ctx, *actor, d); err != nil {
			return err
		}
		return p.message("holiday %s deleted", *date)
	}, nil
}

func parseImportHolidays(args []string) (action, error) {
	fs := newFlagSet("holidays import")
	file := fs.String("file", "", "YAML holiday file")
	actor := fs.String("actor", "admin", "acting user id")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if err := required(fs, "file"); err != nil {
		return nil, err
	}

	return func(ctx context.Context, a *app.App, p *printer) error {
		f, err := os.Open(*file)
		if err != nil {
			return err
		}
		defer f.Close()

		ctx, cancel := a.Context(ctx)
		defer cancel()
		n, err := a.Holidays().Import(ctx, *actor, f)
		if err != nil {
			return err
		}
		return p.message("%d holidays imported", n)
	}, nil
}
