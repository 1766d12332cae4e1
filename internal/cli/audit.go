package cli

import (
	"context"
	"strconv"

	"github.com/ormvat/dossierflow/internal/app"
	"github.com/ormvat/dossierflow/internal/common"
)

func parseEntity(name string, args []string) (entityType, entityID string, err error) {
	fs := newFlagSet(name)
	fs.StringVar(&entityType, "entity", common.EntityDossier, "entity type (Dossier|Holiday)")
	fs.StringVar(&entityID, "id", "", "entity id")
	if err := fs.Parse(args); err != nil {
		return "", "", err
	}
	if err := required(fs, "entity", "id"); err != nil {
		return "", "", err
	}
	return entityType, entityID, nil
}

func parseAudit(args []string) (action, error) {
	entityType, entityID, err := parseEntity("audit", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		trail, err := a.Audit().QueryByEntity(ctx, entityType, entityID)
		if err != nil {
			return err
		}

		loc := a.Engine().Calendar().Location()
		return p.print(trail, []string{"SEQ", "TIME", "ACTOR", "ACTION", "OLD", "NEW", "DETAILS"}, func() [][]string {
			out := make([][]string, 0, len(trail))
			for _, e := range trail {
				out = append(out, []string{
					strconv.FormatInt(e.Seq, 10), e.Timestamp.In(loc).Format(displayLayout),
					e.ActorUserID, e.Action, e.OldValue, e.NewValue, e.Details,
				})
			}
			return out
		})
	}, nil
}

func parseAuditVerify(args []string) (action, error) {
	entityType, entityID, err := parseEntity("audit-verify", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		n, err := a.Audit().Verify(ctx, entityType, entityID)
		if err != nil {
			return err
		}
		return p.message("%s %s: %d entries verified", entityType, entityID, n)
	}, nil
}

func parseAuditExport(args []string) (action, error) {
	entityType, entityID, err := parseEntity("audit-export", args)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, a *app.App, p *printer) error {
		ctx, cancel := a.Context(ctx)
		defer cancel()
		res, err := a.Exporter().Export(ctx, entityType, entityID)
		if err != nil {
			return err
		}
		return p.print(res, []string{"BUCKET", "KEY", "ENTRIES", "CHECKSUM"}, func() [][]string {
			return [][]string{{res.Bucket, res.Key, strconv.Itoa(res.Entries), res.Checksum}}
		})
	}, nil
}
