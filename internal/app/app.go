// Package app wires the configuration, storage, audit log and workflow
// engine into one value the operator commands work with.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/ormvat/dossierflow/internal/audit"
	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/config"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/observability"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
	"github.com/ormvat/dossierflow/internal/services"
	"github.com/ormvat/dossierflow/internal/workflow"
)

// Version is reported as the service version of exported metrics.
var Version = "dev"

type App struct {
	config        *config.Config
	logger        logging.Logger
	db            *sql.DB
	repomanager   repomanager.RepositoryManager
	observability *observability.Provider

	audit    *audit.Log
	exporter *audit.Exporter
	holidays *services.HolidayService
	engine   *workflow.Engine
	guard    *workflow.Guard
}

// Option adjusts the collaborators NewApp builds.
type Option func(*options)

type options struct {
	engine []workflow.Option
}

// WithEngineOptions passes opts to workflow.NewEngine.
func WithEngineOptions(opts ...workflow.Option) Option {
	return func(o *options) { o.engine = append(o.engine, opts...) }
}

// NewApp opens the database, applies pending migrations and builds the
// engine over the configured catalog and the stored holidays. Logs go to w.
func NewApp(ctx context.Context, c *config.Config, w io.Writer, opts ...Option) (*App, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	logger, err := logging.New(c.LogFormat, c.LogLevel, w)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	dialect, err := dbx.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return nil, err
	}

	rm, err := repomanager.New(dialect)
	if err != nil {
		return nil, err
	}

	db, err := openDB(dialect, c.DatabaseDSN)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	a := &App{config: c, logger: logger, db: db, repomanager: rm}
	if err := a.init(ctx, o); err != nil {
		_ = db.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, o options) error {
	c := a.config

	if err := a.Migrate(ctx); err != nil {
		return fmt.Errorf("migration error: %w", err)
	}

	cat := catalog.Default()
	if c.CatalogFile != "" {
		var err error
		if cat, err = catalog.LoadFile(c.CatalogFile); err != nil {
			return err
		}
	}

	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		return fmt.Errorf("time zone %q: %w", c.TimeZone, err)
	}

	obs, err := observability.New(ctx, observability.Config{
		ServiceVersion: Version,
		OTLPEndpoint:   c.OTLPEndpoint,
	}, a.logger)
	if err != nil {
		return err
	}
	a.observability = obs

	a.audit = audit.NewLog(a.db, a.repomanager, a.logger)
	a.exporter = audit.NewExporter(a.audit, c)
	a.holidays = services.NewHolidayService(a.db, a.repomanager, a.audit, a.logger)

	hctx, cancel := a.Context(ctx)
	cal, err := a.holidays.Calendar(hctx, loc)
	cancel()
	if err != nil {
		return err
	}

	engineOpts := append([]workflow.Option{workflow.WithMeter(obs.Meter(workflow.MeterName))}, o.engine...)
	a.engine, err = workflow.NewEngine(a.db, a.repomanager, cat, cal, a.audit, a.logger, engineOpts...)
	if err != nil {
		return err
	}
	a.guard = workflow.NewGuard(a.engine)

	a.logger.Debug(ctx, "app initialized",
		"driver", string(a.repomanager.Dialect()), "phases", cat.Len(), "time_zone", loc.String())
	return nil
}

func openDB(d dbx.Dialect, dsn string) (*sql.DB, error) {
	db, err := sql.Open(d.DriverName(), dsn)
	if err != nil {
		return nil, err
	}
	if d == dbx.SQLite {
		// One writer at a time; the engine never reads outside its transaction
		// while one is open.
		db.SetMaxOpenConns(1)
	}
	return db, nil
}

// Migrate applies pending migrations of the configured database.
func (a *App) Migrate(ctx context.Context) error {
	setGooseLogger(a.logger)
	return a.repomanager.RunMigrations(ctx, a.db)
}

// Context bounds ctx by the configured storage timeout.
func (a *App) Context(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config.DBTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.DBTimeout)
}

// Logger returns the application logger.
func (a *App) Logger() logging.Logger {
	return a.logger
}

// Engine returns the workflow engine, for reads and unchecked transitions.
func (a *App) Engine() *workflow.Engine {
	return a.engine
}

// Guard returns the role-checked entry point for transitions.
func (a *App) Guard() *workflow.Guard {
	return a.guard
}

// Audit returns the audit log.
func (a *App) Audit() *audit.Log {
	return a.audit
}

// Exporter returns the S3 exporter of audit trails.
func (a *App) Exporter() *audit.Exporter {
	return a.exporter
}

// Holidays returns the holiday service.
func (a *App) Holidays() *services.HolidayService {
	return a.holidays
}

// Close flushes metrics and closes the database.
func (a *App) Close(ctx context.Context) error {
	if a.observability != nil {
		_ = a.observability.Shutdown(ctx)
	}
	return a.db.Close()
}
