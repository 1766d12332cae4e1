package workflow

import (
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/ormvat/dossierflow/internal/audit"
	"github.com/ormvat/dossierflow/internal/calendar"
	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
	"github.com/ormvat/dossierflow/internal/repositories/repotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

// monday is 2025-03-03, 09:00 UTC.
var monday = time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

// fakeClock returns the set time and then moves forward by step.
type fakeClock struct {
	mu   sync.Mutex
	now  time.Time
	step time.Duration
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.step)
	return t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func nopLogger() logging.Logger {
	return logging.NewZerologLogger(zerolog.Nop())
}

type fixture struct {
	db     *sql.DB
	engine *Engine
	guard  *Guard
	log    *audit.Log
	clock  *fakeClock
}

func newFixture(t *testing.T, cat *catalog.Catalog, opts ...Option) *fixture {
	t.Helper()
	if cat == nil {
		cat = catalog.Default()
	}
	db := repotest.OpenSQLite(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	log := audit.NewLog(db, rm, nopLogger())
	clock := &fakeClock{now: monday, step: time.Minute}

	opts = append([]Option{WithClock(clock.Now)}, opts...)
	engine, err := NewEngine(db, rm, cat, calendar.New(time.UTC), log, nopLogger(), opts...)
	require.NoError(t, err)

	return &fixture{db: db, engine: engine, guard: NewGuard(engine), log: log, clock: clock}
}

// shortCatalog has a five-day phase, a phase without deadline and a
// two-day terminal phase.
func shortCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	c, err := catalog.New([]catalog.Phase{
		{ID: 1, Name: "Dépôt", Role: catalog.RoleAgentAntenne, MaxDurationWorkingDays: 5},
		{ID: 2, Name: "Instruction", Role: catalog.RoleAgentGUC},
		{ID: 3, Name: "Clôture", Role: catalog.RoleAgentGUC, MaxDurationWorkingDays: 2},
	})
	require.NoError(t, err)
	return c
}
