package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ormvat/dossierflow/internal/catalog"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/config"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/repotest"
	"github.com/ormvat/dossierflow/internal/workflow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sqliteConfig() *config.Config {
	c := &config.Config{}
	c.LoadDefaults()
	c.DatabaseDriver = "sqlite"
	c.DatabaseDSN = repotest.SQLiteDSN()
	c.TimeZone = "UTC"
	c.LogLevel = "error"
	return c
}

func TestNewApp_SQLiteEndToEnd(t *testing.T) {
	ctx := context.Background()
	var logs bytes.Buffer

	// Monday 2025-03-03 09:00 UTC, one minute per call.
	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		now = now.Add(time.Minute)
		return now
	}

	a, err := NewApp(ctx, sqliteConfig(), &logs, WithEngineOptions(workflow.WithClock(clock)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	_, err = a.Guard().Initialize(ctx, "DOS-1", "agent.antenne", catalog.RoleAgentAntenne, "dépôt")
	require.NoError(t, err)
	next, err := a.Guard().Advance(ctx, "DOS-1", "agent.antenne", catalog.RoleAgentAntenne, "")
	require.NoError(t, err)
	assert.Equal(t, 2, next.PhaseID)

	timing, err := a.Engine().TimingInfo(ctx, "DOS-1")
	require.NoError(t, err)
	assert.Equal(t, "AP - Phase GUC", timing.PhaseName)
	assert.True(t, timing.HasDeadline)
	require.NotNil(t, timing.DaysRemaining)
	assert.Equal(t, 3, *timing.DaysRemaining)

	n, err := a.Audit().Verify(ctx, common.EntityDossier, "DOS-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, a.Holidays().Add(ctx, "admin", models.Holiday{
		Date: time.Date(2025, time.May, 1, 0, 0, 0, 0, time.UTC), Label: "Fête du Travail", Recurring: true,
	}))

	// Applying migrations again is a no-op.
	require.NoError(t, a.Migrate(ctx))

	assert.NotContains(t, logs.String(), `"level":"ERROR"`)
}

func TestNewApp_LoadsStoredHolidays(t *testing.T) {
	ctx := context.Background()
	cfg := sqliteConfig()

	first, err := NewApp(ctx, cfg, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, first.Holidays().Add(ctx, "admin", models.Holiday{
		Date: time.Date(2025, time.March, 4, 0, 0, 0, 0, time.UTC), Label: "closure",
	}))

	// The shared in-memory database lives while a connection is open.
	second, err := NewApp(ctx, cfg, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = second.Close(context.Background())
		_ = first.Close(context.Background())
	})

	cal := second.Engine().Calendar()
	assert.False(t, cal.IsWorkingDay(time.Date(2025, time.March, 4, 12, 0, 0, 0, time.UTC)))
	assert.True(t, cal.IsWorkingDay(time.Date(2025, time.March, 5, 12, 0, 0, 0, time.UTC)))
}

func TestNewApp_CatalogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
phases:
  - id: 1
    name: Dépôt
    role: AGENT_ANTENNE
    stage: AP
    max_duration_working_days: 2
  - id: 2
    name: Clôture
    role: AGENT_GUC
    stage: RP
    max_duration_working_days: 0
`), 0o600))

	cfg := sqliteConfig()
	cfg.CatalogFile = path

	a, err := NewApp(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = a.Close(context.Background()) })

	assert.Equal(t, 2, a.Engine().Catalog().Len())
	assert.Equal(t, "Clôture", a.Engine().Catalog().Last().Name)
}

func TestNewApp_Errors(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *config.Config)
	}{
		{"driver", func(c *config.Config) { c.DatabaseDriver = "oracle" }},
		{"log format", func(c *config.Config) { c.LogFormat = "xml" }},
		{"time zone", func(c *config.Config) { c.TimeZone = "Mars/Olympus" }},
		{"catalog", func(c *config.Config) { c.CatalogFile = filepath.Join(t.TempDir(), "missing.yaml") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := sqliteConfig()
			tt.mutate(cfg)
			_, err := NewApp(context.Background(), cfg, &bytes.Buffer{})
			assert.Error(t, err)
		})
	}
}
