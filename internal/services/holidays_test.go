package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/ormvat/dossierflow/internal/audit"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
	"github.com/ormvat/dossierflow/internal/repositories/repotest"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func nopLogger() logging.Logger {
	return logging.NewZerologLogger(zerolog.Nop())
}

func newService(t *testing.T) (*HolidayService, *audit.Log) {
	t.Helper()
	db := repotest.OpenSQLite(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	log := audit.NewLog(db, rm, nopLogger())
	return NewHolidayService(db, rm, log, nopLogger()), log
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestHolidayService_AddListDelete(t *testing.T) {
	ctx := context.Background()
	s, log := newService(t)

	require.NoError(t, s.Add(ctx, "admin", models.Holiday{Date: date(2025, time.July, 30), Label: "Fête du Trône", Recurring: true}))
	require.NoError(t, s.Add(ctx, "admin", models.Holiday{Date: date(2025, time.March, 31), Label: "Aïd al-Fitr"}))

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "Aïd al-Fitr", list[0].Label)
	assert.True(t, list[1].Recurring)

	trail, err := log.QueryByEntity(ctx, common.EntityHoliday, "2025-07-30")
	require.NoError(t, err)
	require.Len(t, trail, 1)
	assert.Equal(t, common.ActionHolidayAdd, trail[0].Action)
	assert.Equal(t, "recurring", trail[0].Details)

	require.NoError(t, s.Delete(ctx, "admin", date(2025, time.March, 31)))
	err = s.Delete(ctx, "admin", date(2025, time.March, 31))
	assert.ErrorIs(t, err, common.ErrorNotFound)

	trail, err = log.QueryByEntity(ctx, common.EntityHoliday, "2025-03-31")
	require.NoError(t, err)
	require.Len(t, trail, 2)
	assert.Equal(t, common.ActionHolidayDelete, trail[0].Action)

	n, err := log.Verify(ctx, common.EntityHoliday, "2025-03-31")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestHolidayService_Calendar(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	// Monday 2025-03-31.
	require.NoError(t, s.Add(ctx, "admin", models.Holiday{Date: date(2025, time.March, 31), Label: "Aïd al-Fitr"}))

	cal, err := s.Calendar(ctx, time.UTC)
	require.NoError(t, err)
	assert.False(t, cal.IsWorkingDay(date(2025, time.March, 31)))
	assert.True(t, cal.IsWorkingDay(date(2025, time.April, 1)))
}

func TestHolidayService_Import(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	doc := `
holidays:
  - date: 2025-01-01
    label: Nouvel An
    recurring: true
  - date: 2025-01-11
    label: Manifeste de l'Indépendance
    recurring: true
  - date: 2025-06-07
    label: Aïd al-Adha
`
	n, err := s.Import(ctx, "admin", strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.True(t, list[0].Date.Equal(date(2025, time.January, 1)))
	assert.False(t, list[2].Recurring)
}

func TestHolidayService_ImportRejectsUnknownFields(t *testing.T) {
	s, _ := newService(t)

	_, err := s.Import(context.Background(), "admin", strings.NewReader("holidays:\n  - day: 2025-01-01\n"))
	assert.ErrorIs(t, err, common.ErrInvalidInput)
}

func TestHolidayService_ImportIsAllOrNothing(t *testing.T) {
	ctx := context.Background()
	s, _ := newService(t)

	doc := "holidays:\n  - date: 2025-01-01\n    label: Nouvel An\n  - label: missing date\n"
	_, err := s.Import(ctx, "admin", strings.NewReader(doc))
	assert.ErrorIs(t, err, common.ErrInvalidInput)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}

type failingRecorder struct{}

func (failingRecorder) RecordWith(ctx context.Context, tx dbx.DBTX, e *models.AuditEntry) error {
	return errors.New("audit unavailable")
}

func TestHolidayService_AuditFailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := repotest.OpenSQLite(t)
	rm := repomanager.NewSQLiteRepositoryManager()
	s := NewHolidayService(db, rm, failingRecorder{}, nopLogger())

	err := s.Add(ctx, "admin", models.Holiday{Date: date(2025, time.May, 1), Label: "Fête du Travail"})
	require.Error(t, err)

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)
}
