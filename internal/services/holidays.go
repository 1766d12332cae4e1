// Package services holds the administrative operations that sit next to the
// workflow engine and share its storage and audit log.
package services

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	"github.com/ormvat/dossierflow/internal/audit"
	"github.com/ormvat/dossierflow/internal/calendar"
	"github.com/ormvat/dossierflow/internal/common"
	"github.com/ormvat/dossierflow/internal/dbx"
	"github.com/ormvat/dossierflow/internal/logging"
	"github.com/ormvat/dossierflow/internal/models"
	"github.com/ormvat/dossierflow/internal/repositories/holidays"
	"github.com/ormvat/dossierflow/internal/repositories/repomanager"
	"gopkg.in/yaml.v3"
)

// HolidayService manages the holiday set of the working-day calendar. Every
// change is recorded in the audit log in the same transaction.
type HolidayService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	audit       audit.Recorder
	logger      logging.Logger
}

func NewHolidayService(db *sql.DB, repomanager repomanager.RepositoryManager, recorder audit.Recorder, logger logging.Logger) *HolidayService {
	return &HolidayService{
		db:          db,
		repomanager: repomanager,
		audit:       recorder,
		logger:      logger.With("module", "holidays"),
	}
}

// HolidayFile is the YAML document accepted by Import.
type HolidayFile struct {
	Holidays []models.Holiday `yaml:"holidays"`
}

func (s *HolidayService) List(ctx context.Context) ([]models.Holiday, error) {
	return s.repomanager.Holidays(s.db).List(ctx)
}

// Calendar builds a working-day calendar in loc from the stored holidays.
func (s *HolidayService) Calendar(ctx context.Context, loc *time.Location) (*calendar.Calendar, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("load holidays: %w", err)
	}
	return calendar.New(loc, list...), nil
}

// Add stores h, replacing any holiday on the same date.
func (s *HolidayService) Add(ctx context.Context, actorUserID string, h models.Holiday) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return s.add(ctx, tx, actorUserID, h)
	})
}

func (s *HolidayService) add(ctx context.Context, tx dbx.DBTX, actorUserID string, h models.Holiday) error {
	if h.Date.IsZero() {
		return fmt.Errorf("%w: holiday without date", common.ErrInvalidInput)
	}
	if err := s.repomanager.Holidays(tx).Upsert(ctx, h); err != nil {
		return err
	}

	details := ""
	if h.Recurring {
		details = "recurring"
	}
	if err := s.audit.RecordWith(ctx, tx, &models.AuditEntry{
		EntityType:  common.EntityHoliday,
		EntityID:    h.Date.Format(holidays.DateLayout),
		ActorUserID: actorUserID,
		Action:      common.ActionHolidayAdd,
		NewValue:    h.Label,
		Details:     details,
	}); err != nil {
		return err
	}

	s.logger.Info(ctx, "holiday added", "date", h.Date.Format(holidays.DateLayout), "label", h.Label, "recurring", h.Recurring)
	return nil
}

// Delete removes the holiday on date, or returns common.ErrorNotFound.
func (s *HolidayService) Delete(ctx context.Context, actorUserID string, date time.Time) error {
	return dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		if err := s.repomanager.Holidays(tx).Delete(ctx, date); err != nil {
			return err
		}
		if err := s.audit.RecordWith(ctx, tx, &models.AuditEntry{
			EntityType:  common.EntityHoliday,
			EntityID:    date.Format(holidays.DateLayout),
			ActorUserID: actorUserID,
			Action:      common.ActionHolidayDelete,
		}); err != nil {
			return err
		}
		s.logger.Info(ctx, "holiday deleted", "date", date.Format(holidays.DateLayout))
		return nil
	})
}

// Import adds every holiday of a YAML HolidayFile in one transaction and
// returns how many were stored.
func (s *HolidayService) Import(ctx context.Context, actorUserID string, r io.Reader) (int, error) {
	var doc HolidayFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return 0, fmt.Errorf("%w: holiday file: %v", common.ErrInvalidInput, err)
	}

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		for _, h := range doc.Holidays {
			if err := s.add(ctx, tx, actorUserID, h); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(doc.Holidays), nil
}
