// Package auditlog keeps the sync_log and sync_wijzigingen audit trail of
// every import: one log per run, opened in processing and closed as success
// or error, plus one change row per record a reconciling import touched.
package auditlog

import (
	"context"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/internal/repositories/synclog"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/reconcile"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

// Entry opens a sync log.
type Entry struct {
	Entity         models.EntityType
	Strategy       models.ImportStrategy
	FileName       string
	UitgevoerdDoor string
	// PreviousCount is the number of stored records the import replaces. It
	// is logged as records_verwijderd when there is no Diff.
	PreviousCount int
	Diff          *reconcile.Diff
	LockToken     string
}

type Completion struct {
	// Records is the total written, logged as records_totaal.
	Records      int
	FileName     string
	DuurSeconden float64
}

type Service struct {
	db     database.DB
	repo   synclog.SyncLogRepository
	logger ectologger.Logger
	now    func() time.Time
}

func NewService(db database.DB, repo synclog.SyncLogRepository, logger ectologger.Logger) *Service {
	return &Service{
		db:     db,
		repo:   repo,
		logger: logger,
		now:    time.Now,
	}
}

// Begin creates the processing log and, for a reconciling import, every
// change row in one transaction or not at all.
func (s *Service) Begin(ctx context.Context, entry Entry) (*models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Begin")
	defer span.End()

	log := newLog(entry)
	var created *models.SyncLog
	err := database.WithTx(ctx, s.db, func(ctx context.Context, _ database.Tx) error {
		var err error
		created, err = s.repo.Create(ctx, log)
		if err != nil {
			return err
		}
		if entry.Diff == nil || len(entry.Diff.Entries) == 0 {
			return nil
		}
		return s.repo.InsertChanges(ctx, changeRows(created, entry.Diff))
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tabel_naam": entry.Entity,
		}).Error("Failed to open sync log")
		return nil, fmt.Errorf("failed to open sync log: %w", err)
	}

	fields := map[string]any{
		"tabel_naam": entry.Entity,
		"sync_id":    created.ID,
		"strategy":   entry.Strategy,
	}
	if entry.Diff != nil {
		fields["wijzigingen"] = len(entry.Diff.Entries)
	}
	s.logger.WithContext(ctx).WithFields(fields).Info("Opened sync log")
	return created, nil
}

// Complete closes the log as success. Replace-all imports count every
// written record as new.
func (s *Service) Complete(ctx context.Context, log *models.SyncLog, done Completion) error {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Complete")
	defer span.End()

	c := synclog.Completion{
		RecordsTotaal: done.Records,
		DuurSeconden:  done.DuurSeconden,
	}
	if models.ImportStrategy(log.Strategy) != models.ReconcileAndLog {
		c.RecordsNieuw = &done.Records
	}
	if done.FileName != "" {
		c.BestandNaam = &done.FileName
	}
	if err := s.repo.Complete(ctx, log.ID, c); err != nil {
		return err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tabel_naam":    log.TabelNaam,
		"sync_id":       log.ID,
		"records":       done.Records,
		"duur_seconden": done.DuurSeconden,
	}).Info("Closed sync log as success")
	return nil
}

// Fail closes a processing log as error. A log that is already closed is left as is.
func (s *Service) Fail(ctx context.Context, id int64, reason string, duurSeconden float64) error {
	ctx, span := tracing.StartSpan(ctx, "auditlog.Fail")
	defer span.End()

	var duur *float64
	if duurSeconden > 0 {
		duur = &duurSeconden
	}
	changed, err := s.repo.Fail(ctx, id, reason, duur)
	if err != nil {
		return err
	}

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"sync_id": id,
		"reason":  reason,
	})
	if !changed {
		log.Warn("Sync log was no longer processing, not marked as error")
		return nil
	}
	log.Info("Closed sync log as error")
	return nil
}

const StaleReason = "Import afgebroken: geen activiteit"

// SweepStale marks every processing log without activity for olderThan as
// error and returns the logs it closed.
func (s *Service) SweepStale(ctx context.Context, olderThan time.Duration) ([]models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "auditlog.SweepStale")
	defer span.End()

	stale, err := s.repo.ListStale(ctx, s.now().Add(-olderThan))
	if err != nil {
		return nil, err
	}

	closed := make([]models.SyncLog, 0, len(stale))
	for _, log := range stale {
		changed, err := s.repo.Fail(ctx, log.ID, StaleReason, nil)
		if err != nil {
			return closed, err
		}
		if changed {
			log.Status = models.SyncError
			reason := StaleReason
			log.ErrorMessage = &reason
			closed = append(closed, log)
		}
	}

	if len(closed) > 0 {
		s.logger.WithContext(ctx).WithFields(map[string]any{
			"closed":     len(closed),
			"older_than": olderThan.String(),
		}).Warn("Closed stale sync logs")
	}
	return closed, nil
}

// Touch records activity on an open log.
func (s *Service) Touch(ctx context.Context, id int64) error {
	return s.repo.Touch(ctx, id)
}

func (s *Service) Get(ctx context.Context, id int64) (*models.SyncLog, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, filter synclog.Filter) ([]models.SyncLog, error) {
	return s.repo.List(ctx, filter)
}

// ListChanges returns the change rows of one log, 404 when the log does not exist.
func (s *Service) ListChanges(ctx context.Context, id int64, filter synclog.ChangeFilter) ([]models.SyncWijziging, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.ListChanges(ctx, id, filter)
}

func newLog(entry Entry) *models.SyncLog {
	log := &models.SyncLog{
		TabelNaam:         entry.Entity,
		Status:            models.SyncProcessing,
		Strategy:          string(entry.Strategy),
		RecordsVerwijderd: entry.PreviousCount,
	}
	if log.Strategy == "" {
		log.Strategy = string(models.ReplaceAll)
	}
	if entry.FileName != "" {
		log.BestandNaam = &entry.FileName
	}
	if entry.UitgevoerdDoor != "" {
		log.UitgevoerdDoor = &entry.UitgevoerdDoor
	}
	if entry.LockToken != "" {
		log.LockToken = &entry.LockToken
	}
	if d := entry.Diff; d != nil {
		log.RecordsNieuw = d.Counts.Nieuw
		log.RecordsGewijzigd = d.Counts.Gewijzigd
		log.RecordsVerwijderd = d.Counts.Verwijderd
		log.RecordsOngewijzigd = d.Counts.Ongewijzigd
	}
	return log
}

func changeRows(log *models.SyncLog, diff *reconcile.Diff) []models.SyncWijziging {
	rows := make([]models.SyncWijziging, 0, len(diff.Entries))
	for _, e := range diff.Entries {
		rows = append(rows, models.SyncWijziging{
			SyncID:         log.ID,
			SyncDatum:      log.SyncDatum,
			TabelNaam:      log.TabelNaam,
			RecordID:       e.RecordID,
			WijzigingType:  e.Type,
			VeldNaam:       e.VeldNaam(),
			OudeWaarde:     e.OudeWaarde(),
			NieuweWaarde:   e.NieuweWaarde(),
			RecordSnapshot: database.NewJSONB(e.Snapshot),
		})
	}
	return rows
}
