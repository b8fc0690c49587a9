// Package importsession is the server side of the batch import protocol. A
// session holds the table lock from Begin until Finish or Fail; the lock
// token lives on the sync log so any instance can serve the next batch.
package importsession

import (
	"context"
	stderrors "errors"
	"fmt"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/internal/repositories/polis"
	"github.com/Ramsey-B/tulip/internal/repositories/relatie"
	"github.com/Ramsey-B/tulip/internal/services/auditlog"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/kafka"
	"github.com/Ramsey-B/tulip/pkg/metrics"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/reconcile"
	"github.com/Ramsey-B/tulip/pkg/redis"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

const DefaultLockTTL = 15 * time.Minute

// AuditLog is the part of auditlog.Service a session writes to.
type AuditLog interface {
	Begin(ctx context.Context, entry auditlog.Entry) (*models.SyncLog, error)
	Complete(ctx context.Context, log *models.SyncLog, done auditlog.Completion) error
	Fail(ctx context.Context, id int64, reason string, duurSeconden float64) error
	Touch(ctx context.Context, id int64) error
	Get(ctx context.Context, id int64) (*models.SyncLog, error)
}

type Config struct {
	LockTTL time.Duration
}

type Service struct {
	db        database.DB
	relaties  relatie.RelatieRepository
	polissen  polis.PolisRepository
	audit     AuditLog
	locker    Locker
	publisher kafka.Publisher
	cfg       Config
	logger    ectologger.Logger
}

var _ importer.ReconcilingStore = (*Service)(nil)

func NewService(
	db database.DB,
	relaties relatie.RelatieRepository,
	polissen polis.PolisRepository,
	audit AuditLog,
	locker Locker,
	publisher kafka.Publisher,
	cfg Config,
	logger ectologger.Logger,
) *Service {
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = DefaultLockTTL
	}
	if publisher == nil {
		publisher = kafka.NoopPublisher{}
	}
	return &Service{
		db:        db,
		relaties:  relaties,
		polissen:  polissen,
		audit:     audit,
		locker:    locker,
		publisher: publisher,
		cfg:       cfg,
		logger:    logger,
	}
}

// Begin locks the table, clears its stored records and opens the sync log.
// The delete and the log commit together. A reconciling request is diffed
// against the records read under the lock, before they are cleared.
func (s *Service) Begin(ctx context.Context, req importer.BeginRequest) (*importer.Session, error) {
	ctx, span := tracing.StartSpan(ctx, "importsession.Begin")
	defer span.End()

	log := s.logger.WithContext(ctx).WithFields(map[string]any{
		"tabel_naam": req.Entity,
		"strategy":   req.Strategy,
	})

	lock, err := s.locker.Acquire(ctx, redis.ImportKey(req.Entity.String()), s.cfg.LockTTL)
	if err != nil {
		if stderrors.Is(err, redis.ErrLockNotAcquired) {
			metrics.LockConflicts.WithLabelValues(req.Entity.String()).Inc()
			log.Warn("Import refused, table is locked by another import")
			return nil, errors.ImportRunning(req.Entity.String())
		}
		log.WithError(err).Error("Failed to acquire import lock")
		return nil, fmt.Errorf("failed to acquire import lock: %w", err)
	}

	var (
		opened *models.SyncLog
		diff   *reconcile.Diff
	)
	err = database.WithTx(ctx, s.db, func(ctx context.Context, _ database.Tx) error {
		if req.Reconcile != nil {
			existing, err := s.Existing(ctx, req.Entity)
			if err != nil {
				return fmt.Errorf("failed to load stored %s: %w", req.Entity, err)
			}
			diff = req.Reconcile(existing)
		}
		previous, err := s.clear(ctx, req.Entity)
		if err != nil {
			return err
		}
		opened, err = s.audit.Begin(ctx, auditlog.Entry{
			Entity:         req.Entity,
			Strategy:       req.Strategy,
			FileName:       req.FileName,
			UitgevoerdDoor: req.Actor.ID,
			PreviousCount:  previous,
			Diff:           diff,
			LockToken:      lock.Token(),
		})
		return err
	})
	if err != nil {
		s.release(ctx, lock)
		return nil, err
	}

	metrics.ActiveImports.Inc()
	if diff != nil {
		for _, e := range diff.Entries {
			metrics.Changes.WithLabelValues(req.Entity.String(), string(e.Type)).Inc()
		}
	}
	log.WithFields(map[string]any{"sync_id": opened.ID}).Info("Import session started")

	return &importer.Session{ID: opened.ID, Entity: req.Entity, StartedAt: opened.SyncDatum, Diff: diff}, nil
}

// SendBatch stores one batch inside the session. The lock is extended first
// so a session whose lock ran out cannot write over a newer import.
func (s *Service) SendBatch(ctx context.Context, session *importer.Session, batch models.Dataset, n int) error {
	ctx, span := tracing.StartSpan(ctx, "importsession.SendBatch")
	defer span.End()

	synclog, lock, err := s.open(ctx, session)
	if err != nil {
		return err
	}
	if err := lock.Extend(ctx, s.cfg.LockTTL); err != nil {
		if stderrors.Is(err, redis.ErrLockNotHeld) {
			return errors.SessionExpired(session.ID)
		}
		return fmt.Errorf("failed to extend import lock: %w", err)
	}

	started := time.Now()
	err = database.WithTx(ctx, s.db, func(ctx context.Context, _ database.Tx) error {
		if err := s.insert(ctx, session.Entity, batch); err != nil {
			return err
		}
		return s.audit.Touch(ctx, synclog.ID)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tabel_naam": session.Entity,
			"sync_id":    session.ID,
			"batch":      n,
		}).Error("Failed to store import batch")
		return err
	}

	tabel := session.Entity.String()
	metrics.BatchDuration.WithLabelValues(tabel).Observe(time.Since(started).Seconds())
	if session.Entity == models.EntityPolissen {
		metrics.RecordsWritten.WithLabelValues(tabel, "polis").Add(float64(len(batch.Polissen)))
		metrics.RecordsWritten.WithLabelValues(tabel, "dekking").Add(float64(len(batch.Dekkingen)))
		metrics.RecordsWritten.WithLabelValues(tabel, "pakket").Add(float64(len(batch.Pakketten)))
	} else {
		metrics.RecordsWritten.WithLabelValues(tabel, "relatie").Add(float64(len(batch.Relaties)))
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"tabel_naam": session.Entity,
		"sync_id":    session.ID,
		"batch":      n,
		"records":    batch.Len(),
	}).Debug("Stored import batch")
	return nil
}

// Finish closes the log as success, releases the lock and announces the import.
func (s *Service) Finish(ctx context.Context, session *importer.Session, done importer.Completion) error {
	ctx, span := tracing.StartSpan(ctx, "importsession.Finish")
	defer span.End()

	synclog, lock, err := s.open(ctx, session)
	if err != nil {
		return err
	}

	records := done.Total()
	if models.ImportStrategy(synclog.Strategy) == models.ReconcileAndLog {
		records = done.Records
	}
	if err := s.audit.Complete(ctx, synclog, auditlog.Completion{
		Records:      records,
		FileName:     done.FileName,
		DuurSeconden: done.DuurSeconden,
	}); err != nil {
		return err
	}
	s.release(ctx, lock)
	metrics.ActiveImports.Dec()
	metrics.ImportsTotal.WithLabelValues(session.Entity.String(), synclog.Strategy, string(models.SyncSuccess)).Inc()
	metrics.ImportDuration.WithLabelValues(session.Entity.String()).Observe(done.DuurSeconden)

	s.announce(ctx, session.ID)
	return nil
}

// Fail closes the log as error and frees the table.
func (s *Service) Fail(ctx context.Context, session *importer.Session, reason string, duurSeconden float64) error {
	ctx, span := tracing.StartSpan(ctx, "importsession.Fail")
	defer span.End()

	synclog, err := s.audit.Get(ctx, session.ID)
	if err != nil {
		return err
	}
	if synclog.TabelNaam != session.Entity {
		return errors.WrongEntity(synclog.TabelNaam.String())
	}
	if synclog.Status != models.SyncProcessing {
		return nil
	}
	if err := s.audit.Fail(ctx, session.ID, reason, duurSeconden); err != nil {
		return err
	}
	if synclog.LockToken != nil {
		s.release(ctx, s.locker.Resume(redis.ImportKey(synclog.TabelNaam.String()), *synclog.LockToken))
	}
	metrics.ActiveImports.Dec()
	metrics.ImportsTotal.WithLabelValues(synclog.TabelNaam.String(), synclog.Strategy, string(models.SyncError)).Inc()

	s.announce(ctx, session.ID)
	return nil
}

// Existing hands out the stored records of the entity type for reconciliation.
func (s *Service) Existing(ctx context.Context, entity models.EntityType) (models.Dataset, error) {
	ctx, span := tracing.StartSpan(ctx, "importsession.Existing")
	defer span.End()

	d := models.Dataset{Entity: entity}
	if entity == models.EntityPolissen {
		polissen, err := s.polissen.List(ctx)
		if err != nil {
			return d, err
		}
		d.Polissen = polissen
		return d, nil
	}

	relatieType, _ := entity.RelatieType()
	relaties, err := s.relaties.List(ctx, relatieType)
	if err != nil {
		return d, err
	}
	d.Relaties = relaties
	return d, nil
}

// open loads the session's log and checks it still accepts writes.
func (s *Service) open(ctx context.Context, session *importer.Session) (*models.SyncLog, Lock, error) {
	synclog, err := s.audit.Get(ctx, session.ID)
	if err != nil {
		return nil, nil, err
	}
	if synclog.TabelNaam != session.Entity {
		return nil, nil, errors.WrongEntity(synclog.TabelNaam.String())
	}
	if synclog.Status != models.SyncProcessing {
		return nil, nil, errors.SessionClosed(session.ID)
	}
	if synclog.LockToken == nil {
		return nil, nil, errors.SessionExpired(session.ID)
	}
	return synclog, s.locker.Resume(redis.ImportKey(session.Entity.String()), *synclog.LockToken), nil
}

func (s *Service) clear(ctx context.Context, entity models.EntityType) (int, error) {
	if entity == models.EntityPolissen {
		n, err := s.polissen.DeleteAll(ctx)
		return int(n), err
	}
	relatieType, _ := entity.RelatieType()
	n, err := s.relaties.DeleteAll(ctx, relatieType)
	return int(n), err
}

func (s *Service) insert(ctx context.Context, entity models.EntityType, batch models.Dataset) error {
	if entity == models.EntityPolissen {
		return s.polissen.Insert(ctx, batch)
	}
	relatieType, _ := entity.RelatieType()
	for i := range batch.Relaties {
		batch.Relaties[i].RelatieType = relatieType
	}
	return s.relaties.Insert(ctx, batch.Relaties)
}

func (s *Service) release(ctx context.Context, lock Lock) {
	if err := lock.Release(context.WithoutCancel(ctx)); err != nil && !stderrors.Is(err, redis.ErrLockNotHeld) {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to release import lock")
	}
}

// announce publishes the closed log. Failures are logged, never returned.
func (s *Service) announce(ctx context.Context, id int64) {
	synclog, err := s.audit.Get(ctx, id)
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).Warn("Failed to load sync log for import event")
		return
	}
	if err := s.publisher.PublishImportEvent(ctx, kafka.NewImportEvent(synclog)); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"sync_id": id,
		}).Warn("Failed to publish import event")
	}
}
