// Package importer drives one export file from parsing to a committed
// import: parse, open a session, send batches in order, finish.
package importer

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/metrics"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/parser"
	"github.com/Ramsey-B/tulip/pkg/reconcile"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"go.opentelemetry.io/otel/attribute"
)

type Config struct {
	BatchSize   int
	BytesPerRow int
	Encoding    string
	Strategies  Strategies
}

type Request struct {
	Entity   models.EntityType
	Actor    Actor
	FileName string
	File     io.Reader
	// Size of File in bytes, zero when unknown.
	Size int64
	// Strategy overrides the configured strategy for the entity type.
	Strategy models.ImportStrategy
}

// Result is reported to the caller when the run ends, successful or not.
type Result struct {
	Success      bool                  `json:"success"`
	Totaal       int                   `json:"totaal"`
	DuurSeconden float64               `json:"duur_seconden"`
	Error        string                `json:"error,omitempty"`
	SyncID       int64                 `json:"sync_id,omitempty"`
	Strategy     models.ImportStrategy `json:"strategy"`
	*reconcile.Counts
	Skipped  []*errors.RowError `json:"skipped,omitempty"`
	Warnings []*errors.RowError `json:"warnings,omitempty"`
}

type Pipeline struct {
	store  Store
	cfg    Config
	logger ectologger.Logger
	now    func() time.Time
}

func NewPipeline(store Store, cfg Config, logger ectologger.Logger) *Pipeline {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.BytesPerRow <= 0 {
		cfg.BytesPerRow = parser.DefaultBytesPerRow
	}
	if cfg.Strategies == nil {
		cfg.Strategies = DefaultStrategies()
	}
	return &Pipeline{store: store, cfg: cfg, logger: logger, now: time.Now}
}

// Run executes the whole import. The returned Result is never nil; err is
// set whenever Result.Success is false. Batches are sent one at a time and
// ctx is checked before each. Once a session is open any failure marks it
// as error before returning.
func (p *Pipeline) Run(ctx context.Context, req Request, onProgress ProgressFunc) (*Result, error) {
	ctx, span := tracing.StartSpan(ctx, "importer.Pipeline.Run", attribute.String("tabel_naam", req.Entity.String()))
	defer span.End()

	started := p.now()
	track := &tracker{fn: onProgress}
	strategy := req.Strategy
	if strategy == "" {
		strategy = p.cfg.Strategies.For(req.Entity)
	}
	res := &Result{Strategy: strategy}
	log := p.logger.WithContext(ctx).WithFields(map[string]any{
		"tabel_naam": req.Entity.String(),
		"strategy":   string(strategy),
	})

	abort := func(err error) (*Result, error) {
		res.Success = false
		res.Totaal = 0
		res.Error = errors.Message(err)
		res.DuurSeconden = p.elapsed(started)
		track.fail(res.Error)
		tracing.RecordError(span, err)
		log.WithError(err).Error("Import failed")
		return res, err
	}

	if err := authorize(req.Actor); err != nil {
		return abort(err)
	}

	track.emit(func(pr *Progress) {
		pr.Phase = PhaseParsing
		pr.Message = "CSV bestand parsen..."
	})
	parsed, err := parser.Parse(ctx, req.Entity, req.File, parser.Options{
		Encoding:    p.cfg.Encoding,
		Size:        req.Size,
		BytesPerRow: p.cfg.BytesPerRow,
		OnProgress:  track.parsing,
	})
	if err != nil {
		return abort(err)
	}
	res.Skipped = parsed.Skipped
	res.Warnings = parsed.Warnings
	for _, skipped := range parsed.Skipped {
		metrics.SkippedRows.WithLabelValues(req.Entity.String(), string(skipped.Reason)).Inc()
	}
	if len(parsed.Skipped) > 0 || len(parsed.Warnings) > 0 {
		log.WithFields(map[string]any{
			"skipped":  len(parsed.Skipped),
			"warnings": len(parsed.Warnings),
		}).Warn("Export contained rows or values that were dropped")
	}

	data := parsed.Dataset
	total := data.Len()
	if total == 0 {
		return abort(errors.NoRecords())
	}

	begin := BeginRequest{
		Entity:   req.Entity,
		Actor:    req.Actor,
		FileName: req.FileName,
		Strategy: strategy,
	}
	if strategy == models.ReconcileAndLog {
		if _, ok := p.store.(ReconcilingStore); !ok {
			return abort(errors.StartFailed(fmt.Errorf("store cannot reconcile %s", req.Entity)))
		}
		begin.Reconcile = func(existing models.Dataset) *reconcile.Diff {
			return diff(existing, data)
		}
	}

	batches := Split(data, p.cfg.BatchSize)
	track.emit(func(pr *Progress) {
		pr.Phase = PhaseStarting
		pr.Percent = startPercent
		pr.Message = "Import starten..."
		pr.TotalRecords = total
		pr.TotalBatches = len(batches)
	})
	if err := ctx.Err(); err != nil {
		return abort(err)
	}
	session, err := p.store.Begin(ctx, begin)
	if err != nil {
		return abort(errors.StartFailed(err))
	}
	res.SyncID = session.ID
	log = log.WithFields(map[string]any{"sync_id": session.ID})

	failSession := func(err error) (*Result, error) {
		// the session must be closed even when ctx is what failed
		if ferr := p.store.Fail(context.WithoutCancel(ctx), session, errors.Message(err), p.elapsed(started)); ferr != nil {
			log.WithError(ferr).Error("Failed to mark import as error")
		}
		return abort(err)
	}

	if begin.Reconcile != nil {
		if session.Diff == nil {
			return failSession(errors.StartFailed(fmt.Errorf("store opened %s without reconciling", req.Entity)))
		}
		res.Counts = &session.Diff.Counts
	}

	sent := 0
	for i, batch := range batches {
		if err := ctx.Err(); err != nil {
			return failSession(err)
		}
		n := i + 1
		track.emit(func(pr *Progress) {
			pr.Phase = PhaseUploading
			pr.Percent = uploadPercent(i, len(batches))
			pr.Message = fmt.Sprintf("Uploaden batch %d/%d...", n, len(batches))
		})
		if err := p.store.SendBatch(ctx, session, batch, n); err != nil {
			return failSession(errors.BatchFailed(n, err))
		}
		sent += batch.Len()
		track.emit(func(pr *Progress) {
			pr.Percent = uploadPercent(n, len(batches))
			pr.RecordsProcessed = sent
			pr.BatchesSent = n
		})
		log.WithFields(map[string]any{"batch": n, "records": batch.Len()}).Debug("Batch sent")
	}

	track.emit(func(pr *Progress) {
		pr.Phase = PhaseFinishing
		pr.Percent = finishingPercent
		pr.Message = "Import afronden..."
	})
	done := Completion{
		Records:      total,
		Dekkingen:    len(data.Dekkingen),
		Pakketten:    len(data.Pakketten),
		FileName:     req.FileName,
		DuurSeconden: p.elapsed(started),
	}
	if err := p.store.Finish(ctx, session, done); err != nil {
		return failSession(errors.FinishFailed(err))
	}

	res.Success = true
	res.Totaal = total
	res.DuurSeconden = done.DuurSeconden
	track.emit(func(pr *Progress) {
		pr.Phase = PhaseDone
		pr.Percent = donePercent
		pr.Message = "Import voltooid!"
		pr.RecordsProcessed = total
	})
	log.WithFields(map[string]any{
		"records":       total,
		"batches":       len(batches),
		"duur_seconden": done.DuurSeconden,
	}).Info("Import completed")
	return res, nil
}

func diff(existing, incoming models.Dataset) *reconcile.Diff {
	if incoming.Entity == models.EntityPolissen {
		return reconcile.Reconcile(existing.Polissen, incoming.Polissen).Diff()
	}
	return reconcile.Reconcile(existing.Relaties, incoming.Relaties).Diff()
}

func (p *Pipeline) elapsed(started time.Time) float64 {
	return p.now().Sub(started).Seconds()
}

// authorize refuses actors that are not signed in or cannot import.
func authorize(actor Actor) error {
	if actor.ID == "" {
		return errors.NotAuthenticated()
	}
	if !actor.Role.CanImport() {
		return errors.Forbidden()
	}
	return nil
}
