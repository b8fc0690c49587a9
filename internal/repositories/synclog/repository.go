package synclog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

const (
	syncLogTable     = "sync_log"
	wijzigingenTable = "sync_wijzigingen"

	DefaultLimit = 50
	MaxLimit     = 500
)

var (
	syncLogStruct   = database.NewStruct(models.SyncLog{})
	wijzigingStruct = database.NewStruct(models.SyncWijziging{})

	syncLogColumns   = database.Columns(models.SyncLog{}, "id", "sync_datum", "updated_at")
	wijzigingColumns = database.Columns(models.SyncWijziging{}, "id")
)

// Filter narrows List. Zero values match everything.
type Filter struct {
	TabelNaam models.EntityType `query:"tabel_naam"`
	Status    models.SyncStatus `query:"status"`
	Limit     int               `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset    int               `query:"offset" validate:"omitempty,min=0"`
}

type ChangeFilter struct {
	WijzigingType models.WijzigingType `query:"wijziging_type" validate:"omitempty,oneof=nieuw gewijzigd verwijderd"`
	Limit         int                  `query:"limit" validate:"omitempty,min=1,max=500"`
	Offset        int                  `query:"offset" validate:"omitempty,min=0"`
}

// Completion is written when a session closes successfully.
type Completion struct {
	RecordsTotaal int
	// RecordsNieuw overwrites the count written at start when set.
	RecordsNieuw *int
	BestandNaam  *string
	DuurSeconden float64
}

type SyncLogRepository interface {
	Create(ctx context.Context, log *models.SyncLog) (*models.SyncLog, error)
	Get(ctx context.Context, id int64) (*models.SyncLog, error)
	List(ctx context.Context, filter Filter) ([]models.SyncLog, error)
	Touch(ctx context.Context, id int64) error
	Complete(ctx context.Context, id int64, done Completion) error
	Fail(ctx context.Context, id int64, message string, duurSeconden *float64) (bool, error)
	ListStale(ctx context.Context, before time.Time) ([]models.SyncLog, error)
	InsertChanges(ctx context.Context, changes []models.SyncWijziging) error
	ListChanges(ctx context.Context, syncID int64, filter ChangeFilter) ([]models.SyncWijziging, error)
}

type Repository struct {
	db     database.DB
	logger ectologger.Logger
}

func NewRepository(db database.DB, logger ectologger.Logger) *Repository {
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Create inserts log and returns it with the id and sync_datum assigned by the database.
func (r *Repository) Create(ctx context.Context, log *models.SyncLog) (*models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Create")
	defer span.End()

	ib := database.NewInsertBuilder().InsertInto(syncLogTable).Cols(syncLogColumns...)
	ib.Values(database.Values(log, syncLogColumns)...)
	ib.Returning("id", "sync_datum", "updated_at")
	query, args := ib.Build()

	created := *log
	row := database.Conn(ctx, r.db).QueryRowxContext(ctx, query, args...)
	if err := row.Scan(&created.ID, &created.SyncDatum, &created.UpdatedAt); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"tabel_naam": log.TabelNaam,
		}).Error("Failed to create sync log")
		return nil, fmt.Errorf("failed to create sync log: %w", err)
	}
	return &created, nil
}

func (r *Repository) Get(ctx context.Context, id int64) (*models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Get")
	defer span.End()

	sb := syncLogStruct.SelectFrom(syncLogTable)
	sb.Where(sb.Equal("id", id))
	query, args := sb.Build()

	var log models.SyncLog
	if err := database.Conn(ctx, r.db).GetContext(ctx, &log, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Sync log %d niet gevonden", id))
		}
		r.logger.WithContext(ctx).WithError(err).Error("Failed to get sync log")
		return nil, fmt.Errorf("failed to get sync log %d: %w", id, err)
	}
	return &log, nil
}

// List returns sync logs newest first.
func (r *Repository) List(ctx context.Context, filter Filter) ([]models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.List")
	defer span.End()

	sb := syncLogStruct.SelectFrom(syncLogTable)
	if filter.TabelNaam != "" {
		sb.Where(sb.Equal("tabel_naam", string(filter.TabelNaam)))
	}
	if filter.Status != "" {
		sb.Where(sb.Equal("status", string(filter.Status)))
	}
	sb.OrderBy("sync_datum").Desc()
	sb.Limit(limit(filter.Limit)).Offset(filter.Offset)
	query, args := sb.Build()

	logs := []models.SyncLog{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync logs")
		return nil, fmt.Errorf("failed to list sync logs: %w", err)
	}
	return logs, nil
}

// Touch records activity on a processing session so the sweeper leaves it alone.
func (r *Repository) Touch(ctx context.Context, id int64) error {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Touch")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(syncLogTable).Set("updated_at = NOW()")
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()

	if _, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to touch sync log %d: %w", id, err)
	}
	return nil
}

func (r *Repository) Complete(ctx context.Context, id int64, done Completion) error {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Complete")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(syncLogTable).Set(
		ub.Assign("status", string(models.SyncSuccess)),
		ub.Assign("records_totaal", done.RecordsTotaal),
		ub.Assign("sync_duur_seconden", done.DuurSeconden),
		"lock_token = NULL",
		"updated_at = NOW()",
	)
	if done.RecordsNieuw != nil {
		ub.SetMore(ub.Assign("records_nieuw", *done.RecordsNieuw))
	}
	if done.BestandNaam != nil {
		ub.SetMore(ub.Assign("bestand_naam", *done.BestandNaam))
	}
	ub.Where(ub.Equal("id", id))
	query, args := ub.Build()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to complete sync log")
		return fmt.Errorf("failed to complete sync log %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("Sync log %d niet gevonden", id))
	}
	return nil
}

// Fail marks a processing log as error. It reports false when the log was
// no longer processing.
func (r *Repository) Fail(ctx context.Context, id int64, message string, duurSeconden *float64) (bool, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.Fail")
	defer span.End()

	ub := database.NewUpdateBuilder()
	ub.Update(syncLogTable).Set(
		ub.Assign("status", string(models.SyncError)),
		ub.Assign("error_message", message),
		"lock_token = NULL",
		"updated_at = NOW()",
	)
	if duurSeconden != nil {
		ub.SetMore(ub.Assign("sync_duur_seconden", *duurSeconden))
	}
	ub.Where(
		ub.Equal("id", id),
		ub.Equal("status", string(models.SyncProcessing)),
	)
	query, args := ub.Build()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to mark sync log as error")
		return false, fmt.Errorf("failed to mark sync log %d as error: %w", id, err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// ListStale returns processing logs with no activity since before.
func (r *Repository) ListStale(ctx context.Context, before time.Time) ([]models.SyncLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.ListStale")
	defer span.End()

	sb := syncLogStruct.SelectFrom(syncLogTable)
	sb.Where(
		sb.Equal("status", string(models.SyncProcessing)),
		sb.LessThan("updated_at", before),
	)
	sb.OrderBy("id")
	query, args := sb.Build()

	var logs []models.SyncLog
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list stale sync logs")
		return nil, fmt.Errorf("failed to list stale sync logs: %w", err)
	}
	return logs, nil
}

func (r *Repository) InsertChanges(ctx context.Context, changes []models.SyncWijziging) error {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.InsertChanges")
	defer span.End()

	if _, err := database.BulkInsert(ctx, database.Conn(ctx, r.db), wijzigingenTable, wijzigingColumns, changes, nil); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"wijzigingen": len(changes),
		}).Error("Failed to insert sync wijzigingen")
		return fmt.Errorf("failed to insert sync wijzigingen: %w", err)
	}
	return nil
}

func (r *Repository) ListChanges(ctx context.Context, syncID int64, filter ChangeFilter) ([]models.SyncWijziging, error) {
	ctx, span := tracing.StartSpan(ctx, "SyncLogRepository.ListChanges")
	defer span.End()

	sb := wijzigingStruct.SelectFrom(wijzigingenTable)
	sb.Where(sb.Equal("sync_id", syncID))
	if filter.WijzigingType != "" {
		sb.Where(sb.Equal("wijziging_type", string(filter.WijzigingType)))
	}
	sb.OrderBy("id")
	sb.Limit(limit(filter.Limit)).Offset(filter.Offset)
	query, args := sb.Build()

	changes := []models.SyncWijziging{}
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &changes, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list sync wijzigingen")
		return nil, fmt.Errorf("failed to list sync wijzigingen: %w", err)
	}
	return changes, nil
}

func limit(n int) int {
	if n <= 0 {
		return DefaultLimit
	}
	return min(n, MaxLimit)
}
