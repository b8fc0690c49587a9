package polis

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

const (
	polissenTable  = "polissen"
	dekkingenTable = "polis_dekkingen"
	pakkettenTable = "pakketten"
)

var (
	polisStruct   = database.NewStruct(models.Polis{})
	dekkingStruct = database.NewStruct(models.PolisDekking{})

	polisColumns   = database.Columns(models.Polis{}, "created_at", "updated_at")
	dekkingColumns = database.Columns(models.PolisDekking{}, "id", "created_at")
	pakketColumns  = database.Columns(models.Pakket{}, "created_at", "updated_at")
)

type PolisRepository interface {
	Count(ctx context.Context) (int, error)
	List(ctx context.Context) ([]models.Polis, error)
	ListDekkingen(ctx context.Context, polisID string) ([]models.PolisDekking, error)
	DeleteAll(ctx context.Context) (int64, error)
	Insert(ctx context.Context, batch models.Dataset) error
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

func (r *Repository) Count(ctx context.Context) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "PolisRepository.Count")
	defer span.End()

	var n int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &n, "SELECT COUNT(*) FROM "+polissenTable); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count polissen")
		return 0, fmt.Errorf("failed to count polissen: %w", err)
	}
	return n, nil
}

func (r *Repository) List(ctx context.Context) ([]models.Polis, error) {
	ctx, span := tracing.StartSpan(ctx, "PolisRepository.List")
	defer span.End()

	sb := polisStruct.SelectFrom(polissenTable)
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []models.Polis
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list polissen")
		return nil, fmt.Errorf("failed to list polissen: %w", err)
	}
	return rows, nil
}

func (r *Repository) ListDekkingen(ctx context.Context, polisID string) ([]models.PolisDekking, error) {
	ctx, span := tracing.StartSpan(ctx, "PolisRepository.ListDekkingen")
	defer span.End()

	sb := dekkingStruct.SelectFrom(dekkingenTable)
	sb.Where(sb.Equal("polis_id", polisID))
	sb.OrderBy("id")
	query, args := sb.Build()

	var rows []models.PolisDekking
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"polis_id": polisID,
		}).Error("Failed to list dekkingen")
		return nil, fmt.Errorf("failed to list dekkingen: %w", err)
	}
	return rows, nil
}

// DeleteAll clears dekkingen, polissen and every pakket. It returns the
// rows removed over all three tables, the same unit an import is counted in.
func (r *Repository) DeleteAll(ctx context.Context) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "PolisRepository.DeleteAll")
	defer span.End()

	q := database.Conn(ctx, r.db)
	deleted := map[string]any{}
	var total int64
	for _, table := range []string{dekkingenTable, polissenTable, pakkettenTable} {
		res, err := q.ExecContext(ctx, "DELETE FROM "+table)
		if err != nil {
			r.logger.WithContext(ctx).WithError(err).WithField("table", table).Error("Failed to clear polissen tables")
			return 0, fmt.Errorf("failed to delete %s: %w", table, err)
		}
		n, _ := res.RowsAffected()
		deleted[table] = n
		total += n
	}

	r.logger.WithContext(ctx).WithFields(deleted).Info("Deleted polissen")
	return total, nil
}

// Insert stores one batch: pakketten first, then polissen, then dekkingen.
// A pakket that is already stored keeps its first version.
func (r *Repository) Insert(ctx context.Context, batch models.Dataset) error {
	ctx, span := tracing.StartSpan(ctx, "PolisRepository.Insert")
	defer span.End()

	q := database.Conn(ctx, r.db)

	newPakketten, err := database.BulkInsert(ctx, q, pakkettenTable, pakketColumns, batch.Pakketten, func(ib *database.InsertBuilder) {
		ib.OnConflictDoNothing()
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert pakketten")
		return fmt.Errorf("failed to insert pakketten: %w", err)
	}

	_, err = database.BulkInsert(ctx, q, polissenTable, polisColumns, batch.Polissen, func(ib *database.InsertBuilder) {
		ib.UpsertAll("id", polisColumns, "updated_at = NOW()")
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert polissen")
		return fmt.Errorf("failed to insert polissen: %w", err)
	}

	_, err = database.BulkInsert(ctx, q, dekkingenTable, dekkingColumns, batch.Dekkingen, nil)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to insert dekkingen")
		return fmt.Errorf("failed to insert dekkingen: %w", err)
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"polissen":  len(batch.Polissen),
		"dekkingen": len(batch.Dekkingen),
		"pakketten": len(batch.Pakketten),
		// pakketten not already stored by an earlier batch
		"pakketten_nieuw": newPakketten,
	}).Debug("Inserted polissen batch")
	return nil
}
