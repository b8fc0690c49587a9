package relatie

import (
	"context"
	"fmt"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
)

const relatiesTable = "relaties"

var (
	relatieStruct = database.NewStruct(models.Relatie{})
	// insertColumns leaves the timestamps to their column defaults.
	insertColumns = database.Columns(models.Relatie{}, "created_at", "updated_at")
)

// RelatieRepository stores relaties of both types in one table, partitioned by relatie_type.
type RelatieRepository interface {
	Count(ctx context.Context, relatieType models.RelatieType) (int, error)
	List(ctx context.Context, relatieType models.RelatieType) ([]models.Relatie, error)
	DeleteAll(ctx context.Context, relatieType models.RelatieType) (int64, error)
	Insert(ctx context.Context, relaties []models.Relatie) error
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

func (r *Repository) Count(ctx context.Context, relatieType models.RelatieType) (int, error) {
	ctx, span := tracing.StartSpan(ctx, "RelatieRepository.Count")
	defer span.End()

	sb := database.NewSelectBuilder()
	sb.Select("COUNT(*)").From(relatiesTable)
	sb.Where(sb.Equal("relatie_type", string(relatieType)))
	query, args := sb.Build()

	var n int
	if err := database.Conn(ctx, r.db).GetContext(ctx, &n, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to count relaties")
		return 0, fmt.Errorf("failed to count relaties: %w", err)
	}
	return n, nil
}

// List returns every stored relatie of the type ordered by id.
func (r *Repository) List(ctx context.Context, relatieType models.RelatieType) ([]models.Relatie, error) {
	ctx, span := tracing.StartSpan(ctx, "RelatieRepository.List")
	defer span.End()

	sb := relatieStruct.SelectFrom(relatiesTable)
	sb.Where(sb.Equal("relatie_type", string(relatieType)))
	sb.OrderBy("id")
	query, args := sb.Build()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"relatie_type": relatieType,
	}).Debug("Listing relaties")

	var rows []models.Relatie
	if err := database.Conn(ctx, r.db).SelectContext(ctx, &rows, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to list relaties")
		return nil, fmt.Errorf("failed to list relaties: %w", err)
	}
	return rows, nil
}

func (r *Repository) DeleteAll(ctx context.Context, relatieType models.RelatieType) (int64, error) {
	ctx, span := tracing.StartSpan(ctx, "RelatieRepository.DeleteAll")
	defer span.End()

	del := database.NewDeleteBuilder()
	del.DeleteFrom(relatiesTable)
	del.Where(del.Equal("relatie_type", string(relatieType)))
	query, args := del.Build()

	res, err := database.Conn(ctx, r.db).ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to delete relaties")
		return 0, fmt.Errorf("failed to delete relaties: %w", err)
	}
	n, _ := res.RowsAffected()

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"relatie_type": relatieType,
		"deleted":      n,
	}).Info("Deleted relaties")
	return n, nil
}

// Insert writes relaties in as few statements as the parameter limit allows.
// A relatie already stored under the same id and type is overwritten; one
// stored under the other type is left alone and reported as a conflict.
func (r *Repository) Insert(ctx context.Context, relaties []models.Relatie) error {
	ctx, span := tracing.StartSpan(ctx, "RelatieRepository.Insert")
	defer span.End()

	q := database.Conn(ctx, r.db)
	written, err := database.BulkInsert(ctx, q, relatiesTable, insertColumns, relaties, func(ib *database.InsertBuilder) {
		ib.UpsertAllWhere("id", insertColumns, relatiesTable+".relatie_type = EXCLUDED.relatie_type", "updated_at = NOW()")
	})
	if err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"records": len(relaties),
		}).Error("Failed to insert relaties")
		return fmt.Errorf("failed to insert relaties: %w", err)
	}
	if written == int64(len(relaties)) {
		return nil
	}

	conflicts, err := r.typeConflicts(ctx, q, relaties)
	if err != nil {
		return err
	}
	if len(conflicts) == 0 {
		return nil
	}
	r.logger.WithContext(ctx).WithFields(map[string]any{
		"records":   len(relaties),
		"written":   written,
		"conflicts": conflicts,
	}).Warn("Relaties stored under another relatie type were not written")
	return errors.RelatieTypeConflict(conflicts)
}

// typeConflicts returns the ids of relaties stored with a type other than the incoming one.
func (r *Repository) typeConflicts(ctx context.Context, q database.Querier, relaties []models.Relatie) ([]string, error) {
	incoming := make(map[string]models.RelatieType, len(relaties))
	ids := make([]any, 0, len(relaties))
	for _, rel := range relaties {
		incoming[rel.ID] = rel.RelatieType
		ids = append(ids, rel.ID)
	}

	sb := database.NewSelectBuilder()
	sb.Select("id", "relatie_type").From(relatiesTable)
	sb.Where(sb.In("id", ids...))
	sb.OrderBy("id")
	query, args := sb.Build()

	var stored []struct {
		ID          string             `db:"id"`
		RelatieType models.RelatieType `db:"relatie_type"`
	}
	if err := q.SelectContext(ctx, &stored, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).Error("Failed to look up relatie type conflicts")
		return nil, fmt.Errorf("failed to look up relatie type conflicts: %w", err)
	}

	var conflicts []string
	for _, row := range stored {
		if row.RelatieType != incoming[row.ID] {
			conflicts = append(conflicts, row.ID)
		}
	}
	return conflicts, nil
}
