package database

import (
	"context"
	"database/sql"

	"github.com/huandu/go-sqlbuilder"
)

// MaxParams is the PostgreSQL bind parameter limit per statement.
const MaxParams = 65535

// RowsPerStatement is how many rows of width columns fit under MaxParams.
func RowsPerStatement(columns int) int {
	if columns <= 0 {
		return 0
	}
	return MaxParams / columns
}

type InsertBuilder struct {
	*sqlbuilder.InsertBuilder
}

func NewInsertBuilder() *InsertBuilder {
	return &InsertBuilder{sqlbuilder.PostgreSQL.NewInsertBuilder()}
}

func (ib *InsertBuilder) InsertInto(table string) *InsertBuilder {
	ib.InsertBuilder.InsertInto(table)
	return ib
}

func (ib *InsertBuilder) Cols(col ...string) *InsertBuilder {
	ib.InsertBuilder.Cols(col...)
	return ib
}

func (ib *InsertBuilder) OnConflictDoNothing() *InsertBuilder {
	ib.SQL("ON CONFLICT DO NOTHING")
	return ib
}

// UpsertAll turns the insert into an upsert on key that overwrites every
// other inserted column with the incoming value. extra holds literal
// assignments such as "updated_at = NOW()".
func (ib *InsertBuilder) UpsertAll(key string, cols []string, extra ...string) *InsertBuilder {
	return ib.UpsertAllWhere(key, cols, "", extra...)
}

// UpsertAllWhere is UpsertAll that only overwrites stored rows matching
// where. Rows it skips are left out of the affected count.
func (ib *InsertBuilder) UpsertAllWhere(key string, cols []string, where string, extra ...string) *InsertBuilder {
	ub := NewUpdateBuilder()
	set := make([]string, 0, len(cols)+len(extra))
	for _, col := range cols {
		if col != key {
			set = append(set, ub.Assign(col, sqlbuilder.Raw("EXCLUDED."+col)))
		}
	}
	ub.Set(append(set, extra...)...)
	if where != "" {
		ub.Where(where)
	}

	ib.SQL("ON CONFLICT (" + key + ") DO UPDATE " + ib.Var(ub))
	return ib
}

// Execer is satisfied by DB, Tx and Querier.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// BulkInsert writes rows using as few statements as MaxParams allows and
// returns the rows the statements reported as affected. Each row is read
// field by field through its db tags; finish, when set, adds the conflict
// clause to every statement.
func BulkInsert[T any](ctx context.Context, q Execer, table string, cols []string, rows []T, finish func(*InsertBuilder)) (int64, error) {
	per := RowsPerStatement(len(cols))
	var affected int64
	for start := 0; start < len(rows); start += per {
		end := min(start+per, len(rows))

		ib := NewInsertBuilder().InsertInto(table).Cols(cols...)
		for i := start; i < end; i++ {
			ib.Values(Values(&rows[i], cols)...)
		}
		if finish != nil {
			finish(ib)
		}

		query, args := ib.Build()
		res, err := q.ExecContext(ctx, query, args...)
		if err != nil {
			return affected, err
		}
		if n, err := res.RowsAffected(); err == nil {
			affected += n
		}
	}
	return affected, nil
}

type UpdateBuilder struct {
	*sqlbuilder.UpdateBuilder
}

func NewUpdateBuilder() *UpdateBuilder {
	return &UpdateBuilder{sqlbuilder.PostgreSQL.NewUpdateBuilder()}
}

type DeleteBuilder struct {
	*sqlbuilder.DeleteBuilder
}

func NewDeleteBuilder() *DeleteBuilder {
	return &DeleteBuilder{sqlbuilder.PostgreSQL.NewDeleteBuilder()}
}

type SelectBuilder struct {
	*sqlbuilder.SelectBuilder
}

func NewSelectBuilder() *SelectBuilder {
	return &SelectBuilder{sqlbuilder.PostgreSQL.NewSelectBuilder()}
}

// Struct maps a model's db tags onto select statements.
type Struct struct {
	*sqlbuilder.Struct
}

func NewStruct(v any) *Struct {
	return &Struct{sqlbuilder.NewStruct(v).For(sqlbuilder.PostgreSQL)}
}

func (s *Struct) SelectFrom(table string) *SelectBuilder {
	return &SelectBuilder{s.Struct.SelectFrom(table)}
}
