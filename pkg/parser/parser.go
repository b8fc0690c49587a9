// Package parser turns one legacy export file into a canonical Dataset.
package parser

import (
	"context"
	"encoding/csv"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/Ramsey-B/tulip/pkg/columns"
	"github.com/Ramsey-B/tulip/pkg/csvreader"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/polisgroup"
	"github.com/Ramsey-B/tulip/pkg/rowmapper"
)

const (
	DefaultBytesPerRow   = 200
	DefaultProgressEvery = 500
)

// ProgressFunc receives the rows read so far and the estimated row count of
// the whole file. The estimate never drops below rowsRead.
type ProgressFunc func(rowsRead, estimatedRows int)

type Options struct {
	Encoding  string
	Delimiter rune
	// Size is the raw file size in bytes, used only for the row estimate.
	Size          int64
	BytesPerRow   int
	ProgressEvery int
	OnProgress    ProgressFunc
}

type Result struct {
	Dataset models.Dataset
	// Skipped rows did not make it into the dataset.
	Skipped []*errors.RowError
	// Warnings are values dropped from rows that were kept.
	Warnings  []*errors.RowError
	RowsRead  int
	Delimiter rune
	Unmatched []string
}

// EstimateRows approximates the data rows in a file of size bytes.
func EstimateRows(size int64, bytesPerRow int) int {
	if bytesPerRow <= 0 {
		bytesPerRow = DefaultBytesPerRow
	}
	if size <= 0 {
		return 0
	}
	return int(size / int64(bytesPerRow))
}

// Parse streams r through the column table of entity. Relaties are
// deduplicated on id, first occurrence wins; polissen are grouped per policy.
// ctx is checked at every progress checkpoint.
func Parse(ctx context.Context, entity models.EntityType, r io.Reader, opts Options) (*Result, error) {
	table, err := columns.Load(entity)
	if err != nil {
		return nil, err
	}

	reader, err := csvreader.NewReader(r, table.Headers(), csvreader.Options{
		Encoding:  opts.Encoding,
		Delimiter: opts.Delimiter,
	})
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", entity, err)
	}

	p := &run{
		entity:   entity,
		opts:     withDefaults(opts),
		mapper:   rowmapper.New(table, table.DecimalStyle(reader.Delimiter())),
		seen:     map[string]bool{},
		estimate: EstimateRows(opts.Size, opts.BytesPerRow),
	}
	p.res = &Result{
		Dataset:   models.Dataset{Entity: entity},
		Delimiter: reader.Delimiter(),
		Unmatched: reader.Unmatched(),
	}

	for {
		row, err := reader.Next()
		if err == io.EOF {
			break
		}
		var parseErr *csv.ParseError
		if stderrors.As(err, &parseErr) {
			p.res.RowsRead++
			p.res.Skipped = append(p.res.Skipped, errors.NewRowError(parseErr.Line, errors.ReasonMalformedRow, parseErr.Err.Error()))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", entity, err)
		}

		p.res.RowsRead++
		p.handle(row)

		if p.res.RowsRead%p.opts.ProgressEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			p.progress()
		}
	}

	if entity == models.EntityPolissen {
		grouped := polisgroup.Group(p.polisRows)
		p.res.Dataset.Polissen = grouped.Polissen
		p.res.Dataset.Dekkingen = grouped.Dekkingen
		p.res.Dataset.Pakketten = grouped.Pakketten
		p.res.Skipped = append(p.res.Skipped, grouped.Skipped...)
	}

	if p.estimate < p.res.RowsRead {
		p.estimate = p.res.RowsRead
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p.progress()
	return p.res, nil
}

type run struct {
	entity    models.EntityType
	opts      Options
	mapper    *rowmapper.Mapper
	seen      map[string]bool
	estimate  int
	polisRows []polisgroup.Row
	res       *Result
}

func (p *run) handle(row csvreader.Row) {
	fields, warnings := p.mapper.Map(row)
	p.res.Warnings = append(p.res.Warnings, warnings...)

	if p.entity == models.EntityPolissen {
		pr := polisgroup.Row{Line: row.Line}
		if err := rowmapper.Bind(fields, &pr.PolisRow); err != nil {
			p.res.Skipped = append(p.res.Skipped, errors.NewRowError(row.Line, errors.ReasonMalformedRow, err.Error()))
			return
		}
		p.polisRows = append(p.polisRows, pr)
		return
	}

	id := p.mapper.Identity(fields)
	if id == "" {
		p.res.Skipped = append(p.res.Skipped, errors.NewRowError(row.Line, errors.ReasonMissingIdentity, "row has no relatienummer"))
		return
	}
	if p.seen[id] {
		p.res.Skipped = append(p.res.Skipped, errors.NewRowError(row.Line, errors.ReasonDuplicate, "relatie already read earlier in the file").
			AddRecordID(id))
		return
	}

	var rel models.Relatie
	if err := rowmapper.Bind(fields, &rel); err != nil {
		p.res.Skipped = append(p.res.Skipped, errors.NewRowError(row.Line, errors.ReasonMalformedRow, err.Error()).AddRecordID(id))
		return
	}
	rel.RelatieType, _ = p.entity.RelatieType()
	p.seen[id] = true
	p.res.Dataset.Relaties = append(p.res.Dataset.Relaties, rel)
}

func (p *run) progress() {
	if p.opts.OnProgress == nil {
		return
	}
	estimate := p.estimate
	if estimate < p.res.RowsRead {
		estimate = p.res.RowsRead
	}
	p.opts.OnProgress(p.res.RowsRead, estimate)
}

func withDefaults(opts Options) Options {
	if opts.BytesPerRow <= 0 {
		opts.BytesPerRow = DefaultBytesPerRow
	}
	if opts.ProgressEvery <= 0 {
		opts.ProgressEvery = DefaultProgressEvery
	}
	return opts
}
