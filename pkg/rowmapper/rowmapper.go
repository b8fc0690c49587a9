// Package rowmapper applies a column table to raw csv rows.
package rowmapper

import (
	"strings"

	"github.com/Ramsey-B/tulip/pkg/columns"
	"github.com/Ramsey-B/tulip/pkg/csvreader"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/locale"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/shopspring/decimal"
)

// Fields is one mapped row keyed by canonical field name. Values are string,
// int64, decimal.Decimal or models.Date; absent fields are not in the map.
type Fields map[string]any

func (f Fields) String(name string) (string, bool) {
	v, ok := f[name].(string)
	return v, ok
}

type Mapper struct {
	table    *columns.Table
	decimals columns.DecimalStyle
}

func New(table *columns.Table, decimals columns.DecimalStyle) *Mapper {
	return &Mapper{table: table, decimals: decimals}
}

// Map converts row into Fields. Values that fail to parse are left out and
// reported as warnings; the row itself is kept.
func (m *Mapper) Map(row csvreader.Row) (Fields, []*errors.RowError) {
	fields := make(Fields, len(m.table.Columns))
	var warnings []*errors.RowError

	for _, col := range m.table.Columns {
		raw, ok := row.Get(col.Header)
		if !ok {
			continue
		}
		value, ok := Clean(raw)
		if !ok {
			continue
		}

		parsed, ok := m.parse(col.Kind, value)
		if !ok {
			warnings = append(warnings, errors.NewRowErrorf(row.Line, errors.ReasonInvalidValue, "cannot parse %q as %s", value, col.Kind).
				AddField(col.Field).
				AddValue(value))
			continue
		}
		fields[col.Field] = parsed
	}

	if len(warnings) > 0 {
		id := m.Identity(fields)
		for _, w := range warnings {
			w.AddRecordID(id)
		}
	}
	return fields, warnings
}

// Identity joins the identity fields of the table, empty when any is missing.
func (m *Mapper) Identity(fields Fields) string {
	parts := make([]string, 0, len(m.table.Identity))
	for _, name := range m.table.Identity {
		v, ok := fields.String(name)
		if !ok || v == "" {
			return ""
		}
		parts = append(parts, v)
	}
	return strings.Join(parts, "-")
}

func (m *Mapper) parse(kind columns.Kind, value string) (any, bool) {
	switch kind {
	case columns.KindDate:
		d, ok := locale.ParseDate(value)
		return models.Date(d), ok
	case columns.KindInteger:
		return locale.ParseInteger(value)
	case columns.KindDecimal:
		var (
			d  decimal.Decimal
			ok bool
		)
		if m.decimals == columns.DecimalPlain {
			d, ok = locale.ParseDecimal(value)
		} else {
			d, ok = locale.ParseDutchDecimal(value)
		}
		return d, ok
	}
	return value, true
}

// Clean trims value and strips one trailing semicolon left by the export.
// ok is false when nothing remains.
func Clean(value string) (string, bool) {
	value = strings.TrimSpace(value)
	if strings.HasSuffix(value, ";") {
		value = strings.TrimSpace(strings.TrimSuffix(value, ";"))
	}
	return value, value != ""
}
