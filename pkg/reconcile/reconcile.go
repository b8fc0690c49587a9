// Package reconcile diffs a complete incoming record set against the stored
// set of the same entity type.
package reconcile

import (
	"database/sql/driver"
	"fmt"
	"reflect"
	"strconv"

	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/fingerprint"
	"github.com/shopspring/decimal"
)

// SystemFields never take part in a comparison.
var SystemFields = map[string]bool{
	"created_at": true,
	"updated_at": true,
}

type Keyed interface {
	Key() string
}

// FieldChange is one differing field. A nil side means the field was empty.
type FieldChange struct {
	Field string  `json:"field"`
	Old   *string `json:"old"`
	New   *string `json:"new"`
}

type Changed[T Keyed] struct {
	Existing T
	Incoming T
	Changes  []FieldChange
}

// Result partitions the union of existing and incoming keys. Nieuw,
// Gewijzigd and Ongewijzigd follow incoming order, Verwijderd follows
// existing order.
type Result[T Keyed] struct {
	Nieuw       []T
	Gewijzigd   []Changed[T]
	Verwijderd  []T
	Ongewijzigd []T
}

// Reconcile classifies every record by key. Incoming is taken to be the full
// current state, so any stored key missing from it counts as removed. Only
// the first record per key on either side is considered.
func Reconcile[T Keyed](existing, incoming []T) Result[T] {
	var res Result[T]

	stored := make(map[string]T, len(existing))
	for _, e := range existing {
		if _, dup := stored[e.Key()]; !dup {
			stored[e.Key()] = e
		}
	}

	seen := make(map[string]bool, len(incoming))
	for _, in := range incoming {
		key := in.Key()
		if seen[key] {
			continue
		}
		seen[key] = true

		old, ok := stored[key]
		if !ok {
			res.Nieuw = append(res.Nieuw, in)
			continue
		}

		if changes := Compare(old, in); len(changes) > 0 {
			res.Gewijzigd = append(res.Gewijzigd, Changed[T]{Existing: old, Incoming: in, Changes: changes})
		} else {
			res.Ongewijzigd = append(res.Ongewijzigd, in)
		}
	}

	done := make(map[string]bool, len(stored))
	for _, e := range existing {
		key := e.Key()
		if seen[key] || done[key] {
			continue
		}
		done[key] = true
		res.Verwijderd = append(res.Verwijderd, e)
	}
	return res
}

// Compare returns the fields whose normalized values differ between two
// records of the same type, in column order.
func Compare(existing, incoming any) []FieldChange {
	oldValues := Normalize(existing)
	newValues := Normalize(incoming)
	if !fingerprint.HasChanged(fingerprint.Generate(oldValues), fingerprint.Generate(newValues)) {
		return nil
	}

	var changes []FieldChange
	for _, col := range comparedColumns(incoming) {
		o, n := oldValues[col], newValues[col]
		if equal(o, n) {
			continue
		}
		changes = append(changes, FieldChange{Field: col, Old: toPtr(o), New: toPtr(n)})
	}
	return changes
}

// Normalize maps every compared db column of record to its canonical string
// form, or nil when empty. Empty strings and nulls are indistinguishable.
func Normalize(record any) map[string]any {
	cols := comparedColumns(record)
	values := database.Values(record, cols)

	out := make(map[string]any, len(cols))
	for i, col := range cols {
		out[col] = normalizeValue(values[i])
	}
	return out
}

func comparedColumns(record any) []string {
	exclude := make([]string, 0, len(SystemFields))
	for f := range SystemFields {
		exclude = append(exclude, f)
	}
	return database.Columns(record, exclude...)
}

func normalizeValue(v any) any {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() {
		return nil
	}
	if rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return nil
		}
		rv = rv.Elem()
	}

	switch x := rv.Interface().(type) {
	case decimal.Decimal:
		return x.String()
	case driver.Valuer:
		val, err := x.Value()
		if err != nil || val == nil {
			return nil
		}
		return emptyToNil(fmt.Sprint(val))
	}

	switch rv.Kind() {
	case reflect.String:
		return emptyToNil(rv.String())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'f', -1, 64)
	case reflect.Bool:
		return strconv.FormatBool(rv.Bool())
	}
	return emptyToNil(fmt.Sprint(rv.Interface()))
}

func emptyToNil(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.(string) == b.(string)
}

func toPtr(v any) *string {
	if v == nil {
		return nil
	}
	s := v.(string)
	return &s
}
