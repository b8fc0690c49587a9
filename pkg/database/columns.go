package database

import (
	"reflect"
	"strings"
	"sync"
)

var columnCache sync.Map

// Columns lists the db tagged fields of a struct type in declaration order,
// minus the excluded ones.
func Columns(v any, exclude ...string) []string {
	all := fieldIndex(reflect.TypeOf(v))
	skip := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		skip[e] = true
	}

	cols := make([]string, 0, len(all))
	for _, f := range all {
		if !skip[f.name] {
			cols = append(cols, f.name)
		}
	}
	return cols
}

// Values returns the field values of v for cols, in the same order.
func Values(v any, cols []string) []any {
	rv := reflect.Indirect(reflect.ValueOf(v))
	byName := map[string][]int{}
	for _, f := range fieldIndex(rv.Type()) {
		byName[f.name] = f.index
	}

	out := make([]any, len(cols))
	for i, col := range cols {
		if idx, ok := byName[col]; ok {
			out[i] = rv.FieldByIndex(idx).Interface()
		}
	}
	return out
}

type taggedField struct {
	name  string
	index []int
}

func fieldIndex(t reflect.Type) []taggedField {
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := columnCache.Load(t); ok {
		return cached.([]taggedField)
	}

	var fields []taggedField
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := strings.Split(sf.Tag.Get("db"), ",")[0]
		if tag == "" || tag == "-" || !sf.IsExported() {
			continue
		}
		fields = append(fields, taggedField{name: tag, index: sf.Index})
	}
	columnCache.Store(t, fields)
	return fields
}
