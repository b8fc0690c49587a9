package rowmapper

import (
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/shopspring/decimal"
)

var (
	stringPtr  = reflect.TypeOf((*string)(nil))
	int64Ptr   = reflect.TypeOf((*int64)(nil))
	decimalPtr = reflect.TypeOf((*decimal.Decimal)(nil))
	datePtr    = reflect.TypeOf((*models.Date)(nil))
	stringType = reflect.TypeOf("")
)

type binding struct {
	name  string
	index []int
	// element is set for array fields whose tag holds a %d placeholder.
	element int
	isArray bool
}

var plans sync.Map

// Bind copies fields into the struct pointed to by dest, matching on the
// `field` tag or, when absent, the `db` tag. Array fields tagged with a %d
// placeholder receive name(1) .. name(N).
func Bind(fields Fields, dest any) error {
	rv := reflect.ValueOf(dest)
	if rv.Kind() != reflect.Pointer || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("bind: dest must be a pointer to a struct, got %T", dest)
	}
	rv = rv.Elem()

	for _, b := range planFor(rv.Type()) {
		value, ok := fields[b.name]
		if !ok {
			continue
		}
		target := rv.FieldByIndex(b.index)
		if b.isArray {
			target = target.Index(b.element)
		}
		if err := assign(target, value); err != nil {
			return fmt.Errorf("bind %s: %w", b.name, err)
		}
	}
	return nil
}

// FieldNames lists the field names Bind can fill on v.
func FieldNames(v any) []string {
	t := reflect.TypeOf(v)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	plan := planFor(t)
	out := make([]string, len(plan))
	for i, b := range plan {
		out[i] = b.name
	}
	return out
}

func planFor(t reflect.Type) []binding {
	if cached, ok := plans.Load(t); ok {
		return cached.([]binding)
	}

	var out []binding
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		if !sf.IsExported() {
			continue
		}
		tag := sf.Tag.Get("field")
		if tag == "" {
			tag = strings.Split(sf.Tag.Get("db"), ",")[0]
		}
		if tag == "" || tag == "-" {
			continue
		}

		if sf.Type.Kind() == reflect.Array && strings.Contains(tag, "%d") {
			for n := 0; n < sf.Type.Len(); n++ {
				out = append(out, binding{name: fmt.Sprintf(tag, n+1), index: sf.Index, element: n, isArray: true})
			}
			continue
		}
		out = append(out, binding{name: tag, index: sf.Index})
	}
	plans.Store(t, out)
	return out
}

func assign(target reflect.Value, value any) error {
	switch target.Type() {
	case stringPtr:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		target.Set(reflect.ValueOf(&s))
	case stringType:
		s, ok := value.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T", value)
		}
		target.SetString(s)
	case int64Ptr:
		n, ok := value.(int64)
		if !ok {
			return fmt.Errorf("expected int64, got %T", value)
		}
		target.Set(reflect.ValueOf(&n))
	case decimalPtr:
		d, ok := value.(decimal.Decimal)
		if !ok {
			return fmt.Errorf("expected decimal, got %T", value)
		}
		target.Set(reflect.ValueOf(&d))
	case datePtr:
		d, ok := value.(models.Date)
		if !ok {
			return fmt.Errorf("expected date, got %T", value)
		}
		target.Set(reflect.ValueOf(&d))
	default:
		return fmt.Errorf("unsupported field type %s", target.Type())
	}
	return nil
}
