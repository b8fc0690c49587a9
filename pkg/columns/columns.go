// Package columns holds the header to field mapping tables of the legacy
// export. The tables are data files under tables/; supporting a new export
// variant means editing YAML, not code.
package columns

import (
	"embed"
	"fmt"
	"sync"

	"github.com/Ramsey-B/tulip/pkg/models"
	"gopkg.in/yaml.v3"
)

//go:embed tables/*.yaml
var tableFS embed.FS

type Kind string

const (
	KindString  Kind = "string"
	KindDate    Kind = "date"
	KindInteger Kind = "integer"
	KindDecimal Kind = "decimal"
)

// DecimalStyle says how decimal columns are written in a file.
type DecimalStyle string

const (
	DecimalDutch DecimalStyle = "dutch"
	DecimalPlain DecimalStyle = "plain"
	// DecimalAuto follows the delimiter: plain for ',' files, Dutch for ';' files.
	DecimalAuto DecimalStyle = "auto"
)

type Column struct {
	Header string `yaml:"header"`
	Field  string `yaml:"field"`
	Kind   Kind   `yaml:"kind"`
}

type Table struct {
	Entity   models.EntityType `yaml:"entity"`
	Identity []string          `yaml:"identity"`
	Decimals DecimalStyle      `yaml:"decimals"`
	Columns  []Column          `yaml:"columns"`

	byField map[string]Column
}

var (
	loadOnce sync.Once
	tables   map[models.EntityType]*Table
	loadErr  error
)

// Load returns the mapping table for entity.
func Load(entity models.EntityType) (*Table, error) {
	loadOnce.Do(func() {
		tables, loadErr = loadAll()
	})
	if loadErr != nil {
		return nil, loadErr
	}

	t, ok := tables[entity]
	if !ok {
		return nil, fmt.Errorf("no column table for entity %q", entity)
	}
	return t, nil
}

func MustLoad(entity models.EntityType) *Table {
	t, err := Load(entity)
	if err != nil {
		panic(err)
	}
	return t
}

func loadAll() (map[models.EntityType]*Table, error) {
	entries, err := tableFS.ReadDir("tables")
	if err != nil {
		return nil, err
	}

	out := make(map[models.EntityType]*Table, len(entries))
	for _, entry := range entries {
		b, err := tableFS.ReadFile("tables/" + entry.Name())
		if err != nil {
			return nil, err
		}
		t, err := Parse(b)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", entry.Name(), err)
		}
		out[t.Entity] = t
	}
	return out, nil
}

// Parse decodes and validates one table document.
func Parse(b []byte) (*Table, error) {
	var t Table
	if err := yaml.Unmarshal(b, &t); err != nil {
		return nil, err
	}
	if _, err := models.ParseEntityType(string(t.Entity)); err != nil {
		return nil, err
	}
	if t.Decimals == "" {
		t.Decimals = DecimalDutch
	}
	switch t.Decimals {
	case DecimalDutch, DecimalPlain, DecimalAuto:
	default:
		return nil, fmt.Errorf("unknown decimal style %q", t.Decimals)
	}

	t.byField = make(map[string]Column, len(t.Columns))
	seenHeaders := make(map[string]bool, len(t.Columns))
	for i := range t.Columns {
		c := &t.Columns[i]
		if c.Header == "" || c.Field == "" {
			return nil, fmt.Errorf("column %d: header and field are required", i)
		}
		if c.Kind == "" {
			c.Kind = KindString
		}
		switch c.Kind {
		case KindString, KindDate, KindInteger, KindDecimal:
		default:
			return nil, fmt.Errorf("column %q: unknown kind %q", c.Header, c.Kind)
		}
		if seenHeaders[c.Header] {
			return nil, fmt.Errorf("column %q: duplicate header", c.Header)
		}
		if _, dup := t.byField[c.Field]; dup {
			return nil, fmt.Errorf("column %q: field %q mapped twice", c.Header, c.Field)
		}
		seenHeaders[c.Header] = true
		t.byField[c.Field] = *c
	}

	for _, id := range t.Identity {
		if _, ok := t.byField[id]; !ok {
			return nil, fmt.Errorf("identity field %q has no column", id)
		}
	}
	return &t, nil
}

// Headers lists the expected export headers in table order.
func (t *Table) Headers() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Header
	}
	return out
}

func (t *Table) Field(name string) (Column, bool) {
	c, ok := t.byField[name]
	return c, ok
}

// DecimalStyle resolves the decimal notation for a file with the given delimiter.
func (t *Table) DecimalStyle(delimiter rune) DecimalStyle {
	if t.Decimals != DecimalAuto {
		return t.Decimals
	}
	if delimiter == ';' {
		return DecimalDutch
	}
	return DecimalPlain
}
