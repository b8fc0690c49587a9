package rowmapper

import (
	"strings"
	"testing"

	"github.com/Ramsey-B/tulip/pkg/columns"
	"github.com/Ramsey-B/tulip/pkg/csvreader"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func readRows(t *testing.T, table *columns.Table, content string) (*csvreader.Reader, []csvreader.Row) {
	t.Helper()
	r, err := csvreader.NewReader(strings.NewReader(content), table.Headers(), csvreader.Options{Encoding: csvreader.EncodingUTF8})
	require.NoError(t, err)

	var rows []csvreader.Row
	for {
		row, err := r.Next()
		if err != nil {
			break
		}
		rows = append(rows, row)
	}
	return r, rows
}

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"  Jansen ", "Jansen", true},
		{"NL01BANK0123456789;", "NL01BANK0123456789", true},
		{"abc ; ", "abc", true},
		{"a;;", "a;", true},
		{";", "", false},
		{"   ", "", false},
	}
	for _, tt := range tests {
		got, ok := Clean(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestMapper_Map_Particulier(t *testing.T) {
	table := columns.MustLoad(models.EntityParticulier)
	content := "Relatie->Relatienummer;Relatie->Achternaam;Relatie->Geboortedatum;Relatie->Aantal kinderen relatie;PolisTotaalJaar->Incassoprovisie to;Relatie->Postcode\n" +
		"1001;Jansen ;3-nov-64;2;1.234,56;\n" +
		"1002;de Vries;geen datum;;12,5;1234 AB;\n"
	r, rows := readRows(t, table, content)
	require.Len(t, rows, 2)

	m := New(table, table.DecimalStyle(r.Delimiter()))

	fields, warnings := m.Map(rows[0])
	assert.Empty(t, warnings)
	assert.Equal(t, "1001", fields["id"])
	assert.Equal(t, "Jansen", fields["achternaam"])
	assert.Equal(t, models.Date("1964-11-03"), fields["geboortedatum"])
	assert.Equal(t, int64(2), fields["aantal_kinderen"])
	assert.True(t, decimal.RequireFromString("1234.56").Equal(fields["incassoprovisie_totaal"].(decimal.Decimal)))
	assert.NotContains(t, fields, "postcode")
	assert.Equal(t, "1001", m.Identity(fields))

	fields, warnings = m.Map(rows[1])
	require.Len(t, warnings, 1)
	assert.Equal(t, errors.ReasonInvalidValue, warnings[0].Reason)
	assert.Equal(t, "geboortedatum", warnings[0].Field)
	assert.Equal(t, "1002", warnings[0].RecordID)
	assert.Equal(t, 3, warnings[0].Line)
	assert.NotContains(t, fields, "geboortedatum")
	assert.Equal(t, "1234 AB", fields["postcode"])
}

func TestMapper_PlainDecimals(t *testing.T) {
	table := columns.MustLoad(models.EntityPolissen)
	content := "Polis->Relatienummer,Polis->Polisnummer,DekkingJaar->Netto premie (=excl.ko\n" +
		"123,POL1,412.80\n"
	r, rows := readRows(t, table, content)
	require.Len(t, rows, 1)
	require.Equal(t, columns.DecimalPlain, table.DecimalStyle(r.Delimiter()))

	fields, warnings := New(table, columns.DecimalPlain).Map(rows[0])
	assert.Empty(t, warnings)
	assert.Equal(t, "412.8", fields["dekking_premie_netto"].(decimal.Decimal).String())
	assert.Equal(t, "123-POL1", New(table, columns.DecimalPlain).Identity(fields))
}

func TestMapper_IdentityMissing(t *testing.T) {
	table := columns.MustLoad(models.EntityPolissen)
	m := New(table, columns.DecimalPlain)
	assert.Equal(t, "", m.Identity(Fields{"relatie_id": "123"}))
	assert.Equal(t, "", m.Identity(Fields{"polisnummer": "POL1"}))
}

func TestBind(t *testing.T) {
	fields := Fields{
		"id":               "1001",
		"achternaam":       "Jansen",
		"geboortedatum":    models.Date("1964-11-03"),
		"aantal_kinderen":  int64(2),
		"omzet":            decimal.RequireFromString("1500.25"),
		"not_on_the_model": "x",
	}

	var r models.Relatie
	require.NoError(t, Bind(fields, &r))
	assert.Equal(t, "1001", r.ID)
	require.NotNil(t, r.Achternaam)
	assert.Equal(t, "Jansen", *r.Achternaam)
	assert.Equal(t, models.Date("1964-11-03"), *r.Geboortedatum)
	assert.Equal(t, int64(2), *r.AantalKinderen)
	assert.Equal(t, "1500.25", r.Omzet.String())
	assert.Nil(t, r.Woonplaats)
}

func TestBind_ArrayPlaceholders(t *testing.T) {
	var row models.PolisRow
	require.NoError(t, Bind(Fields{
		"clausule_1_code":  "C1",
		"clausule_1_oms":   "Eerste",
		"clausule_10_code": "C10",
	}, &row))

	require.NotNil(t, row.ClausuleCodes[0])
	assert.Equal(t, "C1", *row.ClausuleCodes[0])
	assert.Equal(t, "Eerste", *row.ClausuleOmschrijvingen[0])
	assert.Equal(t, "C10", *row.ClausuleCodes[9])
	assert.Nil(t, row.ClausuleCodes[1])
}

func TestBind_Errors(t *testing.T) {
	var r models.Relatie
	assert.Error(t, Bind(Fields{}, r))
	assert.Error(t, Bind(Fields{"aantal_kinderen": "twee"}, &r))
}

func TestEveryColumnBinds(t *testing.T) {
	targets := map[models.EntityType]any{
		models.EntityParticulier: models.Relatie{},
		models.EntityZakelijk:    models.Relatie{},
		models.EntityPolissen:    models.PolisRow{},
	}

	for entity, target := range targets {
		t.Run(string(entity), func(t *testing.T) {
			names := map[string]bool{}
			for _, n := range FieldNames(target) {
				names[n] = true
			}
			for _, col := range columns.MustLoad(entity).Columns {
				assert.True(t, names[col.Field], "column %q maps to unknown field %q", col.Header, col.Field)
			}
		})
	}
}
