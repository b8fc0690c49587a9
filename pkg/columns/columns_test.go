package columns

import (
	"testing"

	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_AllEntityTables(t *testing.T) {
	counts := map[models.EntityType]int{
		models.EntityParticulier: 45,
		models.EntityZakelijk:    60,
		models.EntityPolissen:    67,
	}

	for _, entity := range models.EntityTypes {
		t.Run(string(entity), func(t *testing.T) {
			table, err := Load(entity)
			require.NoError(t, err)
			assert.Equal(t, entity, table.Entity)
			assert.Len(t, table.Columns, counts[entity])
			assert.Len(t, table.Headers(), counts[entity])
			for _, id := range table.Identity {
				_, ok := table.Field(id)
				assert.True(t, ok, "identity %s", id)
			}
		})
	}
}

func TestLoad_FieldKinds(t *testing.T) {
	particulier := MustLoad(models.EntityParticulier)
	c, ok := particulier.Field("geboortedatum")
	require.True(t, ok)
	assert.Equal(t, "Relatie->Geboortedatum", c.Header)
	assert.Equal(t, KindDate, c.Kind)

	c, _ = particulier.Field("incassoprovisie_totaal")
	assert.Equal(t, KindDecimal, c.Kind)

	c, _ = particulier.Field("achternaam")
	assert.Equal(t, KindString, c.Kind)

	zakelijk := MustLoad(models.EntityZakelijk)
	c, ok = zakelijk.Field("aantal_personenautos")
	require.True(t, ok)
	assert.Equal(t, "Relatie->Aantal personenauto's", c.Header)
	assert.Equal(t, KindInteger, c.Kind)

	polissen := MustLoad(models.EntityPolissen)
	assert.Equal(t, []string{"relatie_id", "polisnummer"}, polissen.Identity)
	_, hasFour := polissen.Field("voorwaarde_4")
	assert.False(t, hasFour)
	c, _ = polissen.Field("termijn")
	assert.Equal(t, KindInteger, c.Kind)
}

func TestTable_DecimalStyle(t *testing.T) {
	polissen := MustLoad(models.EntityPolissen)
	assert.Equal(t, DecimalPlain, polissen.DecimalStyle(','))
	assert.Equal(t, DecimalDutch, polissen.DecimalStyle(';'))

	zakelijk := MustLoad(models.EntityZakelijk)
	assert.Equal(t, DecimalDutch, zakelijk.DecimalStyle(','))
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown entity", "entity: klanten\ncolumns:\n  - header: a\n    field: id\n"},
		{"unknown kind", "entity: polissen\ncolumns:\n  - header: a\n    field: id\n    kind: money\n"},
		{"duplicate field", "entity: polissen\ncolumns:\n  - header: a\n    field: id\n  - header: b\n    field: id\n"},
		{"missing identity column", "entity: polissen\nidentity: [polisnummer]\ncolumns:\n  - header: a\n    field: id\n"},
		{"bad decimals", "entity: polissen\ndecimals: roman\ncolumns: []\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.doc))
			assert.Error(t, err)
		})
	}
}
