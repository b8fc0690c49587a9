package importer

import (
	"strconv"
	"testing"

	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplit_Relaties(t *testing.T) {
	for _, n := range []int{0, 1, 499, 500, 501, 1000, 1234} {
		d := models.Dataset{Entity: models.EntityParticulier}
		for i := 0; i < n; i++ {
			d.Relaties = append(d.Relaties, models.Relatie{ID: strconv.Itoa(i)})
		}

		batches := Split(d, 500)
		assert.Len(t, batches, BatchCount(n, 500), "n=%d", n)
		assert.Len(t, batches, (n+499)/500, "n=%d", n)

		var joined []models.Relatie
		for _, b := range batches {
			assert.LessOrEqual(t, len(b.Relaties), 500)
			joined = append(joined, b.Relaties...)
		}
		if n == 0 {
			assert.Empty(t, joined)
			continue
		}
		assert.Equal(t, d.Relaties, joined, "n=%d", n)
	}
}

func TestSplit_PolissenCarryRelatedRows(t *testing.T) {
	pk := func(s string) *string { return &s }
	d := models.Dataset{
		Entity: models.EntityPolissen,
		Polissen: []models.Polis{
			{ID: "1-A", PakketID: pk("PK2")},
			{ID: "1-B"},
			{ID: "2-C", PakketID: pk("PK1")},
		},
		Dekkingen: []models.PolisDekking{
			{PolisID: "2-C", Volgnummer: "1"},
			{PolisID: "1-A", Volgnummer: "1"},
			{PolisID: "1-A", Volgnummer: "2"},
			{PolisID: "1-B", Volgnummer: "1"},
		},
		Pakketten: []models.Pakket{{ID: "PK1"}, {ID: "PK2"}, {ID: "PK-orphan"}},
	}

	batches := Split(d, 2)
	require.Len(t, batches, 2)

	assert.Equal(t, []string{"1-A", "1-B"}, []string{batches[0].Polissen[0].ID, batches[0].Polissen[1].ID})
	assert.Len(t, batches[0].Dekkingen, 3)
	require.Len(t, batches[0].Pakketten, 1)
	assert.Equal(t, "PK2", batches[0].Pakketten[0].ID)

	assert.Len(t, batches[1].Dekkingen, 1)
	require.Len(t, batches[1].Pakketten, 2)
	assert.Equal(t, "PK1", batches[1].Pakketten[0].ID)
	assert.Equal(t, "PK-orphan", batches[1].Pakketten[1].ID)

	assert.Len(t, d.Pakketten, 3)
}

func TestProgressWeights(t *testing.T) {
	assert.Equal(t, 0.0, parsePercent(0, 0))
	assert.Equal(t, 15.0, parsePercent(50, 100))
	assert.Equal(t, 30.0, parsePercent(200, 100))
	assert.Equal(t, 35.0, uploadPercent(0, 4))
	assert.Equal(t, 90.0, uploadPercent(4, 4))
}
