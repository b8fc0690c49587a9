package relatie

import (
	"context"
	"net/http"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/tulip/internal/testsupport"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRepository(t *testing.T) {
	db := testsupport.StartDatabase(t)
	repo := NewRepository(db, testsupport.Logger())
	ctx := context.Background()

	datum := models.Date("1980-05-12")
	omzet := decimal.RequireFromString("1500000.00")
	require.NoError(t, repo.Insert(ctx, []models.Relatie{
		{ID: "1001", RelatieType: models.RelatieParticulier, Achternaam: ptr("Jansen"), Geboortedatum: &datum},
		{ID: "1002", RelatieType: models.RelatieParticulier, Achternaam: ptr("Smit")},
		{ID: "2001", RelatieType: models.RelatieZakelijk, Achternaam: ptr("Bakkerij BV"), Omzet: &omzet},
	}))

	n, err := repo.Count(ctx, models.RelatieParticulier)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	t.Run("list keeps types apart and scans typed columns", func(t *testing.T) {
		zakelijk, err := repo.List(ctx, models.RelatieZakelijk)
		require.NoError(t, err)
		require.Len(t, zakelijk, 1)
		assert.Equal(t, "2001", zakelijk[0].ID)
		assert.True(t, omzet.Equal(*zakelijk[0].Omzet))
		assert.NotNil(t, zakelijk[0].CreatedAt)

		particulier, err := repo.List(ctx, models.RelatieParticulier)
		require.NoError(t, err)
		require.Len(t, particulier, 2)
		assert.Equal(t, datum, *particulier[0].Geboortedatum)
		assert.Nil(t, particulier[1].Geboortedatum)
	})

	t.Run("insert overwrites on id", func(t *testing.T) {
		require.NoError(t, repo.Insert(ctx, []models.Relatie{
			{ID: "1002", RelatieType: models.RelatieParticulier, Achternaam: ptr("Smid")},
		}))
		particulier, err := repo.List(ctx, models.RelatieParticulier)
		require.NoError(t, err)
		require.Len(t, particulier, 2)
		assert.Equal(t, "Smid", *particulier[1].Achternaam)
	})

	t.Run("insert leaves a relatie of the other type alone", func(t *testing.T) {
		err := repo.Insert(ctx, []models.Relatie{
			{ID: "1003", RelatieType: models.RelatieParticulier, Achternaam: ptr("de Boer")},
			{ID: "2001", RelatieType: models.RelatieParticulier, Achternaam: ptr("Bakker")},
		})
		require.Error(t, err)
		assert.Equal(t, http.StatusConflict, errors.StatusCode(err))
		assert.Equal(t, []string{"2001"}, httperror.ToHTTPError(err).Meta["ids"])

		zakelijk, err := repo.List(ctx, models.RelatieZakelijk)
		require.NoError(t, err)
		require.Len(t, zakelijk, 1)
		assert.Equal(t, "Bakkerij BV", *zakelijk[0].Achternaam, "stored zakelijk row is not overwritten")

		n, err := repo.Count(ctx, models.RelatieParticulier)
		require.NoError(t, err)
		assert.Equal(t, 3, n, "rows without a conflict are still written")
	})

	t.Run("delete only touches one type", func(t *testing.T) {
		deleted, err := repo.DeleteAll(ctx, models.RelatieParticulier)
		require.NoError(t, err)
		assert.Equal(t, int64(3), deleted)

		n, err := repo.Count(ctx, models.RelatieZakelijk)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}
