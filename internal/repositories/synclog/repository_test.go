package synclog

import (
	"context"
	"testing"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/tulip/internal/testsupport"
	"github.com/Ramsey-B/tulip/pkg/database"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestRepository(t *testing.T) {
	db := testsupport.StartDatabase(t)
	repo := NewRepository(db, testsupport.Logger())
	ctx := context.Background()

	log, err := repo.Create(ctx, &models.SyncLog{
		TabelNaam:         models.EntityZakelijk,
		Status:            models.SyncProcessing,
		Strategy:          string(models.ReconcileAndLog),
		RecordsNieuw:      1,
		RecordsVerwijderd: 2,
		UitgevoerdDoor:    ptr("user-1"),
		LockToken:         ptr("token"),
	})
	require.NoError(t, err)
	assert.NotZero(t, log.ID)
	assert.False(t, log.SyncDatum.IsZero())

	t.Run("changes", func(t *testing.T) {
		require.NoError(t, repo.InsertChanges(ctx, []models.SyncWijziging{
			{SyncID: log.ID, SyncDatum: log.SyncDatum, TabelNaam: models.EntityZakelijk, RecordID: "2001", WijzigingType: models.WijzigingNieuw,
				RecordSnapshot: database.NewJSONB(models.Snapshot{"id": "2001"})},
			{SyncID: log.ID, SyncDatum: log.SyncDatum, TabelNaam: models.EntityZakelijk, RecordID: "2002", WijzigingType: models.WijzigingGewijzigd,
				VeldNaam: ptr("achternaam"), OudeWaarde: ptr("Smit"), NieuweWaarde: ptr("Smid")},
		}))

		all, err := repo.ListChanges(ctx, log.ID, ChangeFilter{})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "2001", all[0].RecordSnapshot.Data["id"])

		gewijzigd, err := repo.ListChanges(ctx, log.ID, ChangeFilter{WijzigingType: models.WijzigingGewijzigd})
		require.NoError(t, err)
		require.Len(t, gewijzigd, 1)
		assert.Equal(t, "Smid", *gewijzigd[0].NieuweWaarde)
	})

	t.Run("complete", func(t *testing.T) {
		require.NoError(t, repo.Complete(ctx, log.ID, Completion{RecordsTotaal: 12, BestandNaam: ptr("zakelijk.csv"), DuurSeconden: 3.5}))

		got, err := repo.Get(ctx, log.ID)
		require.NoError(t, err)
		assert.Equal(t, models.SyncSuccess, got.Status)
		assert.Equal(t, 12, got.RecordsTotaal)
		assert.Equal(t, 2, got.RecordsVerwijderd)
		assert.Equal(t, "zakelijk.csv", *got.BestandNaam)
		assert.Nil(t, got.LockToken)

		changed, err := repo.Fail(ctx, log.ID, "too late", nil)
		require.NoError(t, err)
		assert.False(t, changed, "a finished log stays success")
	})

	t.Run("stale and fail", func(t *testing.T) {
		open, err := repo.Create(ctx, &models.SyncLog{TabelNaam: models.EntityPolissen, Status: models.SyncProcessing, Strategy: string(models.ReplaceAll)})
		require.NoError(t, err)

		stale, err := repo.ListStale(ctx, time.Now().Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, stale, 1)
		assert.Equal(t, open.ID, stale[0].ID)

		none, err := repo.ListStale(ctx, time.Now().Add(-time.Hour))
		require.NoError(t, err)
		assert.Empty(t, none)

		changed, err := repo.Fail(ctx, open.ID, "Batch 2 mislukt", ptr(1.25))
		require.NoError(t, err)
		assert.True(t, changed)

		failed, err := repo.List(ctx, Filter{Status: models.SyncError})
		require.NoError(t, err)
		require.Len(t, failed, 1)
		assert.Equal(t, "Batch 2 mislukt", *failed[0].ErrorMessage)
	})

	t.Run("list filters and orders newest first", func(t *testing.T) {
		logs, err := repo.List(ctx, Filter{})
		require.NoError(t, err)
		require.Len(t, logs, 2)
		assert.Equal(t, models.EntityPolissen, logs[0].TabelNaam)

		zakelijk, err := repo.List(ctx, Filter{TabelNaam: models.EntityZakelijk, Limit: 10})
		require.NoError(t, err)
		require.Len(t, zakelijk, 1)
	})

	t.Run("get missing is 404", func(t *testing.T) {
		_, err := repo.Get(ctx, 999999)
		require.Error(t, err)
		assert.True(t, httperror.IsHTTPError(err))
		assert.Equal(t, 404, httperror.GetStatusCode(err))
	})
}

func TestLimit(t *testing.T) {
	assert.Equal(t, DefaultLimit, limit(0))
	assert.Equal(t, 10, limit(10))
	assert.Equal(t, MaxLimit, limit(10000))
}
