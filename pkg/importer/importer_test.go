package importer

import (
	"bytes"
	"context"
	"encoding/csv"
	stderrors "errors"
	"net/http"
	"strconv"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/columns"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/reconcile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin   = Actor{ID: "u-1", Role: models.RoleAdmin}
	testLog = ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})
)

type fakeStore struct {
	existing  models.Dataset
	begin     *BeginRequest
	diff      *reconcile.Diff
	batches   []models.Dataset
	finished  *Completion
	failed    string
	failBatch int
	beginErr  error
	onBatch   func(n int)
	// skipReconcile makes Begin ignore BeginRequest.Reconcile.
	skipReconcile bool
	// calls records the store methods in the order they ran.
	calls []string
}

// Begin takes the lock, then reads the stored set for a reconcile the way
// the server does.
func (s *fakeStore) Begin(ctx context.Context, req BeginRequest) (*Session, error) {
	s.calls = append(s.calls, "lock")
	if s.beginErr != nil {
		return nil, s.beginErr
	}
	s.begin = &req
	session := &Session{ID: 42, Entity: req.Entity}
	if req.Reconcile != nil && !s.skipReconcile {
		existing, err := s.Existing(ctx, req.Entity)
		if err != nil {
			return nil, err
		}
		s.diff = req.Reconcile(existing)
		session.Diff = s.diff
	}
	s.calls = append(s.calls, "clear")
	return session, nil
}

func (s *fakeStore) SendBatch(_ context.Context, _ *Session, batch models.Dataset, n int) error {
	if s.onBatch != nil {
		s.onBatch(n)
	}
	if n == s.failBatch {
		return stderrors.New("connection reset")
	}
	s.batches = append(s.batches, batch)
	return nil
}

func (s *fakeStore) Finish(_ context.Context, _ *Session, done Completion) error {
	s.finished = &done
	return nil
}

func (s *fakeStore) Fail(_ context.Context, _ *Session, reason string, _ float64) error {
	s.failed = reason
	return nil
}

func (s *fakeStore) Existing(_ context.Context, _ models.EntityType) (models.Dataset, error) {
	s.calls = append(s.calls, "existing")
	return s.existing, nil
}

func relatiesFile(t *testing.T, entity models.EntityType, ids ...string) []byte {
	t.Helper()
	table := columns.MustLoad(entity)
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Comma = ';'
	require.NoError(t, w.Write(table.Headers()))
	for _, id := range ids {
		record := make([]string, len(table.Columns))
		for i, col := range table.Columns {
			switch col.Field {
			case "id":
				record[i] = id
			case "achternaam":
				record[i] = "Naam " + id
			}
		}
		require.NoError(t, w.Write(record))
	}
	w.Flush()
	return buf.Bytes()
}

func ids(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = strconv.Itoa(i + 1)
	}
	return out
}

func request(entity models.EntityType, file []byte) Request {
	return Request{
		Entity:   entity,
		Actor:    admin,
		FileName: "export.csv",
		File:     bytes.NewReader(file),
		Size:     int64(len(file)),
	}
}

func TestRun_ReplaceAll(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(store, Config{Encoding: "utf-8"}, testLog)

	var events []Progress
	res, err := p.Run(context.Background(), request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier, ids(1001)...)), func(pr Progress) {
		events = append(events, pr)
	})
	require.NoError(t, err)

	assert.True(t, res.Success)
	assert.Equal(t, 1001, res.Totaal)
	assert.Equal(t, int64(42), res.SyncID)
	assert.Equal(t, models.ReplaceAll, res.Strategy)
	assert.Nil(t, res.Counts)

	require.Len(t, store.batches, 3)
	assert.Len(t, store.batches[0].Relaties, 500)
	assert.Len(t, store.batches[2].Relaties, 1)
	assert.Equal(t, "1001", store.batches[2].Relaties[0].ID)
	assert.Nil(t, store.begin.Reconcile)
	assert.Equal(t, []string{"lock", "clear"}, store.calls)
	assert.Equal(t, Completion{Records: 1001, FileName: "export.csv", DuurSeconden: store.finished.DuurSeconden}, *store.finished)
	assert.Empty(t, store.failed)

	last := events[len(events)-1]
	assert.Equal(t, PhaseDone, last.Phase)
	assert.Equal(t, 100.0, last.Percent)
	assert.Equal(t, 3, last.BatchesSent)
	assert.Equal(t, 3, last.TotalBatches)

	var phases []Phase
	for _, e := range events {
		if len(phases) == 0 || phases[len(phases)-1] != e.Phase {
			phases = append(phases, e.Phase)
		}
		assert.GreaterOrEqual(t, e.Percent, 0.0)
		assert.LessOrEqual(t, e.Percent, 100.0)
	}
	assert.Equal(t, []Phase{PhaseParsing, PhaseStarting, PhaseUploading, PhaseFinishing, PhaseDone}, phases)
}

func TestRun_ReconcileAndLog(t *testing.T) {
	name := "Naam 1"
	store := &fakeStore{existing: models.Dataset{
		Entity: models.EntityZakelijk,
		Relaties: []models.Relatie{
			{ID: "1", RelatieType: models.RelatieZakelijk, Achternaam: &name},
			{ID: "9", RelatieType: models.RelatieZakelijk},
		},
	}}
	p := NewPipeline(store, Config{Encoding: "utf-8"}, testLog)

	res, err := p.Run(context.Background(), request(models.EntityZakelijk, relatiesFile(t, models.EntityZakelijk, "1", "2")), nil)
	require.NoError(t, err)

	assert.Equal(t, models.ReconcileAndLog, res.Strategy)
	require.NotNil(t, res.Counts)
	assert.Equal(t, reconcile.Counts{Nieuw: 1, Verwijderd: 1, Ongewijzigd: 1}, *res.Counts)
	require.NotNil(t, store.diff)
	assert.Len(t, store.diff.Entries, 2)
	require.Len(t, store.batches, 1)
	assert.Len(t, store.batches[0].Relaties, 2)
}

func TestRun_ReconcileReadsStoredSetUnderLock(t *testing.T) {
	store := &fakeStore{existing: models.Dataset{
		Entity:   models.EntityZakelijk,
		Relaties: []models.Relatie{{ID: "1", RelatieType: models.RelatieZakelijk}},
	}}
	p := NewPipeline(store, Config{Encoding: "utf-8"}, testLog)

	res, err := p.Run(context.Background(), request(models.EntityZakelijk, relatiesFile(t, models.EntityZakelijk, "1", "2")), nil)
	require.NoError(t, err)

	// the stored set is read once, after the lock and before the clear
	assert.Equal(t, []string{"lock", "existing", "clear"}, store.calls)
	require.NotNil(t, res.Counts)
	assert.Same(t, &store.diff.Counts, res.Counts)
	assert.Equal(t, 1, res.Counts.Nieuw)
}

func TestRun_ReconcileFailsSessionWithoutDiff(t *testing.T) {
	store := &fakeStore{skipReconcile: true}
	p := NewPipeline(store, Config{Encoding: "utf-8"}, testLog)

	res, err := p.Run(context.Background(), request(models.EntityZakelijk, relatiesFile(t, models.EntityZakelijk, "1")), nil)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.NotEmpty(t, store.failed)
	assert.Empty(t, store.batches)
	assert.Nil(t, store.finished)
}

func TestRun_ReconcileNeedsReconcilingStore(t *testing.T) {
	store := &fakeStore{}
	p := NewPipeline(struct{ Store }{store}, Config{Encoding: "utf-8"}, testLog)

	res, err := p.Run(context.Background(), request(models.EntityZakelijk, relatiesFile(t, models.EntityZakelijk, "1")), nil)
	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Nil(t, store.begin)
}

func TestRun_RefusesActors(t *testing.T) {
	for name, tc := range map[string]struct {
		actor  Actor
		status int
	}{
		"anonymous": {Actor{}, http.StatusUnauthorized},
		"user role": {Actor{ID: "u-2", Role: models.RoleUser}, http.StatusForbidden},
	} {
		t.Run(name, func(t *testing.T) {
			store := &fakeStore{}
			req := request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier, "1"))
			req.Actor = tc.actor

			res, err := NewPipeline(store, Config{Encoding: "utf-8"}, testLog).Run(context.Background(), req, nil)
			require.Error(t, err)
			assert.Equal(t, tc.status, errors.StatusCode(err))
			assert.False(t, res.Success)
			assert.Nil(t, store.begin)
		})
	}
}

func TestRun_ZeroRecordsNeverBegins(t *testing.T) {
	store := &fakeStore{}
	res, err := NewPipeline(store, Config{Encoding: "utf-8"}, testLog).
		Run(context.Background(), request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier)), nil)

	require.Error(t, err)
	assert.Equal(t, errors.MsgNoRecords, res.Error)
	assert.Nil(t, store.begin)
}

func TestRun_BatchFailureMarksSession(t *testing.T) {
	store := &fakeStore{failBatch: 2}
	var last Progress
	res, err := NewPipeline(store, Config{BatchSize: 2, Encoding: "utf-8"}, testLog).
		Run(context.Background(), request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier, ids(5)...)), func(p Progress) { last = p })

	require.Error(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, "Batch 2 mislukt: connection reset", res.Error)
	assert.Equal(t, res.Error, store.failed)
	assert.Len(t, store.batches, 1)
	assert.Nil(t, store.finished)
	assert.Equal(t, PhaseError, last.Phase)
	assert.Equal(t, 1, last.BatchesSent)
}

func TestRun_CancelBetweenBatches(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := &fakeStore{onBatch: func(n int) {
		if n == 1 {
			cancel()
		}
	}}

	_, err := NewPipeline(store, Config{BatchSize: 2, Encoding: "utf-8"}, testLog).
		Run(ctx, request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier, ids(5)...)), nil)

	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, store.batches, 1)
	assert.NotEmpty(t, store.failed)
}

func TestRun_BeginFailure(t *testing.T) {
	store := &fakeStore{beginErr: errors.ImportRunning("relaties_particulier")}
	res, err := NewPipeline(store, Config{Encoding: "utf-8"}, testLog).
		Run(context.Background(), request(models.EntityParticulier, relatiesFile(t, models.EntityParticulier, "1")), nil)

	require.Error(t, err)
	assert.Equal(t, http.StatusConflict, errors.StatusCode(err))
	assert.Contains(t, res.Error, errors.MsgStartFailed)
	assert.Empty(t, store.failed)
}
