package imports

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/middleware"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = ectologger.NewEctoLogger(func(ectologger.EctoLogMessage) {})

type fakeStore struct {
	begun     []importer.BeginRequest
	batches   []models.Dataset
	batchNums []int
	finished  []importer.Completion
	failed    []string
	sessions  []*importer.Session
	err       error
}

func (s *fakeStore) Begin(_ context.Context, req importer.BeginRequest) (*importer.Session, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.begun = append(s.begun, req)
	return &importer.Session{ID: 7, Entity: req.Entity, StartedAt: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}, nil
}

func (s *fakeStore) SendBatch(_ context.Context, session *importer.Session, batch models.Dataset, n int) error {
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, session)
	s.batches = append(s.batches, batch)
	s.batchNums = append(s.batchNums, n)
	return nil
}

func (s *fakeStore) Finish(_ context.Context, session *importer.Session, done importer.Completion) error {
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, session)
	s.finished = append(s.finished, done)
	return nil
}

func (s *fakeStore) Fail(_ context.Context, session *importer.Session, reason string, _ float64) error {
	if s.err != nil {
		return s.err
	}
	s.sessions = append(s.sessions, session)
	s.failed = append(s.failed, reason)
	return nil
}

type fakeRunner struct {
	req    importer.Request
	body   string
	result *importer.Result
	err    error
}

func (r *fakeRunner) Run(_ context.Context, req importer.Request, _ importer.ProgressFunc) (*importer.Result, error) {
	r.req = req
	b, _ := io.ReadAll(req.File)
	r.body = string(b)
	return r.result, r.err
}

func newServer(store importer.Store, runner Runner) *echo.Echo {
	e := echo.New()
	e.HTTPErrorHandler = middleware.Error(testLogger)
	e.Use(middleware.Context(), middleware.HeaderAuth())
	g := e.Group("/api/v1/imports", middleware.RequireImportRole())
	NewHandler(store, runner, 0, testLogger).Register(g)
	return e
}

func post(e *echo.Echo, path, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set(middleware.HeaderUserID, "u-1")
	req.Header.Set(middleware.HeaderUserRole, "uploader")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestStart(t *testing.T) {
	store := &fakeStore{}
	e := newServer(store, nil)

	rec := post(e, "/api/v1/imports/polissen/start", `{"fileName": "polissen.csv"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[StartResponse](t, rec)
	assert.Equal(t, int64(7), resp.SyncID)
	assert.Equal(t, "polissen", resp.TabelNaam)

	require.Len(t, store.begun, 1)
	assert.Equal(t, models.EntityPolissen, store.begun[0].Entity)
	assert.Equal(t, models.ReplaceAll, store.begun[0].Strategy)
	assert.Equal(t, "polissen.csv", store.begun[0].FileName)
	assert.Equal(t, importer.Actor{ID: "u-1", Role: models.RoleUploader}, store.begun[0].Actor)
}

func TestStart_Errors(t *testing.T) {
	t.Run("unknown entity", func(t *testing.T) {
		rec := post(newServer(&fakeStore{}, nil), "/api/v1/imports/klanten/start", `{}`)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("import running", func(t *testing.T) {
		store := &fakeStore{err: errors.ImportRunning("polissen")}
		rec := post(newServer(store, nil), "/api/v1/imports/polissen/start", `{}`)
		assert.Equal(t, http.StatusConflict, rec.Code)

		resp := decode[middleware.ErrorResponse](t, rec)
		assert.Equal(t, errors.MsgImportRunning, resp.Message)
		assert.Equal(t, "polissen", resp.Meta["tabel_naam"])
	})

	t.Run("role without import rights", func(t *testing.T) {
		e := newServer(&fakeStore{}, nil)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/imports/polissen/start", nil)
		req.Header.Set(middleware.HeaderUserID, "u-2")
		req.Header.Set(middleware.HeaderUserRole, "user")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})
}

func TestBatch(t *testing.T) {
	t.Run("relaties", func(t *testing.T) {
		store := &fakeStore{}
		rec := post(newServer(store, nil), "/api/v1/imports/relaties-zakelijk/batch",
			`{"syncId": 7, "batch": 2, "records": [{"id": "1"}, {"id": "2"}]}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		resp := decode[BatchResponse](t, rec)
		assert.Equal(t, BatchResponse{Success: true, Batch: 2, Inserted: 2}, resp)

		require.Len(t, store.batches, 1)
		assert.Equal(t, models.EntityZakelijk, store.batches[0].Entity)
		assert.Len(t, store.batches[0].Relaties, 2)
		assert.Equal(t, []int{2}, store.batchNums)
		assert.Equal(t, int64(7), store.sessions[0].ID)
	})

	t.Run("polissen", func(t *testing.T) {
		store := &fakeStore{}
		rec := post(newServer(store, nil), "/api/v1/imports/polissen/batch", `{
			"syncId": 7, "batch": 1,
			"polissen": [{"id": "1-P1", "polisnummer": "P1", "relatie_id": "1"}],
			"dekkingen": [{"polis_id": "1-P1", "volgnummer": "1"}, {"polis_id": "1-P1", "volgnummer": "2"}],
			"pakketten": [{"id": "K1"}]
		}`)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		require.Len(t, store.batches, 1)
		batch := store.batches[0]
		assert.Len(t, batch.Polissen, 1)
		assert.Len(t, batch.Dekkingen, 2)
		assert.Len(t, batch.Pakketten, 1)
		assert.Equal(t, 1, decode[BatchResponse](t, rec).Inserted)
	})

	t.Run("missing sync id", func(t *testing.T) {
		rec := post(newServer(&fakeStore{}, nil), "/api/v1/imports/polissen/batch", `{"polissen": [{"id": "1-P1"}]}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("empty batch", func(t *testing.T) {
		rec := post(newServer(&fakeStore{}, nil), "/api/v1/imports/polissen/batch", `{"syncId": 7, "batch": 1}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.MsgNoRecords, decode[middleware.ErrorResponse](t, rec).Message)
	})

	t.Run("expired session", func(t *testing.T) {
		store := &fakeStore{err: errors.SessionExpired(7)}
		rec := post(newServer(store, nil), "/api/v1/imports/polissen/batch",
			`{"syncId": 7, "batch": 3, "polissen": [{"id": "1-P1"}]}`)
		assert.Equal(t, http.StatusConflict, rec.Code)

		resp := decode[middleware.ErrorResponse](t, rec)
		assert.Equal(t, errors.MsgSessionExpired, resp.Message)
		assert.Equal(t, "7", resp.Meta["sync_id"])
	})
}

func TestFinish(t *testing.T) {
	store := &fakeStore{}
	rec := post(newServer(store, nil), "/api/v1/imports/polissen/finish", `{
		"syncId": 7, "totalRecords": 2, "totalDekkingen": 3, "totalPakketten": 1,
		"fileName": "polissen.csv", "duurSeconden": 4.5
	}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, StatusResponse{Success: true, SyncID: 7}, decode[StatusResponse](t, rec))

	require.Len(t, store.finished, 1)
	done := store.finished[0]
	assert.Equal(t, 6, done.Total())
	assert.Equal(t, "polissen.csv", done.FileName)
	assert.Equal(t, 4.5, done.DuurSeconden)
	assert.Equal(t, models.EntityPolissen, store.sessions[0].Entity)

	rec = post(newServer(store, nil), "/api/v1/imports/polissen/finish", `{"syncId": 7, "totalRecords": -1}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestFail(t *testing.T) {
	store := &fakeStore{}
	e := newServer(store, nil)

	rec := post(e, "/api/v1/imports/relaties-particulier/fail", `{"syncId": 7, "error": "Batch 2 mislukt: timeout"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = post(e, "/api/v1/imports/relaties-particulier/fail", `{"syncId": 7}`)
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, []string{"Batch 2 mislukt: timeout", errors.MsgUnknown}, store.failed)
}

func upload(e *echo.Echo, path string, fields map[string]string, content string) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		_ = w.WriteField(k, v)
	}
	if content != "" {
		part, _ := w.CreateFormFile("file", "export.csv")
		_, _ = part.Write([]byte(content))
	}
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set(middleware.HeaderUserID, "u-1")
	req.Header.Set(middleware.HeaderUserRole, "admin")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestUpload(t *testing.T) {
	csv := "Relatie->Relatienummer,Relatie->Achternaam\n1,Smit\n"

	t.Run("runs the pipeline", func(t *testing.T) {
		runner := &fakeRunner{result: &importer.Result{Success: true, Totaal: 1, SyncID: 9, Strategy: models.ReconcileAndLog}}
		rec := upload(newServer(&fakeStore{}, runner), "/api/v1/imports/relaties-zakelijk",
			map[string]string{"fileName": "zakelijk.csv"}, csv)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		res := decode[importer.Result](t, rec)
		assert.True(t, res.Success)
		assert.Equal(t, int64(9), res.SyncID)

		assert.Equal(t, models.EntityZakelijk, runner.req.Entity)
		assert.Equal(t, "zakelijk.csv", runner.req.FileName)
		assert.Equal(t, int64(len(csv)), runner.req.Size)
		assert.Equal(t, csv, runner.body)
		assert.Equal(t, models.RoleAdmin, runner.req.Actor.Role)
		assert.Empty(t, runner.req.Strategy)
	})

	t.Run("file name defaults to the upload name", func(t *testing.T) {
		runner := &fakeRunner{result: &importer.Result{Success: true}}
		rec := upload(newServer(&fakeStore{}, runner), "/api/v1/imports/polissen",
			map[string]string{"strategy": "reconcile_and_log"}, csv)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "export.csv", runner.req.FileName)
		assert.Equal(t, models.ReconcileAndLog, runner.req.Strategy)
	})

	t.Run("failed import returns the result with the error status", func(t *testing.T) {
		runner := &fakeRunner{
			result: &importer.Result{Success: false, Error: errors.MsgNoRecords},
			err:    errors.NoRecords(),
		}
		rec := upload(newServer(&fakeStore{}, runner), "/api/v1/imports/polissen", nil, csv)
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		res := decode[importer.Result](t, rec)
		assert.False(t, res.Success)
		assert.Equal(t, errors.MsgNoRecords, res.Error)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := upload(newServer(&fakeStore{}, &fakeRunner{}), "/api/v1/imports/polissen",
			map[string]string{"fileName": "x.csv"}, "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, errors.MsgNoFile, decode[middleware.ErrorResponse](t, rec).Message)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		rec := upload(newServer(&fakeStore{}, &fakeRunner{}), "/api/v1/imports/polissen",
			map[string]string{"strategy": "append"}, csv)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}
