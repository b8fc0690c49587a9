// Package imports serves the import endpoints: a synchronous upload that runs
// the whole pipeline server side, and the batch protocol used by remote
// clients that parse the export themselves.
package imports

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/tulip/pkg/context"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/importer"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/Ramsey-B/tulip/pkg/utils"
	"github.com/labstack/echo/v4"
)

const DefaultMaxUploadBytes = 200 << 20

// Runner runs one import end to end.
type Runner interface {
	Run(ctx context.Context, req importer.Request, onProgress importer.ProgressFunc) (*importer.Result, error)
}

type Handler struct {
	store          importer.Store
	runner         Runner
	maxUploadBytes int64
	logger         ectologger.Logger
}

func NewHandler(store importer.Store, runner Runner, maxUploadBytes int64, logger ectologger.Logger) *Handler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}
	return &Handler{store: store, runner: runner, maxUploadBytes: maxUploadBytes, logger: logger}
}

// Register mounts the routes on g, normally /api/v1/imports behind the
// import role gate.
func (h *Handler) Register(g *echo.Group) {
	g.POST("/:entity", h.Upload)
	g.POST("/:entity/start", h.Start)
	g.POST("/:entity/batch", h.Batch)
	g.POST("/:entity/finish", h.Finish)
	g.POST("/:entity/fail", h.Fail)
}

type StartRequest struct {
	Entity   string `param:"entity" validate:"required"`
	FileName string `json:"fileName"`
}

type StartResponse struct {
	SyncID    int64     `json:"syncId"`
	TabelNaam string    `json:"tabelNaam"`
	StartedAt time.Time `json:"startedAt"`
}

// BatchRequest carries one batch. Relatie exports fill Records, the polissen
// export fills Polissen with the Dekkingen and Pakketten they reference.
type BatchRequest struct {
	Entity    string                `param:"entity" validate:"required"`
	SyncID    int64                 `json:"syncId" validate:"required"`
	Batch     int                   `json:"batch" validate:"min=0"`
	Records   []models.Relatie      `json:"records"`
	Polissen  []models.Polis        `json:"polissen"`
	Dekkingen []models.PolisDekking `json:"dekkingen"`
	Pakketten []models.Pakket       `json:"pakketten"`
}

type BatchResponse struct {
	Success  bool `json:"success"`
	Batch    int  `json:"batch"`
	Inserted int  `json:"inserted"`
}

type FinishRequest struct {
	Entity         string  `param:"entity" validate:"required"`
	SyncID         int64   `json:"syncId" validate:"required"`
	TotalRecords   int     `json:"totalRecords" validate:"min=0"`
	TotalDekkingen int     `json:"totalDekkingen" validate:"min=0"`
	TotalPakketten int     `json:"totalPakketten" validate:"min=0"`
	FileName       string  `json:"fileName"`
	DuurSeconden   float64 `json:"duurSeconden" validate:"min=0"`
}

type FailRequest struct {
	Entity       string  `param:"entity" validate:"required"`
	SyncID       int64   `json:"syncId" validate:"required"`
	Error        string  `json:"error"`
	DuurSeconden float64 `json:"duurSeconden" validate:"min=0"`
}

type StatusResponse struct {
	Success bool  `json:"success"`
	SyncID  int64 `json:"syncId"`
}

// Upload handles POST /:entity with a multipart file. The response body is
// the import result, also when the import failed.
func (h *Handler) Upload(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ImportsHandler.Upload")
	defer span.End()

	entity, err := models.ParseEntityType(c.Param("entity"))
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}

	var strategy models.ImportStrategy
	if s := c.FormValue("strategy"); s != "" {
		if strategy, err = models.ParseImportStrategy(s); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return errors.NoFile()
	}
	if fh.Size > h.maxUploadBytes {
		return httperror.NewHTTPError(http.StatusRequestEntityTooLarge, "Bestand is te groot")
	}
	file, err := fh.Open()
	if err != nil {
		return errors.NoFile()
	}
	defer file.Close()

	fileName := c.FormValue("fileName")
	if fileName == "" {
		fileName = fh.Filename
	}

	res, err := h.runner.Run(ctx, importer.Request{
		Entity:   entity,
		Actor:    actor(ctx),
		FileName: fileName,
		File:     file,
		Size:     fh.Size,
		Strategy: strategy,
	}, nil)
	if err != nil {
		return c.JSON(errors.StatusCode(err), res)
	}
	return c.JSON(http.StatusOK, res)
}

// Start handles POST /:entity/start. The batch protocol always replaces the
// stored records. Store errors are returned as they are; the calling pipeline
// adds the phase to the message.
func (h *Handler) Start(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ImportsHandler.Start")
	defer span.End()

	req, err := utils.BindRequest[StartRequest](c)
	if err != nil {
		return err
	}
	entity, err := models.ParseEntityType(req.Entity)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}

	session, err := h.store.Begin(ctx, importer.BeginRequest{
		Entity:   entity,
		Actor:    actor(ctx),
		FileName: req.FileName,
		Strategy: models.ReplaceAll,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StartResponse{
		SyncID:    session.ID,
		TabelNaam: session.Entity.String(),
		StartedAt: session.StartedAt,
	})
}

// Batch handles POST /:entity/batch.
func (h *Handler) Batch(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ImportsHandler.Batch")
	defer span.End()

	req, err := utils.BindRequest[BatchRequest](c)
	if err != nil {
		return err
	}
	entity, err := models.ParseEntityType(req.Entity)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}

	batch := models.Dataset{
		Entity:    entity,
		Relaties:  req.Records,
		Polissen:  req.Polissen,
		Dekkingen: req.Dekkingen,
		Pakketten: req.Pakketten,
	}
	if batch.Len() == 0 {
		return errors.NoRecords()
	}

	session := &importer.Session{ID: req.SyncID, Entity: entity}
	if err := h.store.SendBatch(ctx, session, batch, req.Batch); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, BatchResponse{Success: true, Batch: req.Batch, Inserted: batch.Len()})
}

// Finish handles POST /:entity/finish.
func (h *Handler) Finish(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ImportsHandler.Finish")
	defer span.End()

	req, err := utils.BindRequest[FinishRequest](c)
	if err != nil {
		return err
	}
	entity, err := models.ParseEntityType(req.Entity)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}

	session := &importer.Session{ID: req.SyncID, Entity: entity}
	err = h.store.Finish(ctx, session, importer.Completion{
		Records:      req.TotalRecords,
		Dekkingen:    req.TotalDekkingen,
		Pakketten:    req.TotalPakketten,
		FileName:     req.FileName,
		DuurSeconden: req.DuurSeconden,
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, StatusResponse{Success: true, SyncID: req.SyncID})
}

// Fail handles POST /:entity/fail. Failing a session that is already closed
// is not an error.
func (h *Handler) Fail(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "ImportsHandler.Fail")
	defer span.End()

	req, err := utils.BindRequest[FailRequest](c)
	if err != nil {
		return err
	}
	entity, err := models.ParseEntityType(req.Entity)
	if err != nil {
		return httperror.NewHTTPError(http.StatusNotFound, err.Error())
	}

	reason := req.Error
	if reason == "" {
		reason = errors.MsgUnknown
	}
	session := &importer.Session{ID: req.SyncID, Entity: entity}
	if err := h.store.Fail(ctx, session, reason, req.DuurSeconden); err != nil {
		return err
	}

	h.logger.WithContext(ctx).WithFields(map[string]any{
		"tabel_naam": entity.String(),
		"sync_id":    req.SyncID,
	}).Warn("Import marked as failed by client")

	return c.JSON(http.StatusOK, StatusResponse{Success: true, SyncID: req.SyncID})
}

func actor(ctx context.Context) importer.Actor {
	return importer.Actor{
		ID:   appctx.GetUserID(ctx),
		Role: models.Role(appctx.GetRole(ctx)),
	}
}
