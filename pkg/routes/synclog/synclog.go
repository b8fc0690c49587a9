package synclog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Ramsey-B/tulip/internal/repositories/synclog"
	"github.com/Ramsey-B/tulip/pkg/models"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/Ramsey-B/tulip/pkg/utils"
	"github.com/labstack/echo/v4"
)

// Reader is the read side of the audit log.
type Reader interface {
	Get(ctx context.Context, id int64) (*models.SyncLog, error)
	List(ctx context.Context, filter synclog.Filter) ([]models.SyncLog, error)
	ListChanges(ctx context.Context, id int64, filter synclog.ChangeFilter) ([]models.SyncWijziging, error)
}

type Handler struct {
	reader Reader
}

func NewHandler(reader Reader) *Handler {
	return &Handler{reader: reader}
}

// Register registers the sync log routes
func (h *Handler) Register(g *echo.Group) {
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.GET("/:id/wijzigingen", h.ListChanges)
}

// List handles GET /sync-logs
func (h *Handler) List(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "SyncLogHandler.List")
	defer span.End()

	filter, err := utils.BindRequest[synclog.Filter](c)
	if err != nil {
		return err
	}
	if filter.TabelNaam != "" {
		if filter.TabelNaam, err = models.ParseEntityType(string(filter.TabelNaam)); err != nil {
			return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
		}
	}

	logs, err := h.reader.List(ctx, filter)
	if err != nil {
		return err
	}
	if logs == nil {
		logs = []models.SyncLog{}
	}
	return c.JSON(http.StatusOK, logs)
}

// Get handles GET /sync-logs/:id
func (h *Handler) Get(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "SyncLogHandler.Get")
	defer span.End()

	id, err := syncID(c)
	if err != nil {
		return err
	}

	log, err := h.reader.Get(ctx, id)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, log)
}

// ListChanges handles GET /sync-logs/:id/wijzigingen
func (h *Handler) ListChanges(c echo.Context) error {
	ctx, span := tracing.StartSpan(c.Request().Context(), "SyncLogHandler.ListChanges")
	defer span.End()

	id, err := syncID(c)
	if err != nil {
		return err
	}
	filter, err := utils.BindRequest[synclog.ChangeFilter](c)
	if err != nil {
		return err
	}

	changes, err := h.reader.ListChanges(ctx, id, filter)
	if err != nil {
		return err
	}
	if changes == nil {
		changes = []models.SyncWijziging{}
	}
	return c.JSON(http.StatusOK, changes)
}

func syncID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, httperror.NewHTTPError(http.StatusBadRequest, "Ongeldig sync id")
	}
	return id, nil
}
