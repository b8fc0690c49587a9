package middleware

import (
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/tulip/pkg/context"
	"github.com/Ramsey-B/tulip/pkg/errors"
	"github.com/Ramsey-B/tulip/pkg/tracing"
	"github.com/labstack/echo/v4"
)

// ErrorResponse is the body of every failed request. Error repeats Message
// for portal clients that read that key.
type ErrorResponse struct {
	Message   string         `json:"message"`
	Error     string         `json:"error"`
	RequestID string         `json:"request_id"`
	TraceID   string         `json:"trace_id"`
	Meta      map[string]any `json:"meta"`
}

// Error renders err as an ErrorResponse. Errors that carry no status are
// reported as 500 with a generic message so internals do not leak.
func Error(logger ectologger.Logger) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}
		ctx := c.Request().Context()
		code, message, meta := describe(err)

		log := logger.WithContext(ctx).WithError(err).WithField("status", code)
		if code >= http.StatusInternalServerError {
			log.Error("Request returned an error")
		} else {
			log.Warn("Request returned an error")
		}

		_ = c.JSON(code, ErrorResponse{
			Message:   message,
			Error:     message,
			RequestID: appctx.GetRequestID(ctx),
			TraceID:   tracing.GetTraceID(ctx),
			Meta:      meta,
		})
	}
}

func describe(err error) (int, string, map[string]any) {
	meta := map[string]any{}

	if httperror.IsHTTPError(err) {
		for k, v := range httperror.ToHTTPError(err).Meta {
			meta[k] = v
		}
		return errors.StatusCode(err), errors.Message(err), meta
	}

	if he, ok := err.(*echo.HTTPError); ok {
		message := http.StatusText(he.Code)
		if msg, ok := he.Message.(string); ok {
			message = msg
		}
		return he.Code, message, meta
	}

	return http.StatusInternalServerError, errors.MsgUnknown, meta
}
