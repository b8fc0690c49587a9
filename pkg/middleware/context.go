package middleware

import (
	"context"

	appctx "github.com/Ramsey-B/tulip/pkg/context"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

// Context carries request metadata into the request context so handlers and
// the logger can read it without the echo.Context. Callers may supply their
// own X-Request-ID; it is always returned on the response.
func Context() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			id := requestID(c)
			c.Response().Header().Set(echo.HeaderXRequestID, id)

			c.SetRequest(c.Request().WithContext(seed(c, id)))
			return next(c)
		}
	}
}

func requestID(c echo.Context) string {
	if id := c.Request().Header.Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return uuid.NewString()
}

func seed(c echo.Context, id string) context.Context {
	req := c.Request()
	route := c.Path()
	if route == "" {
		route = req.URL.Path
	}

	ctx := appctx.SetRequestID(req.Context(), id)
	ctx = appctx.SetMethod(ctx, req.Method)
	ctx = appctx.SetRoute(ctx, route)
	return appctx.SetRemoteIP(ctx, c.RealIP())
}
