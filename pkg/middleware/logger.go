package middleware

import (
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"
	appctx "github.com/Ramsey-B/tulip/pkg/context"
	"github.com/labstack/echo/v4"
)

// Logger writes one line per request. Probes and scrapes log at debug, 5xx
// responses at error.
func Logger(logger ectologger.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			if err := next(c); err != nil {
				c.Error(err)
			}

			req := c.Request()
			res := c.Response()
			ctx := req.Context()

			fields := appctx.Fields(ctx)
			fields["uri"] = req.RequestURI
			fields["status"] = res.Status
			fields["duration_ms"] = time.Since(start).Milliseconds()
			fields["request_size"] = req.ContentLength
			fields["response_size"] = res.Size
			if entity := c.Param("entity"); entity != "" {
				fields["tabel_naam"] = entity
			}

			log := logger.WithContext(ctx).WithFields(fields)
			switch {
			case res.Status >= http.StatusInternalServerError:
				log.Error("Request failed")
			case quiet(c.Path()):
				log.Debug("Request")
			default:
				log.Info("Request")
			}
			return nil
		}
	}
}

func quiet(route string) bool {
	return route == "/metrics" || strings.HasPrefix(route, "/api/v1/health")
}
