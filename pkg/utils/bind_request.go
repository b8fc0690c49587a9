package utils

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
)

// BindRequest binds path params, query string and JSON body into T and
// validates the result. Both failures surface as 400 with the reason in meta.
func BindRequest[T any](c echo.Context) (T, error) {
	var req T

	if err := c.Bind(&req); err != nil {
		return req, badRequest("Ongeldig verzoek", err)
	}

	req, err := Validate(req)
	if err != nil {
		return req, badRequest("Validatie mislukt", err)
	}

	return req, nil
}

func badRequest(msg string, cause error) error {
	r := reason(cause)
	return httperror.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("%s: %s", msg, r)).AddMetaValue("reason", r)
}

func reason(err error) string {
	if he, ok := err.(*echo.HTTPError); ok {
		if he.Internal != nil {
			return he.Internal.Error()
		}
		return fmt.Sprint(he.Message)
	}
	return err.Error()
}
