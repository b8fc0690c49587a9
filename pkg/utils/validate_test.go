package utils

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type finishBody struct {
	SyncID       int64   `json:"syncId" validate:"required"`
	TotalRecords int     `json:"totalRecords" validate:"min=0"`
	DuurSeconden float64 `json:"duurSeconden"`
}

func TestValidate(t *testing.T) {
	_, err := Validate(finishBody{SyncID: 1})
	assert.NoError(t, err)

	_, err = Validate(finishBody{TotalRecords: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "veld 'SyncID': regel 'required' niet voldaan")
	assert.Contains(t, err.Error(), "regel 'min=0'")
}

func TestValidateValue(t *testing.T) {
	assert.NoError(t, ValidateValue("polissen", "oneof=polissen relaties_zakelijk"))
	assert.Error(t, ValidateValue("x", "oneof=polissen relaties_zakelijk"))
}

func TestBindRequest(t *testing.T) {
	e := echo.New()
	bind := func(body string) (finishBody, error) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return BindRequest[finishBody](e.NewContext(req, httptest.NewRecorder()))
	}

	v, err := bind(`{"syncId": 12, "totalRecords": 3, "duurSeconden": 1.5}`)
	require.NoError(t, err)
	assert.Equal(t, int64(12), v.SyncID)

	_, err = bind(`{"totalRecords": 3}`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))

	_, err = bind(`{not json`)
	require.Error(t, err)
	assert.Equal(t, http.StatusBadRequest, httperror.GetStatusCode(err))
}
