package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ok(context.Context) error   { return nil }
func down(context.Context) error { return errors.New("connection refused") }

func get(t *testing.T, c *Checker, path string) (int, Response) {
	t.Helper()
	e := echo.New()
	c.RegisterRoutes(e)

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	var resp Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec.Code, resp
}

func TestReadiness_WaitsForStartup(t *testing.T) {
	c := NewChecker("test").Require("database", ok)

	code, resp := get(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Contains(t, resp.Checks, "startup")

	c.SetReady(true)
	code, resp = get(t, c, "/api/v1/health/ready")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusHealthy, resp.Status)
}

func TestHealth_OptionalDependencyDegrades(t *testing.T) {
	c := NewChecker("test").Require("database", ok).Optional("kafka", down)

	code, resp := get(t, c, "/api/v1/health")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, StatusDegraded, resp.Status)
	assert.Equal(t, StatusDegraded, resp.Checks["kafka"].Status)
	assert.Equal(t, "connection refused", resp.Checks["kafka"].Message)
}

func TestHealth_RequiredDependencyFails(t *testing.T) {
	c := NewChecker("test").Require("database", down).Optional("redis", ok)

	code, resp := get(t, c, "/api/v1/health")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, StatusUnhealthy, resp.Status)
}

func TestLiveness(t *testing.T) {
	code, resp := get(t, NewChecker("1.2.3").Require("database", down), "/api/v1/health/live")
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "1.2.3", resp.Version)
}
