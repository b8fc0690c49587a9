// Package health serves liveness, readiness and dependency checks.
package health

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
	StatusDegraded  Status = "degraded"
)

type CheckResult struct {
	Status  Status `json:"status"`
	Message string `json:"message,omitempty"`
	Latency string `json:"latency,omitempty"`
}

type Response struct {
	Status     Status                 `json:"status"`
	Version    string                 `json:"version,omitempty"`
	Uptime     string                 `json:"uptime,omitempty"`
	Checks     map[string]CheckResult `json:"checks,omitempty"`
	ReportedAt time.Time              `json:"reported_at"`
}

// PingFunc reports whether a dependency is reachable.
type PingFunc func(ctx context.Context) error

type dependency struct {
	ping PingFunc
	// optional dependencies only degrade the service
	optional bool
}

type Checker struct {
	deps      map[string]dependency
	startTime time.Time
	version   string
	timeout   time.Duration
	mu        sync.RWMutex
	ready     bool
}

func NewChecker(version string) *Checker {
	return &Checker{
		deps:      map[string]dependency{},
		startTime: time.Now(),
		version:   version,
		timeout:   5 * time.Second,
	}
}

// Require registers a dependency whose failure makes the service unhealthy.
func (c *Checker) Require(name string, ping PingFunc) *Checker {
	return c.register(name, dependency{ping: ping})
}

// Optional registers a dependency whose failure only degrades the service.
func (c *Checker) Optional(name string, ping PingFunc) *Checker {
	return c.register(name, dependency{ping: ping, optional: true})
}

func (c *Checker) register(name string, dep dependency) *Checker {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.deps[name] = dep
	return c
}

func (c *Checker) snapshot() map[string]dependency {
	c.mu.RLock()
	defer c.mu.RUnlock()
	deps := make(map[string]dependency, len(c.deps))
	for name, dep := range c.deps {
		deps[name] = dep
	}
	return deps
}

func (c *Checker) SetReady(ready bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ready = ready
}

func (c *Checker) IsReady() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.ready
}

// LivenessHandler answers as long as the process serves requests.
func (c *Checker) LivenessHandler(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, Response{
		Status:     StatusHealthy,
		Version:    c.version,
		Uptime:     c.uptime(),
		ReportedAt: time.Now(),
	})
}

// ReadinessHandler fails until SetReady(true) and whenever a required
// dependency is down.
func (c *Checker) ReadinessHandler(ctx echo.Context) error {
	if !c.IsReady() {
		return ctx.JSON(http.StatusServiceUnavailable, Response{
			Status:     StatusUnhealthy,
			Version:    c.version,
			ReportedAt: time.Now(),
			Checks: map[string]CheckResult{
				"startup": {Status: StatusUnhealthy, Message: "service is still starting up"},
			},
		})
	}
	return c.HealthHandler(ctx)
}

func (c *Checker) HealthHandler(ctx echo.Context) error {
	resp := c.Check(ctx.Request().Context())
	statusCode := http.StatusOK
	if resp.Status == StatusUnhealthy {
		statusCode = http.StatusServiceUnavailable
	}
	return ctx.JSON(statusCode, resp)
}

// Check pings every dependency.
func (c *Checker) Check(ctx context.Context) Response {
	deps := c.snapshot()
	names := make([]string, 0, len(deps))
	for name := range deps {
		names = append(names, name)
	}
	sort.Strings(names)

	checks := make(map[string]CheckResult, len(names))
	overall := StatusHealthy
	for _, name := range names {
		dep := deps[name]
		result := c.ping(ctx, dep.ping)
		if result.Status == StatusUnhealthy && dep.optional {
			result.Status = StatusDegraded
		}
		checks[name] = result

		switch {
		case result.Status == StatusUnhealthy:
			overall = StatusUnhealthy
		case result.Status == StatusDegraded && overall == StatusHealthy:
			overall = StatusDegraded
		}
	}

	return Response{
		Status:     overall,
		Version:    c.version,
		Uptime:     c.uptime(),
		Checks:     checks,
		ReportedAt: time.Now(),
	}
}

func (c *Checker) ping(ctx context.Context, ping PingFunc) CheckResult {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := ping(ctx); err != nil {
		return CheckResult{Status: StatusUnhealthy, Message: err.Error(), Latency: time.Since(start).String()}
	}
	return CheckResult{Status: StatusHealthy, Latency: time.Since(start).String()}
}

func (c *Checker) uptime() string {
	return time.Since(c.startTime).Round(time.Second).String()
}

// RegisterRoutes registers health check routes under /api/v1
func (c *Checker) RegisterRoutes(e *echo.Echo) {
	health := e.Group("/api/v1/health")
	health.GET("", c.HealthHandler)
	health.GET("/live", c.LivenessHandler)
	health.GET("/ready", c.ReadinessHandler)
}
