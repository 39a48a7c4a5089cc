package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/anandavicky123/syncertica/internal/platform/version"
	"github.com/labstack/echo/v4"
	"golang.org/x/sync/errgroup"
)

const (
	startupCheckTimeout   = 2 * time.Second
	readinessCheckTimeout = 5 * time.Second
)

const (
	statusReady     = "ready"
	statusDegraded  = "degraded"
	statusUnhealthy = "unhealthy"
)

// HealthCheck is one dependency check, e.g. "postgres" or "redis".
// Optional checks report a degraded state but never fail the endpoint: without
// GitHub, sessions and notifications still work.
type HealthCheck struct {
	Name     string
	Check    func(ctx context.Context) error
	Timeout  time.Duration // zero means the endpoint deadline
	Optional bool
}

type checkResult struct {
	Status   string `json:"status"`
	Error    string `json:"error,omitempty"`
	Optional bool   `json:"optional,omitempty"`
}

type healthResponse struct {
	Status string                 `json:"status"`
	Checks map[string]checkResult `json:"checks,omitempty"`
}

func (s *Server) registerHealthRoutes() {
	s.echo.GET("/health/startup", s.handleStartup)
	s.echo.GET("/health/live", s.handleLiveness)
	s.echo.GET("/health/ready", s.handleReadiness)
	s.echo.GET("/version", s.handleVersion)
}

// handleStartup only waits for the stores; GitHub is not needed to boot.
func (s *Server) handleStartup(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), startupCheckTimeout)
	defer cancel()

	var required []HealthCheck
	for _, hc := range s.healthChecks {
		if !hc.Optional {
			required = append(required, hc)
		}
	}
	return writeHealth(c, runHealthChecks(ctx, required))
}

func (s *Server) handleLiveness(c echo.Context) error {
	response := map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(s.startTime).Seconds(),
	}
	if err := c.JSON(http.StatusOK, response); err != nil {
		return fmt.Errorf("failed to write liveness response: %w", err)
	}

	return nil
}

func (s *Server) handleReadiness(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), readinessCheckTimeout)
	defer cancel()

	return writeHealth(c, runHealthChecks(ctx, s.healthChecks))
}

// runHealthChecks runs every check concurrently so one slow dependency does
// not eat the budget of the others.
func runHealthChecks(ctx context.Context, checks []HealthCheck) healthResponse {
	var (
		mu      sync.Mutex
		results = make(map[string]checkResult, len(checks))
		g       errgroup.Group
	)
	for _, hc := range checks {
		hc := hc
		g.Go(func() error {
			res := runHealthCheck(ctx, hc)
			mu.Lock()
			results[hc.Name] = res
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := statusReady
	for _, res := range results {
		switch {
		case res.Status == "ok":
		case !res.Optional:
			status = statusUnhealthy
		case status == statusReady:
			status = statusDegraded
		}
	}
	return healthResponse{Status: status, Checks: results}
}

func runHealthCheck(ctx context.Context, hc HealthCheck) checkResult {
	if hc.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hc.Timeout)
		defer cancel()
	}

	if err := hc.Check(ctx); err != nil {
		slog.WarnContext(ctx, "Health check failed", "check", hc.Name, "optional", hc.Optional, "error", err)
		return checkResult{Status: "failed", Error: err.Error(), Optional: hc.Optional}
	}
	return checkResult{Status: "ok", Optional: hc.Optional}
}

func writeHealth(c echo.Context, resp healthResponse) error {
	code := http.StatusOK
	if resp.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	if err := c.JSON(code, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleVersion(c echo.Context) error {
	if err := c.JSON(http.StatusOK, version.Get()); err != nil {
		return fmt.Errorf("failed to write version response: %w", err)
	}
	return nil
}
