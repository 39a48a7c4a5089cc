package httpserver

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/anandavicky123/syncertica/internal/domain"
	apperrors "github.com/anandavicky123/syncertica/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerGitHubRoutes(api *echo.Group, csrfMiddleware echo.MiddlewareFunc) {
	gh := api.Group("/github",
		requireRole(domain.ActorManager),
		newRateLimiter(s.config.GitHubRateLimit, s.config.GitHubRateBurst, s.httpMetrics),
	)
	gh.GET("/installation", s.handleGetInstallation)
	gh.POST("/callback", s.handleInstallationCallback, csrfMiddleware)
	gh.POST("/disconnect", s.handleDisconnect, csrfMiddleware)
}

type installationResponse struct {
	Installation *domain.Installation `json:"installation"`
}

func (s *Server) handleGetInstallation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	inst, err := s.installations.ResolveInstallation(c.Request().Context(), actor.ID())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, installationResponse{Installation: inst}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type callbackRequest struct {
	InstallationID json.Number `json:"installation_id" form:"installation_id"`
}

// handleInstallationCallback finishes the GitHub install flow, which reports
// the chosen installation as installation_id.
func (s *Server) handleInstallationCallback(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req callbackRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	installationID, err := strconv.ParseInt(req.InstallationID.String(), 10, 64)
	if err != nil || installationID <= 0 {
		return apperrors.ValidationError("installation_id must be a positive integer").
			WithField("installation_id", req.InstallationID.String())
	}

	inst, err := s.installations.ClaimInstallation(c.Request().Context(), actor.ID(), installationID)
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, installationResponse{Installation: inst}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleDisconnect(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	result, err := s.installations.Release(c.Request().Context(), actor.ID())
	if err != nil {
		return err
	}

	if err := c.JSON(http.StatusOK, result); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
