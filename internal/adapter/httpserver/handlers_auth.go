package httpserver

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func (s *Server) registerAuthRoutes(api *echo.Group, csrfMiddleware echo.MiddlewareFunc) {
	api.GET("/auth/session", s.handleSession, csrfMiddleware)
	api.POST("/auth/logout", s.handleLogout, csrfMiddleware)
}

type sessionResponse struct {
	Actor     domain.Actor `json:"actor"`
	ExpiresAt time.Time    `json:"expiresAt"`
	CSRFToken string       `json:"csrfToken,omitempty"`
}

func (s *Server) handleSession(c echo.Context) error {
	sessionID, _ := c.Get(contextKeySessionID).(string)

	session, err := s.actors.Session(c.Request().Context(), sessionID)
	if err != nil {
		return err
	}

	resp := sessionResponse{Actor: session.Actor, ExpiresAt: session.ExpiresAt}
	if token, ok := c.Get(middleware.DefaultCSRFConfig.ContextKey).(string); ok {
		resp.CSRFToken = token
	}

	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleLogout(c echo.Context) error {
	sessionID, _ := c.Get(contextKeySessionID).(string)

	if err := s.sessions.Delete(c.Request().Context(), sessionID); err != nil {
		return fmt.Errorf("failed to revoke session: %w", err)
	}

	c.SetCookie(&http.Cookie{
		Name:     s.config.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.config.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})

	if actor, err := actorFrom(c); err == nil {
		slog.InfoContext(c.Request().Context(), "Session revoked", "actor", actor.String())
	}

	return c.NoContent(http.StatusNoContent)
}
