package httpserver

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/anandavicky123/syncertica/internal/domain"
	apperrors "github.com/anandavicky123/syncertica/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

func (s *Server) registerNotificationRoutes(api *echo.Group, csrfMiddleware echo.MiddlewareFunc) {
	n := api.Group("/notifications")
	n.GET("", s.handleListNotifications)
	n.GET("/unread", s.handleUnreadNotifications)
	n.GET("/unread-by-conversation", s.handleUnreadByConversation)
	n.PATCH("/:id/read", s.handleMarkRead, csrfMiddleware)
	n.POST("/mark-all-read", s.handleMarkAllRead, csrfMiddleware)
	n.POST("/mark-read-sender", s.handleMarkReadFrom, csrfMiddleware)
}

type notificationsResponse struct {
	Notifications []domain.NotificationEvent `json:"notifications"`
}

type markedResponse struct {
	Marked int `json:"marked"`
}

func (s *Server) handleListNotifications(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	limit := 0
	if raw := c.QueryParam("limit"); raw != "" {
		limit, err = strconv.Atoi(raw)
		if err != nil {
			return apperrors.ValidationError("limit must be an integer").WithField("limit", raw)
		}
	}

	events, err := s.notifications.List(c.Request().Context(), actor, limit)
	if err != nil {
		return err
	}
	return sendNotifications(c, events)
}

func (s *Server) handleUnreadNotifications(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	events, err := s.notifications.Unread(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	return sendNotifications(c, events)
}

// handleUnreadByConversation keys the counts by worker for managers and by sender for workers.
func (s *Server) handleUnreadByConversation(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	summary, err := s.notifications.UnreadByConversation(c.Request().Context(), actor)
	if err != nil {
		return err
	}

	key := "bySender"
	if actor.IsManager() {
		key = "byWorker"
	}
	resp := map[string]any{
		key:     summary.ByCounterpart,
		"total": summary.Total,
	}
	if err := c.JSON(http.StatusOK, resp); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func (s *Server) handleMarkRead(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	notifID := strings.TrimSpace(c.Param("id"))
	if notifID == "" {
		return apperrors.ValidationError("notification id is required")
	}

	if err := s.notifications.MarkRead(c.Request().Context(), actor, notifID); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	n, err := s.notifications.MarkAllRead(c.Request().Context(), actor)
	if err != nil {
		return err
	}
	if err := c.JSON(http.StatusOK, markedResponse{Marked: n}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

type markReadFromRequest struct {
	SenderID string `json:"senderId" form:"senderId"`
}

func (s *Server) handleMarkReadFrom(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}

	var req markReadFromRequest
	if err := c.Bind(&req); err != nil {
		return apperrors.ValidationError("malformed request body")
	}
	if strings.TrimSpace(req.SenderID) == "" {
		return apperrors.ValidationError("senderId is required")
	}

	n, err := s.notifications.MarkReadFrom(c.Request().Context(), actor, req.SenderID)
	if err != nil {
		return err
	}
	if err := c.JSON(http.StatusOK, markedResponse{Marked: n}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}

func sendNotifications(c echo.Context, events []domain.NotificationEvent) error {
	if events == nil {
		events = []domain.NotificationEvent{}
	}
	if err := c.JSON(http.StatusOK, notificationsResponse{Notifications: events}); err != nil {
		return fmt.Errorf("failed to send JSON response: %w", err)
	}
	return nil
}
