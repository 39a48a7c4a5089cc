package httpserver

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/app"
	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/anandavicky123/syncertica/internal/platform/config"
	"github.com/labstack/echo/v4"
)

type actorResolver interface {
	Session(ctx context.Context, sessionID string) (*domain.Session, error)
	Resolve(ctx context.Context, sessionID string) (domain.Actor, error)
}

type sessionRevoker interface {
	Delete(ctx context.Context, sessionID string) error
}

type installationCoordinator interface {
	ResolveInstallation(ctx context.Context, managerID string) (*domain.Installation, error)
	ClaimInstallation(ctx context.Context, managerID string, installationID int64) (*domain.Installation, error)
	Release(ctx context.Context, managerID string) (*app.ReleaseResult, error)
}

type notificationService interface {
	List(ctx context.Context, actor domain.Actor, limit int) ([]domain.NotificationEvent, error)
	Unread(ctx context.Context, actor domain.Actor) ([]domain.NotificationEvent, error)
	UnreadByConversation(ctx context.Context, actor domain.Actor) (domain.UnreadSummary, error)
	MarkRead(ctx context.Context, actor domain.Actor, notifID string) error
	MarkAllRead(ctx context.Context, actor domain.Actor) (int, error)
	MarkReadFrom(ctx context.Context, actor domain.Actor, counterpartID string) (int, error)
}

type Server struct {
	echo   *echo.Echo
	config *config.Config

	actors        actorResolver
	sessions      sessionRevoker
	installations installationCoordinator
	notifications notificationService

	httpMetrics    *metrics.HTTPMetrics
	metricsHandler http.Handler
	healthChecks   []HealthCheck
	startTime      time.Time
}

func NewServer(
	cfg *config.Config,
	actors actorResolver,
	sessions sessionRevoker,
	installations installationCoordinator,
	notifications notificationService,
	httpMetrics *metrics.HTTPMetrics,
	metricsHandler http.Handler,
	healthChecks []HealthCheck,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	srv := &Server{
		echo:           e,
		config:         cfg,
		actors:         actors,
		sessions:       sessions,
		installations:  installations,
		notifications:  notifications,
		httpMetrics:    httpMetrics,
		metricsHandler: metricsHandler,
		healthChecks:   healthChecks,
		startTime:      time.Now(),
	}

	e.HTTPErrorHandler = srv.handleHTTPError
	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	if err := s.echo.Start(":" + s.config.Port); err != nil {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}
	return nil
}
