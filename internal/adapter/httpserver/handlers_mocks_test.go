package httpserver

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/anandavicky123/syncertica/internal/app"
	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/anandavicky123/syncertica/internal/platform/config"
	"github.com/labstack/echo/v4"
)

// --- Mock implementations ---

type mockActorResolver struct {
	sessions map[string]domain.Actor
	err      error
}

func (m *mockActorResolver) Session(_ context.Context, sessionID string) (*domain.Session, error) {
	if m.err != nil {
		return nil, m.err
	}
	actor, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrUnauthenticated
	}
	return &domain.Session{
		ID:        sessionID,
		Actor:     actor,
		ExpiresAt: time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockActorResolver) Resolve(ctx context.Context, sessionID string) (domain.Actor, error) {
	session, err := m.Session(ctx, sessionID)
	if err != nil {
		return domain.Actor{}, err
	}
	return session.Actor, nil
}

type mockSessionRevoker struct {
	deleteFn func(ctx context.Context, sessionID string) error
	deleted  []string
}

func (m *mockSessionRevoker) Delete(ctx context.Context, sessionID string) error {
	m.deleted = append(m.deleted, sessionID)
	if m.deleteFn != nil {
		return m.deleteFn(ctx, sessionID)
	}
	return nil
}

type mockCoordinator struct {
	resolveFn func(ctx context.Context, managerID string) (*domain.Installation, error)
	claimFn   func(ctx context.Context, managerID string, installationID int64) (*domain.Installation, error)
	releaseFn func(ctx context.Context, managerID string) (*app.ReleaseResult, error)
}

func (m *mockCoordinator) ResolveInstallation(ctx context.Context, managerID string) (*domain.Installation, error) {
	if m.resolveFn != nil {
		return m.resolveFn(ctx, managerID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCoordinator) ClaimInstallation(ctx context.Context, managerID string, installationID int64) (*domain.Installation, error) {
	if m.claimFn != nil {
		return m.claimFn(ctx, managerID, installationID)
	}
	return nil, errors.New("not implemented")
}

func (m *mockCoordinator) Release(ctx context.Context, managerID string) (*app.ReleaseResult, error) {
	if m.releaseFn != nil {
		return m.releaseFn(ctx, managerID)
	}
	return nil, errors.New("not implemented")
}

type mockNotifications struct {
	listFn         func(ctx context.Context, actor domain.Actor, limit int) ([]domain.NotificationEvent, error)
	unreadFn       func(ctx context.Context, actor domain.Actor) ([]domain.NotificationEvent, error)
	byConvFn       func(ctx context.Context, actor domain.Actor) (domain.UnreadSummary, error)
	markReadFn     func(ctx context.Context, actor domain.Actor, notifID string) error
	markAllReadFn  func(ctx context.Context, actor domain.Actor) (int, error)
	markReadFromFn func(ctx context.Context, actor domain.Actor, counterpartID string) (int, error)
}

func (m *mockNotifications) List(ctx context.Context, actor domain.Actor, limit int) ([]domain.NotificationEvent, error) {
	if m.listFn != nil {
		return m.listFn(ctx, actor, limit)
	}
	return nil, nil
}

func (m *mockNotifications) Unread(ctx context.Context, actor domain.Actor) ([]domain.NotificationEvent, error) {
	if m.unreadFn != nil {
		return m.unreadFn(ctx, actor)
	}
	return nil, nil
}

func (m *mockNotifications) UnreadByConversation(ctx context.Context, actor domain.Actor) (domain.UnreadSummary, error) {
	if m.byConvFn != nil {
		return m.byConvFn(ctx, actor)
	}
	return domain.UnreadSummary{ByCounterpart: map[string]int{}}, nil
}

func (m *mockNotifications) MarkRead(ctx context.Context, actor domain.Actor, notifID string) error {
	if m.markReadFn != nil {
		return m.markReadFn(ctx, actor, notifID)
	}
	return nil
}

func (m *mockNotifications) MarkAllRead(ctx context.Context, actor domain.Actor) (int, error) {
	if m.markAllReadFn != nil {
		return m.markAllReadFn(ctx, actor)
	}
	return 0, nil
}

func (m *mockNotifications) MarkReadFrom(ctx context.Context, actor domain.Actor, counterpartID string) (int, error) {
	if m.markReadFromFn != nil {
		return m.markReadFromFn(ctx, actor, counterpartID)
	}
	return 0, nil
}

// --- Test helpers ---

const (
	managerSession = "mgr-session"
	workerSession  = "wrk-session"
)

func newTestServer(t *testing.T, opts ...func(*Server)) *Server {
	t.Helper()

	e := echo.New()
	srv := &Server{
		echo: e,
		config: &config.Config{
			SessionCookieName: "session-id",
			SessionTTL:        24 * time.Hour,
			GitHubRateLimit:   100,
			GitHubRateBurst:   100,
		},
		actors: &mockActorResolver{sessions: map[string]domain.Actor{
			managerSession: domain.NewManager("m1"),
			workerSession:  domain.NewWorker("w1"),
		}},
		sessions:      &mockSessionRevoker{},
		installations: &mockCoordinator{},
		notifications: &mockNotifications{},
		startTime:     time.Now(),
	}

	for _, opt := range opts {
		opt(srv)
	}

	e.HTTPErrorHandler = srv.handleHTTPError
	srv.registerRoutes()

	return srv
}

func withCoordinator(c installationCoordinator) func(*Server) {
	return func(s *Server) {
		s.installations = c
	}
}

func withNotifications(n notificationService) func(*Server) {
	return func(s *Server) {
		s.notifications = n
	}
}

func withSessions(r sessionRevoker) func(*Server) {
	return func(s *Server) {
		s.sessions = r
	}
}

func withHealthChecks(checks ...HealthCheck) func(*Server) {
	return func(s *Server) {
		s.healthChecks = checks
	}
}

// callHandler wraps a handler with error middleware, matching production behavior
func callHandler(handler echo.HandlerFunc, c echo.Context) error {
	return ErrorHandlingMiddleware(nil)(handler)(c)
}

// serve sends a bearer-authenticated request through the full router.
func serve(srv *Server, method, target, session string, body io.Reader) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, body)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if session != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+session)
	}
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func withCookie(req *http.Request, session string) *http.Request {
	req.AddCookie(&http.Cookie{Name: "session-id", Value: session})
	return req
}
