package httpserver

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/anandavicky123/syncertica/internal/platform/correlation"
	apperrors "github.com/anandavicky123/syncertica/internal/platform/errors"
	"github.com/labstack/echo/v4"
)

const (
	bearerPrefix = "Bearer "

	contextKeyActor     = "actor"
	contextKeySessionID = "sessionID"
)

func correlationMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ctx, id := correlation.Ensure(c.Request().Context(), c.Request().Header.Get(correlation.Header))
		c.SetRequest(c.Request().WithContext(ctx))
		c.Response().Header().Set(correlation.Header, id)
		return next(c)
	}
}

// requireSession resolves the request credential into an actor and stores it on the context.
func (s *Server) requireSession(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		sessionID := s.sessionCredential(c)
		actor, err := s.actors.Resolve(c.Request().Context(), sessionID)
		if err != nil {
			return err
		}
		c.Set(contextKeySessionID, sessionID)
		c.Set(contextKeyActor, actor)
		return next(c)
	}
}

// requireRole rejects actors whose type is not in allowed. It must run after requireSession.
func requireRole(allowed ...domain.ActorType) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, err := actorFrom(c)
			if err != nil {
				return err
			}
			if err := actor.Require(allowed...); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// sessionCredential prefers an explicit bearer token over the session cookie.
func (s *Server) sessionCredential(c echo.Context) string {
	if auth := c.Request().Header.Get(echo.HeaderAuthorization); strings.HasPrefix(auth, bearerPrefix) {
		return strings.TrimSpace(strings.TrimPrefix(auth, bearerPrefix))
	}
	cookie, err := c.Cookie(s.config.SessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func actorFrom(c echo.Context) (domain.Actor, error) {
	actor, ok := c.Get(contextKeyActor).(domain.Actor)
	if !ok || actor.IsZero() {
		return domain.Actor{}, domain.ErrUnauthenticated
	}
	return actor, nil
}

func ErrorHandlingMiddleware(m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			err := next(c)
			if err == nil {
				return nil
			}

			var httpErr *echo.HTTPError
			if errors.As(err, &httpErr) {
				return err
			}

			structuredErr := toAppError(err)
			m.RecordError(string(structuredErr.Type))
			logError(c, structuredErr)

			if err := c.JSON(structuredErr.HTTPStatus(), structuredErr.ToResponse()); err != nil {
				return fmt.Errorf("failed to write error response: %w", err)
			}
			return nil
		}
	}
}

// toAppError maps domain errors onto the HTTP error taxonomy. Errors that
// already carry a structured type pass through; anything else is internal.
func toAppError(err error) *apperrors.Error {
	var structured *apperrors.Error
	if errors.As(err, &structured) {
		return structured
	}

	switch {
	case errors.Is(err, domain.ErrUnauthenticated),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrSessionExpired):
		return apperrors.UnauthenticatedError("authentication required")
	case errors.Is(err, domain.ErrForbidden):
		return apperrors.ForbiddenError("not permitted for this role")
	case errors.Is(err, domain.ErrManagerNotFound):
		return apperrors.NotFoundError("manager not found")
	case errors.Is(err, domain.ErrInstallationNotFound):
		return apperrors.NotFoundError("installation not found")
	case errors.Is(err, domain.ErrNotificationNotFound):
		return apperrors.NotFoundError("notification not found")
	case errors.Is(err, domain.ErrAllInstallationsClaimed):
		return apperrors.ConflictError("every installation is already linked to another manager").
			WithContext("reason", "all_installations_claimed")
	case errors.Is(err, domain.ErrInstallationOwned):
		return apperrors.ConflictError("installation is linked to another manager").
			WithContext("reason", "installation_owned")
	case errors.Is(err, domain.ErrAlreadyBound):
		return apperrors.ConflictError("manager is already linked to an installation").
			WithContext("reason", "already_bound")
	case errors.Is(err, domain.ErrBindingContended):
		return apperrors.ConflictError("installation link changed concurrently, retry").
			WithContext("reason", "binding_contended")
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return apperrors.UnavailableError("GitHub is unavailable", err)
	default:
		return apperrors.AsStructuredError(err)
	}
}

func logError(c echo.Context, err *apperrors.Error) {
	attrs := []any{
		"error_type", err.Type,
		"message", err.Message,
		"path", c.Request().URL.Path,
		"method", c.Request().Method,
		"status", err.HTTPStatus(),
	}

	for k, v := range err.Context {
		attrs = append(attrs, k, v)
	}

	if actor, ok := c.Get(contextKeyActor).(domain.Actor); ok {
		attrs = append(attrs, "actor", actor.String())
	}

	ctx := c.Request().Context()
	switch err.Type {
	case apperrors.TypeValidation, apperrors.TypeNotFound:
		slog.InfoContext(ctx, "Client error", attrs...)
	case apperrors.TypeUnauthenticated, apperrors.TypeForbidden:
		slog.InfoContext(ctx, "Access denied", attrs...)
	case apperrors.TypeConflict:
		slog.WarnContext(ctx, "Conflict", attrs...)
	case apperrors.TypeExternal, apperrors.TypeUnavailable:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "External service error", attrs...)
	case apperrors.TypeInternal:
		if err.Cause != nil {
			attrs = append(attrs, "cause", err.Cause)
		}
		slog.ErrorContext(ctx, "Internal error", attrs...)
	default:
		slog.ErrorContext(ctx, "Unknown error type", attrs...)
	}
}

// handleHTTPError renders echo's own errors (unknown route, CSRF, bad method)
// in the same JSON shape as application errors.
func (s *Server) handleHTTPError(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var httpErr *echo.HTTPError
	if !errors.As(err, &httpErr) {
		httpErr = echo.NewHTTPError(http.StatusInternalServerError).SetInternal(err)
	}

	appErr := WrapHTTPError(httpErr)
	s.httpMetrics.RecordError(string(appErr.Type))
	if err := c.JSON(appErr.HTTPStatus(), appErr.ToResponse()); err != nil {
		slog.WarnContext(c.Request().Context(), "Failed to write error response", "error", err)
	}
}

func WrapHTTPError(httpErr *echo.HTTPError) *apperrors.Error {
	message := "internal server error"
	if httpErr.Message != nil {
		if msg, ok := httpErr.Message.(string); ok {
			message = msg
		}
	}

	var errType apperrors.ErrorType
	switch httpErr.Code {
	case http.StatusBadRequest:
		errType = apperrors.TypeValidation
	case http.StatusUnauthorized:
		errType = apperrors.TypeUnauthenticated
	case http.StatusForbidden:
		errType = apperrors.TypeForbidden
	case http.StatusNotFound:
		errType = apperrors.TypeNotFound
	case http.StatusConflict:
		errType = apperrors.TypeConflict
	case http.StatusBadGateway:
		errType = apperrors.TypeExternal
	case http.StatusServiceUnavailable:
		errType = apperrors.TypeUnavailable
	default:
		errType = apperrors.TypeInternal
	}

	err := &apperrors.Error{
		Type:    errType,
		Message: message,
		Context: make(map[string]any),
	}

	if httpErr.Internal != nil {
		err.Cause = httpErr.Internal
	}

	return err
}
