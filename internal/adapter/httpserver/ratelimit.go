package httpserver

import (
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	apperrors "github.com/anandavicky123/syncertica/internal/platform/errors"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

const (
	rateLimiterExpiry = 5 * time.Minute

	anonymousActorType = "anonymous"
)

// newRateLimiter buckets requests per authenticated actor, so managers behind
// one NAT do not starve each other. Requests without an actor fall back to the
// client IP. It must run after requireSession to see the actor.
func newRateLimiter(ratePerSecond float64, burst int, m *metrics.HTTPMetrics) echo.MiddlewareFunc {
	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(ratePerSecond),
			Burst:     burst,
			ExpiresIn: rateLimiterExpiry,
		},
	)
	retryAfter := retryAfterSeconds(ratePerSecond)

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		IdentifierExtractor: rateLimitKey,
		Store:               store,
		DenyHandler: func(c echo.Context, identifier string, _ error) error {
			actorType := anonymousActorType
			if actor, err := actorFrom(c); err == nil {
				actorType = string(actor.Type())
			}
			m.RecordRateLimited(c.Path(), actorType)
			slog.WarnContext(c.Request().Context(), "Request rate limited", "key", identifier, "route", c.Path())

			c.Response().Header().Set("Retry-After", retryAfter)
			return apperrors.RateLimitedError("rate limit exceeded").
				WithContext("retry_after_seconds", retryAfter)
		},
	})
}

func rateLimitKey(c echo.Context) (string, error) {
	if actor, err := actorFrom(c); err == nil {
		return actor.String(), nil
	}
	return "ip:" + c.RealIP(), nil
}

// retryAfterSeconds is how long one token takes to refill, at least a second.
func retryAfterSeconds(ratePerSecond float64) string {
	if ratePerSecond <= 0 {
		return strconv.Itoa(int(rateLimiterExpiry.Seconds()))
	}
	return strconv.Itoa(int(math.Max(1, math.Ceil(1/ratePerSecond))))
}
