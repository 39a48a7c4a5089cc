package githubapp

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
)

const breakerComponent = "github"

// appAuthTransport authenticates every request as the GitHub App itself.
type appAuthTransport struct {
	source *AppTokenSource
	base   http.RoundTripper
}

func (t *appAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.source.Token()
	if err != nil {
		return nil, err
	}

	authed := req.Clone(req.Context())
	authed.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(authed)
}

// breakerTransport stops calling GitHub after repeated transport failures or 5xx responses.
type breakerTransport struct {
	cb      circuitbreaker.CircuitBreaker[any]
	metrics *metrics.BreakerMetrics
	base    http.RoundTripper
}

func newBreakerTransport(base http.RoundTripper, m *metrics.BreakerMetrics) *breakerTransport {
	cb := circuitbreaker.NewBuilder[any]().
		WithFailureRateThreshold(0.6, 5, 30*time.Second).
		WithDelay(30 * time.Second).
		WithSuccessThreshold(1).
		OnStateChanged(func(e circuitbreaker.StateChangedEvent) {
			slog.Warn("Circuit breaker state changed",
				"component", breakerComponent,
				"from", e.OldState.String(),
				"to", e.NewState.String(),
			)
			m.StateChanged(breakerComponent, e.NewState.String(), metrics.StateValue(e.NewState))
		}).
		Build()
	return &breakerTransport{cb: cb, metrics: m, base: base}
}

func (t *breakerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.cb.TryAcquirePermit() {
		t.metrics.RecordRejected(breakerComponent)
		return nil, fmt.Errorf("github circuit breaker open: %w", circuitbreaker.ErrOpen)
	}

	resp, err := t.base.RoundTrip(req)
	switch {
	case err != nil:
		t.cb.RecordError(err)
	case resp.StatusCode >= http.StatusInternalServerError:
		t.cb.RecordError(fmt.Errorf("github returned %d", resp.StatusCode))
	default:
		t.cb.RecordSuccess()
	}
	return resp, err
}
