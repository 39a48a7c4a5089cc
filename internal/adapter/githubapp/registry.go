package githubapp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/failsafe-go/failsafe-go/circuitbreaker"
	"github.com/google/go-github/v66/github"
	"github.com/jonboulle/clockwork"
)

const pageSize = 100

type Config struct {
	AppID         int64
	PrivateKeyPEM []byte
	// BaseURL defaults to the public API; tests and GHES point it elsewhere.
	BaseURL string
	Timeout time.Duration
}

// Registry is the InstallationRegistry backed by the GitHub Apps API.
type Registry struct {
	client  *github.Client
	timeout time.Duration
	breaker *breakerTransport
}

var _ domain.InstallationRegistry = (*Registry)(nil)

func NewRegistry(cfg Config, clock clockwork.Clock, breakerMetrics *metrics.BreakerMetrics) (*Registry, error) {
	source, err := NewAppTokenSource(cfg.AppID, cfg.PrivateKeyPEM, clock)
	if err != nil {
		return nil, err
	}

	breaker := newBreakerTransport(http.DefaultTransport, breakerMetrics)
	httpClient := &http.Client{
		Transport: &appAuthTransport{
			source: source,
			base:   breaker,
		},
	}
	client := github.NewClient(httpClient)

	if cfg.BaseURL != "" {
		base, err := url.Parse(cfg.BaseURL)
		if err != nil {
			return nil, fmt.Errorf("invalid GitHub API URL: %w", err)
		}
		if !strings.HasSuffix(base.Path, "/") {
			base.Path += "/"
		}
		client.BaseURL = base
	}

	return &Registry{client: client, timeout: cfg.Timeout, breaker: breaker}, nil
}

// Health fails while the circuit breaker is open. It never calls GitHub, so
// readiness polling does not spend API quota.
func (r *Registry) Health(context.Context) error {
	if r.breaker.cb.IsOpen() {
		return fmt.Errorf("github circuit breaker open: %w", circuitbreaker.ErrOpen)
	}
	return nil
}

func (r *Registry) Enumerate(ctx context.Context) ([]domain.Installation, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var out []domain.Installation
	opts := &github.ListOptions{PerPage: pageSize}
	for {
		page, resp, err := r.client.Apps.ListInstallations(ctx, opts)
		if err != nil {
			return nil, upstreamError("list installations", err)
		}
		for _, inst := range page {
			out = append(out, toInstallation(inst))
		}
		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	slog.DebugContext(ctx, "Enumerated installations", "count", len(out))
	return out, nil
}

func (r *Registry) IssueToken(ctx context.Context, installationID int64) (*domain.InstallationToken, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	tok, _, err := r.client.Apps.CreateInstallationToken(ctx, installationID, nil)
	if err != nil {
		if statusOf(err) == http.StatusNotFound {
			return nil, fmt.Errorf("installation %d: %w", installationID, domain.ErrInstallationNotFound)
		}
		return nil, upstreamError("create installation token", err)
	}

	return &domain.InstallationToken{
		Token:     tok.GetToken(),
		ExpiresAt: tok.GetExpiresAt().Time,
	}, nil
}

// Uninstall deletes the installation. An installation that is already gone counts as uninstalled.
func (r *Registry) Uninstall(ctx context.Context, installationID int64) error {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	_, err := r.client.Apps.DeleteInstallation(ctx, installationID)
	if err == nil || statusOf(err) == http.StatusNotFound {
		return nil
	}
	return upstreamError("delete installation", err)
}

func (r *Registry) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.timeout)
}

func toInstallation(inst *github.Installation) domain.Installation {
	account := inst.GetAccount()
	return domain.Installation{
		ID: inst.GetID(),
		Account: domain.Account{
			Login: account.GetLogin(),
			ID:    account.GetID(),
			Type:  account.GetType(),
		},
		Permissions: permissionMap(inst.GetPermissions()),
		CreatedAt:   inst.GetCreatedAt().Time,
	}
}

// permissionMap flattens the typed permission struct into {"contents": "read", ...}.
func permissionMap(p *github.InstallationPermissions) map[string]string {
	if p == nil {
		return nil
	}
	raw, err := json.Marshal(p)
	if err != nil {
		return nil
	}
	var m map[string]string
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

func statusOf(err error) int {
	var ghErr *github.ErrorResponse
	if errors.As(err, &ghErr) && ghErr.Response != nil {
		return ghErr.Response.StatusCode
	}
	return 0
}

func upstreamError(op string, err error) error {
	return fmt.Errorf("%w: github %s: %w", domain.ErrUpstreamUnavailable, op, err)
}
