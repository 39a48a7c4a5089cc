package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/anandavicky123/syncertica/internal/platform/retry"
	"github.com/jonboulle/clockwork"
)

const uninstallTimeout = 30 * time.Second

var defaultUninstallPolicy = retry.Policy{
	MaxAttempts:    3,
	InitialBackoff: 500 * time.Millisecond,
	MaxBackoff:     4 * time.Second,
}

// ReleaseResult reports what a disconnect did. Uninstalled is false when the
// manager was not bound or the upstream uninstall failed.
type ReleaseResult struct {
	InstallationID string `json:"installationId,omitempty"`
	Uninstalled    bool   `json:"uninstalled"`
}

type InstallationOwnership struct {
	Installation domain.Installation `json:"installation"`
	ManagerID    string              `json:"managerId,omitempty"`
}

// ClaimCoordinator links managers to GitHub App installations, one manager per installation.
//
// All coordination goes through the binding store's conditional write and its
// unique index; the coordinator holds no locks and keeps no state between calls.
// A lost race shows up as a result value and is handled by trying the next candidate.
type ClaimCoordinator struct {
	registry        domain.InstallationRegistry
	bindings        domain.ManagerBindingStore
	clock           clockwork.Clock
	metrics         *metrics.ClaimMetrics
	registryTimeout time.Duration
	uninstallPolicy retry.Policy
}

func NewClaimCoordinator(registry domain.InstallationRegistry, bindings domain.ManagerBindingStore, registryTimeout time.Duration, clock clockwork.Clock, m *metrics.ClaimMetrics) *ClaimCoordinator {
	return &ClaimCoordinator{
		registry:        registry,
		bindings:        bindings,
		clock:           clock,
		metrics:         m,
		registryTimeout: registryTimeout,
		uninstallPolicy: defaultUninstallPolicy,
	}
}

// ResolveInstallation returns the manager's installation, claiming an unclaimed
// one when the manager is unbound or its binding went stale.
func (c *ClaimCoordinator) ResolveInstallation(ctx context.Context, managerID string) (*domain.Installation, error) {
	binding, err := c.bindings.Get(ctx, managerID)
	if err != nil {
		return nil, err
	}

	installs, err := c.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	if binding.Bound() {
		if inst, ok := findInstallation(installs, binding.InstallationID); ok {
			c.metrics.Outcome(metrics.OutcomeFastPath)
			return &inst, nil
		}

		slog.InfoContext(ctx, "Binding is stale, clearing", "manager_id", managerID, "installation_id", binding.InstallationID)
		res, err := c.bindings.ConditionalSet(ctx, managerID, "", binding.InstallationID)
		if err != nil {
			return nil, fmt.Errorf("failed to clear stale binding: %w", err)
		}
		if res == domain.BindPreconditionFailed {
			inst, err := c.reconcile(ctx, managerID, installs)
			if err != nil || inst != nil {
				return inst, err
			}
		} else {
			c.metrics.Outcome(metrics.OutcomeStaleCleared)
		}
	}

	return c.claimFirstUnclaimed(ctx, managerID, installs)
}

func (c *ClaimCoordinator) claimFirstUnclaimed(ctx context.Context, managerID string, installs []domain.Installation) (*domain.Installation, error) {
	owners, err := c.bindings.OwnersOf(ctx, bindingKeys(installs))
	if err != nil {
		return nil, fmt.Errorf("failed to load installation owners: %w", err)
	}

	candidates := make([]domain.Installation, 0, len(installs))
	for _, inst := range installs {
		switch owners[inst.BindingKey()] {
		case "":
			candidates = append(candidates, inst)
		case managerID:
			// Another request for this manager bound it after our read.
			adopted, err := c.reconcile(ctx, managerID, installs)
			if err != nil || adopted != nil {
				return adopted, err
			}
			candidates = append(candidates, inst)
		}
	}

	retried := false
	for i := 0; i < len(candidates); i++ {
		cand := candidates[i]
		res, err := c.bindings.ConditionalSet(ctx, managerID, cand.BindingKey(), "")
		if err != nil {
			return nil, fmt.Errorf("failed to bind installation: %w", err)
		}

		switch res {
		case domain.BindApplied:
			c.metrics.Outcome(metrics.OutcomeClaimed)
			slog.InfoContext(ctx, "Installation claimed",
				"manager_id", managerID,
				"installation_id", cand.ID,
				"account", cand.Account.Login,
			)
			return &cand, nil
		case domain.BindConstraintViolation:
			c.metrics.ConflictRetry()
			slog.DebugContext(ctx, "Installation taken concurrently, trying next", "manager_id", managerID, "installation_id", cand.ID)
		case domain.BindPreconditionFailed:
			adopted, err := c.reconcile(ctx, managerID, installs)
			if err != nil || adopted != nil {
				return adopted, err
			}
			// Unbound again: give this candidate one more try.
			if retried {
				c.metrics.Outcome(metrics.OutcomeContended)
				return nil, domain.ErrBindingContended
			}
			retried = true
			i--
		}
	}

	c.metrics.Outcome(metrics.OutcomeExhausted)
	return nil, domain.ErrAllInstallationsClaimed
}

// reconcile re-reads a binding that changed underneath us. A live binding is
// adopted. A nil installation with a nil error means the manager is unbound
// now and the caller carries on claiming; a binding to a dead installation is
// cleared once more first.
func (c *ClaimCoordinator) reconcile(ctx context.Context, managerID string, installs []domain.Installation) (*domain.Installation, error) {
	binding, err := c.bindings.Get(ctx, managerID)
	if err != nil {
		return nil, err
	}
	if !binding.Bound() {
		return nil, nil
	}
	if inst, ok := findInstallation(installs, binding.InstallationID); ok {
		c.metrics.Outcome(metrics.OutcomeFastPath)
		return &inst, nil
	}

	res, err := c.bindings.ConditionalSet(ctx, managerID, "", binding.InstallationID)
	if err != nil {
		return nil, fmt.Errorf("failed to clear stale binding: %w", err)
	}
	if res == domain.BindApplied {
		c.metrics.Outcome(metrics.OutcomeStaleCleared)
		return nil, nil
	}

	// The binding keeps moving between dead installations.
	c.metrics.Outcome(metrics.OutcomeContended)
	return nil, domain.ErrBindingContended
}

// ClaimInstallation binds the manager to one specific installation, as chosen in the GitHub install flow.
func (c *ClaimCoordinator) ClaimInstallation(ctx context.Context, managerID string, installationID int64) (*domain.Installation, error) {
	binding, err := c.bindings.Get(ctx, managerID)
	if err != nil {
		return nil, err
	}

	installs, err := c.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	key := strconv.FormatInt(installationID, 10)
	inst, ok := findInstallation(installs, key)
	if !ok {
		return nil, fmt.Errorf("installation %d: %w", installationID, domain.ErrInstallationNotFound)
	}
	if binding.InstallationID == key {
		c.metrics.Outcome(metrics.OutcomeFastPath)
		return &inst, nil
	}

	expected := ""
	if binding.Bound() {
		if _, live := findInstallation(installs, binding.InstallationID); live {
			return nil, domain.ErrAlreadyBound
		}
		// A stale binding is replaced in the same conditional write.
		expected = binding.InstallationID
	}

	for attempt := 0; ; attempt++ {
		res, err := c.bindings.ConditionalSet(ctx, managerID, key, expected)
		if err != nil {
			return nil, fmt.Errorf("failed to bind installation: %w", err)
		}

		switch res {
		case domain.BindApplied:
			c.metrics.Outcome(metrics.OutcomeClaimed)
			slog.InfoContext(ctx, "Installation claimed", "manager_id", managerID, "installation_id", inst.ID, "account", inst.Account.Login)
			return &inst, nil
		case domain.BindConstraintViolation:
			return nil, domain.ErrInstallationOwned
		}

		adopted, err := c.reconcile(ctx, managerID, installs)
		if err != nil || adopted != nil {
			return adopted, err
		}
		if attempt > 0 {
			c.metrics.Outcome(metrics.OutcomeContended)
			return nil, domain.ErrBindingContended
		}
		expected = ""
	}
}

// Release unlinks the manager and then tries to uninstall the app upstream.
// The local unlink stands even when the uninstall fails.
func (c *ClaimCoordinator) Release(ctx context.Context, managerID string) (*ReleaseResult, error) {
	previous, err := c.bindings.Clear(ctx, managerID)
	if err != nil {
		return nil, err
	}

	result := &ReleaseResult{InstallationID: previous}
	c.metrics.Outcome(metrics.OutcomeReleased)
	if previous == "" {
		return result, nil
	}

	id, err := strconv.ParseInt(previous, 10, 64)
	if err != nil {
		slog.WarnContext(ctx, "Released binding is not a numeric installation id", "manager_id", managerID, "installation_id", previous)
		return result, nil
	}

	uninstallCtx, cancel := context.WithTimeout(ctx, uninstallTimeout)
	defer cancel()

	policy := c.uninstallPolicy
	policy.OnRetry = func(attempt int, err error, backoff time.Duration) {
		slog.WarnContext(ctx, "Uninstall failed, retrying", "installation_id", id, "attempt", attempt, "backoff", backoff, "error", err)
	}
	err = retry.DoVoid(uninstallCtx, policy, classifyRegistryError, func() error {
		return c.registry.Uninstall(uninstallCtx, id)
	})
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeUninstallFailed)
		slog.WarnContext(ctx, "Installation unlinked but upstream uninstall failed", "manager_id", managerID, "installation_id", id, "error", err)
		return result, nil
	}

	result.Uninstalled = true
	slog.InfoContext(ctx, "Installation released", "manager_id", managerID, "installation_id", id)
	return result, nil
}

// InstallationToken mints an access token for the manager's installation.
func (c *ClaimCoordinator) InstallationToken(ctx context.Context, managerID string) (*domain.InstallationToken, error) {
	inst, err := c.ResolveInstallation(ctx, managerID)
	if err != nil {
		return nil, err
	}

	ctx, cancel := c.withRegistryTimeout(ctx)
	defer cancel()
	return c.registry.IssueToken(ctx, inst.ID)
}

// Installations lists every live installation with its owning manager, if any.
func (c *ClaimCoordinator) Installations(ctx context.Context) ([]InstallationOwnership, error) {
	installs, err := c.enumerate(ctx)
	if err != nil {
		return nil, err
	}

	owners, err := c.bindings.OwnersOf(ctx, bindingKeys(installs))
	if err != nil {
		return nil, fmt.Errorf("failed to load installation owners: %w", err)
	}

	out := make([]InstallationOwnership, 0, len(installs))
	for _, inst := range installs {
		out = append(out, InstallationOwnership{Installation: inst, ManagerID: owners[inst.BindingKey()]})
	}
	return out, nil
}

// enumerate lists installations sorted by id. Sorting makes candidate order
// independent of whatever order the registry happens to return.
func (c *ClaimCoordinator) enumerate(ctx context.Context) ([]domain.Installation, error) {
	ctx, cancel := c.withRegistryTimeout(ctx)
	defer cancel()

	start := c.clock.Now()
	installs, err := c.registry.Enumerate(ctx)
	c.metrics.ObserveEnumeration(c.clock.Since(start))
	if err != nil {
		c.metrics.Outcome(metrics.OutcomeUpstreamError)
		if errors.Is(err, domain.ErrUpstreamUnavailable) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", domain.ErrUpstreamUnavailable, err)
	}

	sorted := slices.Clone(installs)
	slices.SortFunc(sorted, func(a, b domain.Installation) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return sorted, nil
}

func (c *ClaimCoordinator) withRegistryTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.registryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.registryTimeout)
}

func classifyRegistryError(err error) retry.Action {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return retry.Stop
	}
	if errors.Is(err, domain.ErrUpstreamUnavailable) {
		return retry.Retry
	}
	return retry.Stop
}

func findInstallation(installs []domain.Installation, key string) (domain.Installation, bool) {
	for _, inst := range installs {
		if inst.BindingKey() == key {
			return inst, true
		}
	}
	return domain.Installation{}, false
}

func bindingKeys(installs []domain.Installation) []string {
	keys := make([]string, len(installs))
	for i, inst := range installs {
		keys[i] = inst.BindingKey()
	}
	return keys
}
