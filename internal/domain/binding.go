package domain

import (
	"context"
	"time"
)

type Manager struct {
	ID             string
	Name           string
	InstallationID string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// ManagerBinding is the manager's installation link. An empty InstallationID means unbound.
type ManagerBinding struct {
	ManagerID      string
	InstallationID string
}

func (b ManagerBinding) Bound() bool {
	return b.InstallationID != ""
}

// BindResult is the outcome of a conditional binding write.
type BindResult int

const (
	BindApplied BindResult = iota
	// BindConstraintViolation: the new id is already bound to another manager.
	BindConstraintViolation
	// BindPreconditionFailed: the stored value no longer matches the expected one.
	BindPreconditionFailed
)

func (r BindResult) String() string {
	switch r {
	case BindApplied:
		return "applied"
	case BindConstraintViolation:
		return "constraint_violation"
	case BindPreconditionFailed:
		return "precondition_failed"
	default:
		return "unknown"
	}
}

type ManagerBindingStore interface {
	Get(ctx context.Context, managerID string) (ManagerBinding, error)
	// ConditionalSet writes newID ("" clears) only if the stored value equals expected ("" is null).
	ConditionalSet(ctx context.Context, managerID, newID, expected string) (BindResult, error)
	// OwnersOf maps each bound installation id in ids to its manager id.
	OwnersOf(ctx context.Context, installationIDs []string) (map[string]string, error)
	// Clear unconditionally unbinds the manager and returns the previous value.
	Clear(ctx context.Context, managerID string) (string, error)
}

type ManagerRepository interface {
	EnsureManager(ctx context.Context, managerID, name string) (*Manager, error)
	GetManager(ctx context.Context, managerID string) (*Manager, error)
}
