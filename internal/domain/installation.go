package domain

import (
	"context"
	"strconv"
	"time"
)

type Account struct {
	Login string `json:"login"`
	ID    int64  `json:"id"`
	Type  string `json:"type"`
}

type Installation struct {
	ID          int64             `json:"id"`
	Account     Account           `json:"account"`
	Permissions map[string]string `json:"permissions,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// BindingKey is the installation id as stored in a manager binding.
func (i Installation) BindingKey() string {
	return strconv.FormatInt(i.ID, 10)
}

type InstallationToken struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}

type InstallationRegistry interface {
	Enumerate(ctx context.Context) ([]Installation, error)
	IssueToken(ctx context.Context, installationID int64) (*InstallationToken, error)
	Uninstall(ctx context.Context, installationID int64) error
}
