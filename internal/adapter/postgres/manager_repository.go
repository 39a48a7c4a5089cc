package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/anandavicky123/syncertica/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	pgUniqueViolation         = "23505"
	installationUniqueIndex   = "managers_github_installation_id_key"
	defaultManagerDisplayName = "Manager"
)

// ManagerRepo stores manager rows and their installation binding.
// The binding column is globally unique over non-null values; every
// mutation is a single statement so a cancelled request leaves no partial state.
type ManagerRepo struct {
	pool *pgxpool.Pool
}

var (
	_ domain.ManagerBindingStore = (*ManagerRepo)(nil)
	_ domain.ManagerRepository   = (*ManagerRepo)(nil)
)

func NewManagerRepo(pool *pgxpool.Pool) *ManagerRepo {
	return &ManagerRepo{pool: pool}
}

func (r *ManagerRepo) EnsureManager(ctx context.Context, managerID, name string) (*domain.Manager, error) {
	if name == "" {
		name = defaultManagerDisplayName
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO managers (id, name) VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING`, managerID, name)
	if err != nil {
		return nil, fmt.Errorf("failed to ensure manager: %w", err)
	}
	return r.GetManager(ctx, managerID)
}

func (r *ManagerRepo) GetManager(ctx context.Context, managerID string) (*domain.Manager, error) {
	var (
		m            domain.Manager
		installation *string
	)
	err := r.pool.QueryRow(ctx, `
		SELECT id, name, github_installation_id, created_at, updated_at
		FROM managers WHERE id = $1`, managerID).
		Scan(&m.ID, &m.Name, &installation, &m.CreatedAt, &m.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrManagerNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get manager: %w", err)
	}
	m.InstallationID = fromNullable(installation)
	return &m, nil
}

func (r *ManagerRepo) Get(ctx context.Context, managerID string) (domain.ManagerBinding, error) {
	var installation *string
	err := r.pool.QueryRow(ctx,
		`SELECT github_installation_id FROM managers WHERE id = $1`, managerID).
		Scan(&installation)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ManagerBinding{}, domain.ErrManagerNotFound
	}
	if err != nil {
		return domain.ManagerBinding{}, fmt.Errorf("failed to get binding: %w", err)
	}
	return domain.ManagerBinding{ManagerID: managerID, InstallationID: fromNullable(installation)}, nil
}

func (r *ManagerRepo) ConditionalSet(ctx context.Context, managerID, newID, expected string) (domain.BindResult, error) {
	tag, err := r.pool.Exec(ctx, `
		UPDATE managers
		SET github_installation_id = $2, updated_at = NOW()
		WHERE id = $1 AND github_installation_id IS NOT DISTINCT FROM $3`,
		managerID, nullable(newID), nullable(expected))
	if err != nil {
		if isInstallationUniqueViolation(err) {
			return domain.BindConstraintViolation, nil
		}
		return 0, fmt.Errorf("failed to set binding: %w", err)
	}

	if tag.RowsAffected() == 1 {
		return domain.BindApplied, nil
	}

	var exists bool
	if err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM managers WHERE id = $1)`, managerID).Scan(&exists); err != nil {
		return 0, fmt.Errorf("failed to check manager existence: %w", err)
	}
	if !exists {
		return 0, domain.ErrManagerNotFound
	}
	return domain.BindPreconditionFailed, nil
}

func (r *ManagerRepo) OwnersOf(ctx context.Context, installationIDs []string) (map[string]string, error) {
	owners := make(map[string]string, len(installationIDs))
	if len(installationIDs) == 0 {
		return owners, nil
	}

	rows, err := r.pool.Query(ctx, `
		SELECT github_installation_id, id
		FROM managers
		WHERE github_installation_id = ANY($1)`, installationIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to query installation owners: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var installationID, managerID string
		if err := rows.Scan(&installationID, &managerID); err != nil {
			return nil, fmt.Errorf("failed to scan installation owner: %w", err)
		}
		owners[installationID] = managerID
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate installation owners: %w", err)
	}
	return owners, nil
}

func (r *ManagerRepo) Clear(ctx context.Context, managerID string) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var previous *string
	err = tx.QueryRow(ctx,
		`SELECT github_installation_id FROM managers WHERE id = $1 FOR UPDATE`, managerID).
		Scan(&previous)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", domain.ErrManagerNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to lock manager: %w", err)
	}

	if previous != nil {
		if _, err := tx.Exec(ctx, `
			UPDATE managers SET github_installation_id = NULL, updated_at = NOW()
			WHERE id = $1`, managerID); err != nil {
			return "", fmt.Errorf("failed to clear binding: %w", err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return fromNullable(previous), nil
}

func isInstallationUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == installationUniqueIndex
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func fromNullable(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
