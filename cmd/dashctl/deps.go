package main

import (
	"context"
	"fmt"

	"github.com/anandavicky123/syncertica/internal/adapter/githubapp"
	"github.com/anandavicky123/syncertica/internal/adapter/postgres"
	"github.com/anandavicky123/syncertica/internal/adapter/redis"
	"github.com/anandavicky123/syncertica/internal/app"
	"github.com/anandavicky123/syncertica/internal/platform/config"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

// deps opens backends on first use, so a command only needs the
// environment for the stores it actually touches.
type deps struct {
	cfg   *config.Config
	clock clockwork.Clock

	pool *pgxpool.Pool
	rdb  *goredis.Client
}

func newDeps(cfg *config.Config) *deps {
	return &deps{cfg: cfg, clock: clockwork.NewRealClock()}
}

func (d *deps) Close() {
	if d.pool != nil {
		d.pool.Close()
	}
	if d.rdb != nil {
		_ = d.rdb.Close()
	}
}

func (d *deps) redisClient(ctx context.Context) (*goredis.Client, error) {
	if d.rdb != nil {
		return d.rdb, nil
	}
	if err := d.cfg.Require("REDIS_URL"); err != nil {
		return nil, err
	}
	rdb, err := redis.NewClient(ctx, d.cfg.RedisURL)
	if err != nil {
		return nil, err
	}
	d.rdb = rdb
	return rdb, nil
}

func (d *deps) postgresPool(ctx context.Context) (*pgxpool.Pool, error) {
	if d.pool != nil {
		return d.pool, nil
	}
	if err := d.cfg.Require("DATABASE_URL"); err != nil {
		return nil, err
	}
	pool, err := postgres.Connect(ctx, d.cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	d.pool = pool
	return pool, nil
}

func (d *deps) sessionStore(ctx context.Context) (*redis.SessionStore, error) {
	rdb, err := d.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return redis.NewSessionStore(rdb, d.clock, d.cfg.SessionTTL), nil
}

func (d *deps) notificationService(ctx context.Context) (*app.NotificationService, error) {
	rdb, err := d.redisClient(ctx)
	if err != nil {
		return nil, err
	}
	return app.NewNotificationService(redis.NewNotificationLedger(rdb, d.clock), nil), nil
}

func (d *deps) managerRepo(ctx context.Context) (*postgres.ManagerRepo, error) {
	pool, err := d.postgresPool(ctx)
	if err != nil {
		return nil, err
	}
	return postgres.NewManagerRepo(pool), nil
}

func (d *deps) coordinator(ctx context.Context) (*app.ClaimCoordinator, error) {
	if err := d.cfg.Require("GITHUB_APP_ID", "GITHUB_APP_PRIVATE_KEY"); err != nil {
		return nil, err
	}
	managers, err := d.managerRepo(ctx)
	if err != nil {
		return nil, err
	}
	registry, err := githubapp.NewRegistry(githubapp.Config{
		AppID:         d.cfg.GitHubAppID,
		PrivateKeyPEM: []byte(d.cfg.GitHubAppPrivateKey),
		BaseURL:       d.cfg.GitHubAPIURL,
		Timeout:       d.cfg.GitHubTimeout,
	}, d.clock, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub registry: %w", err)
	}
	return app.NewClaimCoordinator(registry, managers, d.cfg.GitHubTimeout, d.clock, nil), nil
}
