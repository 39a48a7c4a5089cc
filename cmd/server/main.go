package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anandavicky123/syncertica/internal/adapter/githubapp"
	"github.com/anandavicky123/syncertica/internal/adapter/httpserver"
	"github.com/anandavicky123/syncertica/internal/adapter/metrics"
	"github.com/anandavicky123/syncertica/internal/adapter/postgres"
	"github.com/anandavicky123/syncertica/internal/adapter/redis"
	"github.com/anandavicky123/syncertica/internal/app"
	"github.com/anandavicky123/syncertica/internal/platform/config"
	"github.com/anandavicky123/syncertica/internal/platform/logging"
	"github.com/anandavicky123/syncertica/internal/platform/version"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jonboulle/clockwork"
	goredis "github.com/redis/go-redis/v9"
)

const (
	startupTimeout  = 30 * time.Second
	shutdownTimeout = 10 * time.Second

	postgresCheckTimeout = 2 * time.Second
	redisCheckTimeout    = time.Second
)

func runGracefulShutdown(srv *httpserver.Server) <-chan struct{} {
	done := make(chan struct{})
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		slog.Info("Shutdown signal received, cleaning up...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Server shutdown error", "error", err)
		}

		close(done)
	}()

	return done
}

func setupConfig() *config.Config {
	cfg, err := config.Load()
	if err != nil {
		// Use log before slog is initialized
		log.Fatalf("Failed to load config: %v", err)
	}
	return cfg
}

func setupDB(ctx context.Context, cfg *config.Config) *pgxpool.Pool {
	pool, err := postgres.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("Failed to open database", "error", err)
		os.Exit(1)
	}
	return pool
}

func setupRedis(ctx context.Context, cfg *config.Config, breakers *metrics.BreakerMetrics) *goredis.Client {
	client, err := redis.NewClient(ctx, cfg.RedisURL, redis.NewCircuitBreakerHook(breakers))
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	return client
}

func setupRegistry(cfg *config.Config, clock clockwork.Clock, breakers *metrics.BreakerMetrics) *githubapp.Registry {
	registry, err := githubapp.NewRegistry(githubapp.Config{
		AppID:         cfg.GitHubAppID,
		PrivateKeyPEM: []byte(cfg.GitHubAppPrivateKey),
		BaseURL:       cfg.GitHubAPIURL,
		Timeout:       cfg.GitHubTimeout,
	}, clock, breakers)
	if err != nil {
		slog.Error("Failed to create GitHub registry", "error", err)
		os.Exit(1)
	}
	return registry
}

func main() {
	clock := clockwork.NewRealClock()

	cfg := setupConfig()

	logging.InitLogger(cfg.LogLevel, cfg.LogFormat)
	slog.Info("Application starting", "env", cfg.AppEnv, "port", cfg.Port, "version", version.Get().Version)

	reg := metrics.NewRegistry()
	httpMetrics := metrics.NewHTTPMetrics(reg)
	claimMetrics := metrics.NewClaimMetrics(reg)
	notificationMetrics := metrics.NewNotificationMetrics(reg)
	breakerMetrics := metrics.NewBreakerMetrics(reg)

	startupCtx, cancel := context.WithTimeout(context.Background(), startupTimeout)
	pool := setupDB(startupCtx, cfg)
	redisClient := setupRedis(startupCtx, cfg, breakerMetrics)
	cancel()
	defer pool.Close()
	defer func() { _ = redisClient.Close() }()

	registry := setupRegistry(cfg, clock, breakerMetrics)

	sessions := redis.NewSessionStore(redisClient, clock, cfg.SessionTTL)
	ledger := redis.NewNotificationLedger(redisClient, clock)
	managers := postgres.NewManagerRepo(pool)

	actors := app.NewActorResolver(sessions)
	coordinator := app.NewClaimCoordinator(registry, managers, cfg.GitHubTimeout, clock, claimMetrics)
	notifications := app.NewNotificationService(ledger, notificationMetrics)

	srv := httpserver.NewServer(
		cfg,
		actors,
		sessions,
		coordinator,
		notifications,
		httpMetrics,
		metrics.Handler(reg),
		[]httpserver.HealthCheck{
			{Name: "postgres", Check: postgres.Ping(pool), Timeout: postgresCheckTimeout},
			{Name: "redis", Check: redis.Ping(redisClient), Timeout: redisCheckTimeout},
			{Name: "github", Check: registry.Health, Optional: true},
		},
	)

	done := runGracefulShutdown(srv)

	if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server error", "error", err)
		os.Exit(1)
	}

	<-done
}
