package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/stuga-cloud/console/internal/app/migrate"
	httpx "github.com/stuga-cloud/console/internal/http"
	"github.com/stuga-cloud/console/internal/platform"
	"github.com/stuga-cloud/console/internal/repository/postgres"
	"github.com/stuga-cloud/console/internal/resolver"
	"github.com/stuga-cloud/console/internal/service/auth"
	"github.com/stuga-cloud/console/internal/service/container"
	"github.com/stuga-cloud/console/internal/service/logs"
	"github.com/stuga-cloud/console/internal/service/member"
	"github.com/stuga-cloud/console/internal/service/namespace"
	"github.com/stuga-cloud/console/internal/service/project"
	"github.com/stuga-cloud/console/internal/wizard"
	"github.com/stuga-cloud/console/internal/ws"
	"github.com/stuga-cloud/console/pkg/config"
	"github.com/stuga-cloud/console/pkg/logger"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		os.Stderr.WriteString("failed to read .env: " + err.Error() + "\n")
	}
	cfg := config.LoadConsoleConfig()
	log := logger.New("console", logger.ParseLevel(cfg.LogLevel))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	runner, err := migrate.New(pool, cfg.DatabaseURL, cfg.MigrationsDir, log)
	if err != nil {
		log.Error("failed to configure migrations", "error", err)
		os.Exit(1)
	}
	defer runner.Close()
	if err := runner.Ping(ctx); err != nil {
		log.Error("database ping failed", "error", err)
		os.Exit(1)
	}
	schema, err := runner.Ensure(ctx)
	if err != nil {
		log.Error("migrations failed", "error", err)
		os.Exit(1)
	}

	remote, err := platform.New(cfg.PlatformAPIURL, cfg.PlatformAPIToken, platform.WithTimeout(cfg.PlatformTimeout))
	if err != nil {
		log.Error("failed to configure platform client", "error", err)
		os.Exit(1)
	}
	if cfg.PlatformAPIToken == "" {
		log.Warn("platform api token is empty; platform calls will be rejected")
	}

	repo := postgres.New(pool)
	res := resolver.New(repo, remote)
	logHub := ws.NewHub()

	projectSvc := project.New(res, repo, repo, log)
	containerSvc := container.New(res, repo, repo, remote, log)
	services := httpx.Services{
		Auth:       auth.New(repo, log, cfg),
		Projects:   projectSvc,
		Namespaces: namespace.New(res, repo, remote, log),
		Containers: containerSvc,
		Members:    member.New(res, repo, repo, projectSvc, log),
		Logs:       logs.New(containerSvc, logHub, cfg.LogStreamInterval, log),
		Settings: httpx.Settings{
			BaseContainerDomain: cfg.BaseContainerDomain,
			Registries:          wizard.Registries(cfg.DockerHubURL, cfg.PrivateRegistryURL),
		},
	}

	limiter := httpx.NewMemoryRateLimiter()
	if addr := strings.TrimSpace(cfg.RateLimitRedisAddr); addr != "" {
		redisLimiter, err := httpx.NewRedisRateLimiter(addr, cfg.RateLimitRedisPass, cfg.RateLimitRedisDB, log)
		if err != nil {
			log.Warn("redis rate limiter unavailable", "error", err)
		} else {
			limiter.Close()
			limiter = redisLimiter
		}
	}

	router := httpx.NewRouter(log, services, limiter, cfg.SessionCookieName, pool.Ping)
	defer router.Close()

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errorCh := make(chan error, 1)
	go func() {
		log.Info("console server starting", "env", cfg.Environment, "addr", cfg.Addr, "platform", cfg.PlatformAPIURL, "schema_version", schema.Current)
		errorCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
		log.Info("console server stopped")
	case err := <-errorCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			os.Exit(1)
		}
	}
}
