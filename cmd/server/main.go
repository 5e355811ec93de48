package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	redisv9 "github.com/redis/go-redis/v9"

	"company_backend/internal/app/config"
	"company_backend/internal/app/router"
	"company_backend/internal/feature/company/adapters"
	companyhandler "company_backend/internal/feature/company/transport/handler"
	"company_backend/internal/feature/company/usecase"
	"company_backend/internal/platform/cache"
	"company_backend/internal/platform/db"
	platformhandler "company_backend/internal/platform/http/handler"
	"company_backend/internal/platform/logger"
	platformredis "company_backend/internal/platform/redis"
	"company_backend/internal/shared/ratelimiter"
)

// redisPinger は *redis.Client をヘルスチェック用の Pinger に適合させます。
type redisPinger struct{ rdb *redisv9.Client }

func (p redisPinger) PingContext(ctx context.Context) error { return p.rdb.Ping(ctx).Err() }

func main() {
	if err := run(); err != nil {
		slog.Error("server exited with error", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logger.Init(cfg.LogFormat, cfg.LogLevel)
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// db
	gdb, err := db.OpenDB(cfg.DB(), cfg.DBConnectTimeout, cfg.RunMigrations)
	if err != nil {
		return err
	}
	sqlDB, err := gdb.DB()
	if err != nil {
		return err
	}
	defer func() {
		if err := sqlDB.Close(); err != nil {
			slog.Error("Failed to close database", "error", err)
		}
	}()
	checks := map[string]platformhandler.Pinger{"database": sqlDB}

	// Redis
	rdb, err := platformredis.NewRedisClient(ctx, cfg.Redis())
	if err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
		rdb = nil
	}
	if rdb != nil {
		checks["cache"] = redisPinger{rdb: rdb}
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("Failed to close Redis client", "error", err)
			}
		}()
	}

	// Repository
	companyRepo := adapters.NewCompanyRepository(gdb)

	// Redisキャッシュでラップ
	cachedCompanyRepo := cache.NewCachingCompanyRepository(rdb, cfg.CacheTTL, companyRepo, "companies")

	// Usecase
	companyUC := usecase.NewCompanyUsecase(cachedCompanyRepo)

	// Handler
	companyH := companyhandler.NewCompanyHandler(companyUC)
	healthH := platformhandler.NewHealthHandler(checks)

	// ルータ生成
	r := router.NewRouter(router.Options{
		Production:     cfg.IsProduction(),
		AuthDisabled:   cfg.AuthDisabled,
		JWT:            cfg.JWT(),
		AllowedOrigins: cfg.CORSAllowedOrigins,
		WriteLimiter:   ratelimiter.NewRateLimiter(cfg.RateLimitWrites, time.Minute),
	}, healthH, companyH)

	srv := &http.Server{
		Addr:         cfg.AppAddr,
		Handler:      r,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", cfg.AppAddr, "env", cfg.AppEnv)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down server", "timeout", cfg.AppShutdownTimeout)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.AppShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	slog.Info("server stopped")
	return nil
}
