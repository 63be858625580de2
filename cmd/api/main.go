package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/aesthetic-leads/internal/api/router"
	"github.com/wolfman30/aesthetic-leads/internal/app/bootstrap"
	"github.com/wolfman30/aesthetic-leads/internal/booking"
	appconfig "github.com/wolfman30/aesthetic-leads/internal/config"
	httpmiddleware "github.com/wolfman30/aesthetic-leads/internal/http/middleware"
	"github.com/wolfman30/aesthetic-leads/internal/leads"
	"github.com/wolfman30/aesthetic-leads/internal/notify"
	"github.com/wolfman30/aesthetic-leads/internal/observability/metrics"
	"github.com/wolfman30/aesthetic-leads/internal/ratelimit"
	"github.com/wolfman30/aesthetic-leads/pkg/logging"
)

func main() {
	cfg := appconfig.Load()

	logger := logging.New(cfg.LogLevel)
	logger.Info("starting aesthetic-leads API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"rate_limit_store", cfg.RateLimitStore,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, sqlDB, err := connectPostgres(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	if pool != nil {
		defer pool.Close()
		defer func() { _ = sqlDB.Close() }()
	}

	var leadsRepo leads.Repository
	if pool != nil {
		leadsRepo = leads.NewPostgresRepository(pool)
	} else {
		logger.Warn("DATABASE_URL not set; leads are kept in memory only")
		leadsRepo = leads.NewInMemoryRepository()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, cfg.RateLimitStore == bootstrap.RateLimitStoreRedis)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	rlStore, err := bootstrap.BuildRateLimitStore(cfg, pool, redisClient, logger)
	if err != nil {
		logger.Error("failed to configure rate limiting", "error", err)
		os.Exit(1)
	}
	limiter := ratelimit.NewLimiter(rlStore.Counter, cfg.RateLimitPerHour)

	// Redis counters expire on their own and have no pruner.
	pruner := ratelimit.NewPruneScheduler(rlStore.Pruner, cfg.RateLimitRetention, logger)
	if pruner != nil {
		if err := pruner.Start(cfg.RateLimitPruneCron); err != nil {
			logger.Error("failed to schedule rate limit pruning", "error", err, "spec", cfg.RateLimitPruneCron)
			os.Exit(1)
		}
	}

	metricsHandler, bookingMetrics := setupMetrics()

	emailSender, err := bootstrap.BuildEmailSender(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to configure notification email", "error", err)
		os.Exit(1)
	}
	opts := []booking.Option{
		booking.WithMetrics(bookingMetrics),
		booking.WithContactNumber(cfg.ContactNumber()),
	}
	if notifier := notify.NewLeadNotifier(emailSender, cfg.NotifyEmailTo, cfg.SiteURL, logger); notifier != nil {
		opts = append(opts, booking.WithNotifier(notifier))
	}
	bookingService := booking.NewService(limiter, leadsRepo, logger, opts...)

	routerCfg := &router.Config{
		Logger:         logger,
		BookingHandler: booking.NewHandler(bookingService, logger),
		LeadsHandler:   leads.NewHandler(leadsRepo, logger).WithMetrics(bookingMetrics),
		AdminAuth: httpmiddleware.AdminAuthConfig{
			User:      cfg.AdminUser,
			Password:  cfg.AdminPassword,
			JWTSecret: cfg.AdminJWTSecret,
		},
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		DB:                 sqlDB,
	}
	if pool != nil {
		routerCfg.HealthCheck = pool.Ping
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router.New(routerCfg),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if err := bookingService.Wait(shutdownCtx); err != nil {
		logger.Warn("pending lead notifications abandoned", "error", err)
	}
	<-pruner.Stop().Done()

	logger.Info("server stopped")
}

// setupMetrics builds a private registry with runtime collectors and the
// booking metrics, and the /metrics handler serving it.
func setupMetrics() (http.Handler, *metrics.BookingMetrics) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{}), metrics.NewBookingMetrics(registry)
}

// connectPostgres opens the pgx pool used by the stores and a lib/pq handle
// for the admin dashboard. Both are nil when databaseURL is empty.
func connectPostgres(ctx context.Context, databaseURL string, logger *logging.Logger) (*pgxpool.Pool, *sql.DB, error) {
	if strings.TrimSpace(databaseURL) == "" {
		logger.Warn("DATABASE_URL not set; running without postgres")
		return nil, nil, nil
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("create pgx pool: %w", err)
	}
	sqlDB, err := sql.Open("postgres", databaseURL)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("open dashboard db: %w", err)
	}
	sqlDB.SetMaxOpenConns(4)
	return pool, sqlDB, nil
}
