// Package main is the entry point for the itinerary API server.
// Its sole responsibility is wiring dependencies together and starting the
// server and the retention purge scheduler. No business logic belongs here.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/plan-itinerary/internal/cache"
	"github.com/pkordes/plan-itinerary/internal/config"
	"github.com/pkordes/plan-itinerary/internal/currency"
	"github.com/pkordes/plan-itinerary/internal/handler"
	"github.com/pkordes/plan-itinerary/internal/metrics"
	"github.com/pkordes/plan-itinerary/internal/middleware"
	"github.com/pkordes/plan-itinerary/internal/repo"
	"github.com/pkordes/plan-itinerary/internal/scheduler"
	"github.com/pkordes/plan-itinerary/internal/service"
	"github.com/pkordes/plan-itinerary/migrations"
)

func main() {
	if len(os.Args) > 1 && (os.Args[1] == "-h" || os.Args[1] == "--help") {
		usage, _ := config.Usage()
		fmt.Fprintln(os.Stderr, usage)
		return
	}
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// --- Config -----------------------------------------------------------
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	// --- Logger -----------------------------------------------------------
	var logLevel slog.Level
	if err := logLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database ---------------------------------------------------------
	// pgxpool.New does not open connections immediately; the ping does.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("create database pool: %w", err)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	logger.Info("database connection established")

	if cfg.MigrateOnStart {
		if err := migrate(ctx, pool, logger); err != nil {
			return err
		}
	}

	// --- Cache ------------------------------------------------------------
	var planCache service.PlanCache
	if cfg.RedisURL != "" {
		c, err := cache.Connect(ctx, cfg.RedisURL, cfg.CacheTTL)
		if err != nil {
			return err
		}
		defer c.Close()
		planCache = c
		logger.Info("plan cache enabled", "ttl", cfg.CacheTTL)
	}

	// --- Services ---------------------------------------------------------
	conv, err := currency.NewConverter(cfg.ExchangeRates)
	if err != nil {
		return fmt.Errorf("exchange rates: %w", err)
	}
	policy, err := service.ParseOverlapPolicy(cfg.OverlapPolicy)
	if err != nil {
		return fmt.Errorf("config: OVERLAP_POLICY: %w", err)
	}
	m := metrics.New()
	opts := service.Options{
		Logger:          logger,
		Metrics:         m,
		Cache:           planCache,
		DefaultCurrency: cfg.DefaultCurrency,
		OverlapPolicy:   policy,
	}

	reads := repo.NewRepos(pool)
	tx := repo.NewTxRunner(pool)
	plans := service.NewPlanService(reads, tx, opts)
	itinerary := service.NewItineraryService(reads, tx, conv, opts)
	purge := service.NewRetentionPurge(reads.Details, cfg.RetentionWindow, opts)

	logger.Info("itinerary engine configured",
		"rates", cfg.ExchangeRates.String(),
		"default_currency", cfg.DefaultCurrency,
		"overlap_policy", policy.String(),
		"retention_window", cfg.RetentionWindow,
	)

	// --- Router -----------------------------------------------------------
	// RequestID must run before the logger so every line carries the ID.
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.NewSlogLogger(logger))
	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.NewCORSHandler(cfg.CORSOrigins))
	r.Use(middleware.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst, logger).Handler)
	r.Use(middleware.NewMaxBodySizeHandler(cfg.MaxBodyBytes))

	r.Handle("/metrics", m.Handler())
	r.Mount("/", handler.NewServer(plans, itinerary, pool, logger).Routes())

	// --- HTTP Server ------------------------------------------------------
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	sched := scheduler.New(purge, cfg.PurgeSchedule, logger)
	if err := sched.Start(); err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server starting", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		err := srv.Shutdown(shutdownCtx)
		select {
		case <-sched.Stop().Done():
		case <-shutdownCtx.Done():
			logger.Warn("retention purge still running at shutdown")
		}
		return err
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("server stopped")
	return nil
}

// migrate applies pending goose migrations through a database/sql view of
// the pool.
func migrate(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	provider, err := goose.NewProvider(goose.DialectPostgres, db, migrations.FS)
	if err != nil {
		return fmt.Errorf("create goose provider: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	for _, res := range results {
		logger.Info("migration applied", "version", res.Source.Version, "duration", res.Duration)
	}
	return nil
}
