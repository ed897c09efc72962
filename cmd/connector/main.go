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
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/Strob0t/crowdin-gamification/internal/adapter/crowdin"
	cghttp "github.com/Strob0t/crowdin-gamification/internal/adapter/http"
	cgnats "github.com/Strob0t/crowdin-gamification/internal/adapter/nats"
	cfotel "github.com/Strob0t/crowdin-gamification/internal/adapter/otel"
	"github.com/Strob0t/crowdin-gamification/internal/adapter/postgres"
	"github.com/Strob0t/crowdin-gamification/internal/adapter/ristretto"
	"github.com/Strob0t/crowdin-gamification/internal/config"
	"github.com/Strob0t/crowdin-gamification/internal/logger"
	"github.com/Strob0t/crowdin-gamification/internal/middleware"
	"github.com/Strob0t/crowdin-gamification/internal/resilience"
	"github.com/Strob0t/crowdin-gamification/internal/secrets"
	"github.com/Strob0t/crowdin-gamification/internal/service"
	"github.com/Strob0t/crowdin-gamification/internal/trigger"
	"github.com/Strob0t/crowdin-gamification/internal/worker"
)

func main() {
	if len(os.Args) > 1 && os.Args[1] == "admin" {
		if err := runAdmin(os.Args[2:]); err != nil {
			fmt.Fprintln(os.Stderr, "error:", err)
			os.Exit(1)
		}
		return
	}

	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	slog.SetDefault(logger.New(cfg.Logging))
	slog.Info("config loaded",
		"port", cfg.Server.Port,
		"webhook_url", cfg.Server.WebhookURL(),
		"log_level", cfg.Logging.Level,
		"workers", cfg.Worker.Size,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// --- Infrastructure ---

	otelShutdown, err := cfotel.Init(ctx, cfg.OTEL, cfg.Logging.Service)
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := otelShutdown(flushCtx); err != nil {
			slog.Warn("otel shutdown", "error", err)
		}
	}()

	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("otel metrics: %w", err)
	}

	pool, err := postgres.NewPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("postgres: %w", err)
	}
	defer pool.Close()
	slog.Info("postgres connected")

	if err := postgres.RunMigrations(ctx, cfg.Postgres.DSN); err != nil {
		return fmt.Errorf("migrations: %w", err)
	}
	slog.Info("migrations applied")

	sealer, err := secrets.NewSealer(cfg.Secrets.TokenKey)
	if err != nil {
		return fmt.Errorf("secrets: %w", err)
	}
	store := postgres.NewStore(pool, sealer)

	broadcaster, err := cgnats.Connect(ctx, cfg.NATS)
	if err != nil {
		return fmt.Errorf("nats: %w", err)
	}
	defer func() { _ = broadcaster.Close() }()

	projectCache, err := ristretto.New(cfg.Cache.MaxCostBytes)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer projectCache.Close()

	breaker := resilience.NewBreaker("crowdin", cfg.Breaker.MaxFailures, cfg.Breaker.Timeout,
		resilience.WithFailurePredicate(crowdin.IsRemoteFailure))
	remote := crowdin.NewClient(cfg.Crowdin.APIURL, cfg.Crowdin.RequestTimeout, crowdin.WithBreaker(breaker))

	workers, err := worker.New(cfg.Worker.Size, cfg.Worker.QueueSize)
	if err != nil {
		return fmt.Errorf("worker pool: %w", err)
	}

	// --- Services ---

	registry, err := trigger.NewRegistry(trigger.DefaultPlugins()...)
	if err != nil {
		return fmt.Errorf("trigger registry: %w", err)
	}

	dispatcher := service.NewDispatcher(service.DispatcherDeps{
		Registry:    registry,
		Hooks:       store,
		Rules:       store,
		Mapper:      store,
		Identities:  store,
		Broadcaster: broadcaster,
		Crowdin:     remote,
		Pool:        workers,
		TaskTimeout: cfg.Worker.TaskTimeout,
	})
	dispatcher.SetMetrics(metrics)

	roles := service.NewStaticRoles(cfg.Auth.RewardingManagers)
	hookSvc := service.NewWebhookService(store, remote, store, roles, projectCache, service.WebhookOptions{
		CallbackURL:    cfg.Server.WebhookURL(),
		SecretLength:   cfg.Crowdin.SecretLength,
		ProjectTTL:     cfg.Cache.ProjectTTL,
		RefreshWorkers: cfg.Crowdin.RefreshWorkers,
	})
	hookSvc.SetMetrics(metrics)

	// --- HTTP ---

	handlers := &cghttp.Handlers{
		Triggers: dispatcher,
		Hooks:    hookSvc,
		Health: map[string]cghttp.HealthCheck{
			"postgres": pool.Ping,
			"nats": func(context.Context) error {
				if !broadcaster.Healthy() {
					return errors.New("disconnected")
				}
				return nil
			},
			"crowdin": func(context.Context) error {
				if breaker.State() == resilience.StateOpen {
					return errors.New("circuit open")
				}
				return nil
			},
		},
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(cghttp.Logger)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(cghttp.SecurityHeaders)
	r.Use(cfotel.HTTPMiddleware(cfg.Logging.Service))
	r.Use(chimw.Timeout(30 * time.Second))

	cghttp.MountRoutes(r, handlers, cfg.Server, cfg.Auth, roles)

	addr := ":" + cfg.Server.Port
	srv := &http.Server{
		Addr:              addr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		return fmt.Errorf("server: %w", err)
	}
	slog.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownGrace)
	defer cancel()

	// Stop intake first, then let accepted deliveries drain.
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http shutdown", "error", err)
	}
	if err := workers.Shutdown(shutdownCtx); err != nil {
		slog.Warn("worker pool did not drain", "error", err, "queued", workers.Queued())
	}
	return nil
}
