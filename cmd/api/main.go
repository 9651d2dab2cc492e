package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"receptionist_backend/internal/dashboard"
	"receptionist_backend/internal/email"
	"receptionist_backend/internal/events"
	apphttp "receptionist_backend/internal/http"
	"receptionist_backend/internal/http/router"
	"receptionist_backend/internal/notify"
	"receptionist_backend/internal/resync"
	"receptionist_backend/internal/scheduling"
	"receptionist_backend/internal/session"
	"receptionist_backend/internal/webhook"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/db"
	"receptionist_backend/platform/logger"
	"receptionist_backend/platform/validator"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	// Initialize structured logger
	log := logger.New(cfg.Env)
	log.Info("starting server", "env", cfg.Env, "addr", cfg.HTTPAddr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ========================================================================
	// Infrastructure Layer
	// ========================================================================

	if err := withRetry(ctx, log, "database migrations", 5, 2*time.Second, func() error {
		return db.RunMigrations(ctx, cfg, "migrations")
	}); err != nil {
		log.Error("failed to run database migrations", "error", err)
		panic("failed to run database migrations: " + err.Error())
	}
	log.Info("database migrations complete")

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()
	log.Info("database connection established")

	// Event bus for decoupled communication between modules
	eventBus := events.NewInMemoryBus(log)

	// Shared validator instance for dependency injection
	val := validator.New()

	// ========================================================================
	// Outbound Clients
	// ========================================================================

	dashClient := dashboard.New(cfg, log)
	if dashClient == nil {
		log.Warn("DASHBOARD_BASE_URL not configured; analyzed calls will not sync downstream")
	}

	schedClient := scheduling.New(cfg, log)
	if schedClient == nil {
		log.Warn("SCHEDULING_API_URL not configured; availability and booking tools answer neutrally")
	}

	resyncQueue, closeQueue := initResyncQueue(cfg, log)
	if closeQueue != nil {
		defer closeQueue()
	}

	// ========================================================================
	// Domain Modules (Composition Root)
	// ========================================================================

	// Notify module subscribes to domain events (not HTTP-facing)
	notifyModule := notify.NewModule(notify.NewClient(cfg, log), email.NewAlertSender(cfg), cfg, log)
	notifyModule.RegisterHandlers(eventBus)

	store := session.NewRepository(pool)

	var enqueuer webhook.ResyncEnqueuer
	if resyncQueue != nil {
		enqueuer = resyncQueue
	}
	webhookSvc := webhook.NewService(store, schedClient, dashClient, enqueuer, eventBus, cfg, log)
	webhookModule := webhook.NewModule(webhookSvc, val, log)

	// ========================================================================
	// HTTP Layer
	// ========================================================================

	app := &apphttp.App{
		Config: cfg,
		Logger: log,
		Health: db.NewPoolAdapter(pool),
		Modules: []apphttp.Module{
			webhookModule,
		},
	}

	engine := router.New(app)

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	srvErr := make(chan error, 1)
	go func() {
		log.Info("server listening", "addr", cfg.HTTPAddr)
		srvErr <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Info("shutdown signal received, gracefully shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", "error", err)
		}
	case err := <-srvErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			panic("server error: " + err.Error())
		}
	}
}

func initResyncQueue(cfg config.ResyncConfig, log *logger.Logger) (*resync.Client, func()) {
	if cfg.GetRedisURL() == "" {
		log.Warn("REDIS_URL not configured; deferred dashboard re-sync disabled")
		return nil, nil
	}

	queue, err := resync.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize resync queue client", "error", err)
		return nil, nil
	}

	return queue, func() {
		_ = queue.Close()
	}
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
