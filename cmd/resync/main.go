package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"receptionist_backend/internal/dashboard"
	"receptionist_backend/internal/resync"
	"receptionist_backend/internal/session"
	"receptionist_backend/platform/config"
	"receptionist_backend/platform/db"
	"receptionist_backend/platform/logger"
)

func main() {
	sweepLimit := flag.Int("sweep", 0, "re-sync up to N unsynced sessions and exit instead of serving the queue")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting resync worker", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	dashClient := dashboard.New(cfg, log)
	if dashClient == nil {
		log.Error("DASHBOARD_BASE_URL not configured; nothing to re-sync")
		panic("DASHBOARD_BASE_URL is required for the resync worker")
	}

	store := session.NewRepository(pool)

	if *sweepLimit > 0 {
		if err := resync.NewSweeper(store, dashClient, log).Sweep(ctx, *sweepLimit); err != nil {
			log.Error("sweep failed", "error", err)
			os.Exit(1)
		}
		log.Info("sweep complete", "limit", *sweepLimit)
		return
	}

	worker, err := resync.NewWorker(cfg, store, dashClient, log)
	if err != nil {
		log.Error("failed to initialize resync worker", "error", err)
		panic("failed to initialize resync worker: " + err.Error())
	}
	worker.Run(ctx)
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return errors.New(name + ": invalid retry attempts")
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
