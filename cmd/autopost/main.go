package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BrunoBianchi/Portyo-sub004/internal/autopost"
	"github.com/BrunoBianchi/Portyo-sub004/internal/config"
	"github.com/BrunoBianchi/Portyo-sub004/internal/generator"
	"github.com/BrunoBianchi/Portyo-sub004/internal/logger"
	"github.com/BrunoBianchi/Portyo-sub004/internal/metrics"
	"github.com/BrunoBianchi/Portyo-sub004/internal/queue"
	"github.com/BrunoBianchi/Portyo-sub004/internal/scheduler"
	"github.com/BrunoBianchi/Portyo-sub004/internal/store"
	"github.com/joho/godotenv"
)

// connectWithRetry attempts to connect to Redis with exponential backoff
func connectWithRetry(redisURL string, maxRetries int, log logger.Logger) (*queue.DelayQueue, error) {
	var q *queue.DelayQueue
	var err error

	for attempt := 0; attempt < maxRetries; attempt++ {
		q, err = queue.NewDelayQueue(redisURL)
		if err == nil {
			return q, nil
		}

		delay := time.Duration(1<<uint(attempt)) * time.Second
		if delay > 30*time.Second {
			delay = 30 * time.Second
		}

		log.Warn("Failed to connect to Redis, retrying",
			"attempt", attempt+1,
			"max_attempts", maxRetries,
			"error", err.Error(),
			"retry_in", delay.String())

		time.Sleep(delay)
	}

	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", maxRetries, err)
}

func main() {
	// Optional .env for local development
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Close()
	logger.SetDefault(log)

	mainLog := log.WithComponent(logger.ComponentMain)
	mainLog.Info("Auto-post service starting",
		"redis_url", cfg.RedisURL,
		"database", cfg.DatabasePath,
		"scan_spec", cfg.ScanSpec,
		"drain_spec", cfg.DrainSpec)

	db, err := store.Open(cfg.DatabasePath)
	if err != nil {
		mainLog.Error("Failed to open database", "error", err.Error())
		os.Exit(1)
	}

	delayQueue, err := connectWithRetry(cfg.RedisURL, 5, mainLog)
	if err != nil {
		mainLog.Error("Failed to connect to Redis", "error", err.Error())
		os.Exit(1)
	}
	defer delayQueue.Close()
	mainLog.Info("Successfully connected to Redis")

	schedules := store.NewScheduleStore(db)
	logs := store.NewExecutionLogStore(db)
	posts := store.NewPostStore(db)
	notifications := store.NewNotificationStore(db)

	gen := generator.New(cfg.Generator, log)
	processor := autopost.NewProcessor(schedules, logs, posts, notifications, gen, cfg.MaxPostsPerPeriod)

	scanner := scheduler.NewScanner(schedules, delayQueue, processor, delayQueue.Client(), scheduler.ScannerConfig{
		OverdueBuffer: cfg.OverdueBuffer,
		StaleCutoff:   cfg.StaleCutoff,
		Spacing:       cfg.QueueSpacing,
	})
	drainer := scheduler.NewDrainer(schedules, delayQueue, processor, cfg.DrainBatchSize)

	svc := scheduler.NewService(scanner, drainer, cfg.ScanSpec, cfg.DrainSpec)
	if err := svc.Start(); err != nil {
		mainLog.Error("Failed to start scheduler", "error", err.Error())
		os.Exit(1)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	sig := <-sigChan
	mainLog.Info("Received shutdown signal, initiating graceful shutdown", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	svc.Stop(shutdownCtx)

	snap := metrics.Default().GetSnapshot()
	mainLog.Info("Auto-post service shut down successfully",
		"scans", snap.ScansCompleted,
		"published", snap.PostsPublished,
		"failed", snap.PostsFailed,
		"quota_skips", snap.QuotaSkips)
}
