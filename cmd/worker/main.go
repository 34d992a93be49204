package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"kcbxt/internal/config"
	"kcbxt/internal/messaging"
	"kcbxt/internal/metrics"
	"kcbxt/internal/reminder"
	"kcbxt/internal/schedule"
	"kcbxt/internal/tasks"
	"kcbxt/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	scheduleStore, err := schedule.NewFileStore(filepath.Join(cfg.Data.Dir, "schedules"), logger)
	if err != nil {
		log.Fatalf("init schedule store: %v", err)
	}

	redisAddr := cfg.Redis.RedisAddr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	asynqClient := asynq.NewClient(redisOpt)
	defer asynqClient.Close()

	sender, err := messaging.NewSender(cfg.Messaging)
	if err != nil {
		log.Fatalf("init messaging sender: %v", err)
	}

	evaluator := reminder.NewEvaluator(
		scheduleStore,
		worker.NewQueueNotifier(asynqClient),
		time.Duration(cfg.Reminder.IntervalSeconds)*time.Second,
		time.Duration(cfg.Reminder.LookaheadSeconds)*time.Second,
		logger,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go evaluator.Run(ctx)

	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: 10,
	})

	mux := asynq.NewServeMux()
	mux.Use(metrics.AsynqMetricsMiddleware())
	mux.Handle(tasks.TypeReminderNotify, worker.NewNotifyTaskHandler(sender, logger))

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
