// Package main runs the background job worker delivering notifications over
// email, SMS and WhatsApp.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/centre-jeunesse/backend/config"
	"github.com/centre-jeunesse/backend/internal/locale"
	"github.com/centre-jeunesse/backend/internal/notifications"
	"github.com/centre-jeunesse/backend/internal/worker"
	"github.com/centre-jeunesse/backend/pkg/database"
	"github.com/centre-jeunesse/backend/pkg/queue"
	"github.com/centre-jeunesse/backend/pkg/redis"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	notifRepo := notifications.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	mailer := worker.NewMailer(cfg.Email)
	if mailer == nil {
		logger.Warn("no SMTP host configured, email delivery disabled")
	}
	deliverer := worker.NewDeliverer(
		notifRepo,
		jobQueue,
		mailer,
		worker.NewSMSSender(cfg.SMS),
		worker.NewWhatsAppSender(cfg.WhatsApp),
		locale.Load(cfg.Locale.Default),
		logger,
	)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go deliverer.Run(workerCtx)
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	time.Sleep(2 * time.Second)
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
