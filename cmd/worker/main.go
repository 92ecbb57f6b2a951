// Package main runs the background job worker (notification emails, orphaned meeting cleanup).
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kavindurs8/studifynew-sub001/config"
	"github.com/kavindurs8/studifynew-sub001/internal/emaillogs"
	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/worker"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/database"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
	"github.com/kavindurs8/studifynew-sub001/pkg/redis"
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

	var deliverer mailer.Deliverer
	if cfg.Email.SendGridAPIKey != "" {
		deliverer = mailer.NewSendGridDeliverer(cfg.Email.SendGridAPIKey, cfg.Email.FromName, cfg.Email.FromAddress)
	} else {
		logger.Warn("SENDGRID_API_KEY not set; emails are logged instead of sent")
		deliverer = mailer.NewLogDeliverer(logger)
	}

	zoomClient := zoom.NewClient(zoom.Config{
		AccountID:    cfg.Zoom.AccountID,
		ClientID:     cfg.Zoom.ClientID,
		ClientSecret: cfg.Zoom.ClientSecret,
		AuthURL:      cfg.Zoom.AuthURL,
		APIBaseURL:   cfg.Zoom.APIBaseURL,
		Timeout:      time.Duration(cfg.Zoom.TimeoutSec) * time.Second,
		MaxRetries:   cfg.Zoom.MaxRetries,
	}, logger)

	jobQueue := queue.NewQueue(rdb.Client, logger)
	runner := worker.NewRunner(jobQueue, time.Duration(cfg.Worker.RetryBackoffSec)*time.Second, logger)
	if err := runner.Register(queue.JobTypeEmail, worker.NewEmailProcessor(emaillogs.NewRepository(pool), deliverer, logger)); err != nil {
		logger.Fatal("register email processor", zap.Error(err))
	}
	if err := runner.Register(queue.JobTypeMeetingCleanup, worker.NewMeetingCleanupProcessor(zoomClient, logger)); err != nil {
		logger.Fatal("register meeting cleanup processor", zap.Error(err))
	}

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		runner.Run(workerCtx)
		close(done)
	}()
	logger.Info("worker started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	select {
	case <-done:
	case <-time.After(10 * time.Second):
		logger.Warn("worker did not stop in time")
	}
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
