// Package main is the administrator CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kavindurs8/studifynew-sub001/config"
	"github.com/kavindurs8/studifynew-sub001/internal/auth"
	"github.com/kavindurs8/studifynew-sub001/internal/cli"
	"github.com/kavindurs8/studifynew-sub001/internal/liveclasses"
	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/database"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
	"github.com/kavindurs8/studifynew-sub001/pkg/redis"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run() error {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), logger)
	if err != nil {
		return fmt.Errorf("connecting database: %w", err)
	}
	defer pool.Close()
	if err := database.Migrate(ctx, pool, logger); err != nil {
		return fmt.Errorf("migrating: %w", err)
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		return fmt.Errorf("connecting redis: %w", err)
	}
	defer rdb.Close()

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

	deps := &cli.Dependencies{
		LiveClasses: liveclasses.NewService(liveclasses.NewRepository(pool), zoomClient, mailer.NewQueueSender(jobQueue), jobQueue, logger),
		Users:       auth.NewRepository(pool),
	}
	return cli.NewRootCmd(deps).ExecuteContext(ctx)
}

// newLogger writes warnings and errors to stderr so command output stays clean.
func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
