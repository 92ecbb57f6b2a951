// Package main runs the live class approval HTTP server with graceful shutdown.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kavindurs8/studifynew-sub001/config"
	"github.com/kavindurs8/studifynew-sub001/internal/auth"
	"github.com/kavindurs8/studifynew-sub001/internal/emaillogs"
	"github.com/kavindurs8/studifynew-sub001/internal/liveclasses"
	"github.com/kavindurs8/studifynew-sub001/internal/mailer"
	"github.com/kavindurs8/studifynew-sub001/internal/middleware"
	"github.com/kavindurs8/studifynew-sub001/internal/models"
	"github.com/kavindurs8/studifynew-sub001/internal/otp"
	"github.com/kavindurs8/studifynew-sub001/internal/zoom"
	"github.com/kavindurs8/studifynew-sub001/pkg/database"
	"github.com/kavindurs8/studifynew-sub001/pkg/queue"
	"github.com/kavindurs8/studifynew-sub001/pkg/redis"
	"github.com/kavindurs8/studifynew-sub001/pkg/response"
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

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	if !cfg.Zoom.Enabled() {
		logger.Warn("zoom credentials not configured; approve and reschedule will fail")
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
	sender := mailer.NewQueueSender(jobQueue)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)

	// Auth and teacher email verification
	otpService := otp.NewService(rdb.Client, sender, otp.Config{
		Length:      cfg.OTP.Length,
		TTL:         time.Duration(cfg.OTP.TTLMinutes) * time.Minute,
		MaxAttempts: cfg.OTP.MaxAttempts,
	}, logger)
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, otpService, logger)

	// Live classes
	liveClassRepo := liveclasses.NewRepository(pool)
	liveClassService := liveclasses.NewService(liveClassRepo, zoomClient, sender, jobQueue, logger)
	liveClassHandler := liveclasses.NewHandler(liveClassService, logger)

	emailLogsHandler := emaillogs.NewHandler(emaillogs.NewRepository(pool))

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	// Health
	router.GET("/health", func(c *gin.Context) { response.OK(c, gin.H{"status": "ok"}) })

	// Auth (public)
	authGroup := router.Group("/auth")
	{
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/otp/request", authHandler.RequestOTP)
		authGroup.POST("/otp/verify", authHandler.VerifyOTP)
	}

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		api.POST("/live-classes", middleware.RequireRole(models.RoleTeacher), liveClassHandler.Create)
		api.GET("/live-classes", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), liveClassHandler.List)
		api.GET("/live-classes/:id", middleware.RequireRole(models.RoleTeacher, models.RoleAdmin), liveClassHandler.GetByID)
	}

	// Admin console
	admin := router.Group("/admin")
	admin.Use(middleware.JWT(jwtService), middleware.RequireRole(models.RoleAdmin))
	{
		admin.GET("/users", authHandler.List)
		admin.GET("/live-classes", liveClassHandler.AdminList)
		admin.GET("/live-classes/:id/emails", emailLogsHandler.ListBySession)
		admin.POST("/live-classes/:id/approve", liveClassHandler.Approve)
		admin.POST("/live-classes/:id/reject", liveClassHandler.Reject)
		admin.POST("/live-classes/:id/reschedule", liveClassHandler.Reschedule)
		admin.POST("/live-classes/:id/cancel", liveClassHandler.Cancel)
	}

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
