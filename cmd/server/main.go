// Package main runs the youth center HTTP server with WebSocket capacity
// updates and graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/centre-jeunesse/backend/config"
	"github.com/centre-jeunesse/backend/internal/auth"
	"github.com/centre-jeunesse/backend/internal/badges"
	"github.com/centre-jeunesse/backend/internal/events"
	"github.com/centre-jeunesse/backend/internal/locale"
	"github.com/centre-jeunesse/backend/internal/locations"
	"github.com/centre-jeunesse/backend/internal/members"
	"github.com/centre-jeunesse/backend/internal/middleware"
	"github.com/centre-jeunesse/backend/internal/notifications"
	"github.com/centre-jeunesse/backend/internal/realtime"
	"github.com/centre-jeunesse/backend/internal/registrations"
	"github.com/centre-jeunesse/backend/pkg/database"
	"github.com/centre-jeunesse/backend/pkg/queue"
	"github.com/centre-jeunesse/backend/pkg/redis"
	"github.com/centre-jeunesse/backend/pkg/response"
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

	if err := database.Migrate(ctx, pool); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	loc := locale.Load(cfg.Locale.Default)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	redisPubSub := realtime.NewRedisPubSub(rdb.Client, logger)
	hub := realtime.NewHub(logger, redisPubSub, redisPubSub)
	jobQueue := queue.NewQueue(rdb.Client, logger)

	// Auth
	authRepo := auth.NewRepository(pool)
	authHandler := auth.NewHandler(authRepo, jwtService, logger)

	// Members
	memberRepo := members.NewRepository(pool)
	memberHandler := members.NewHandler(memberRepo, logger)

	// Notifications
	notifRepo := notifications.NewRepository(pool)
	dispatcher := notifications.NewDispatcher(notifRepo, jobQueue, logger)
	notifHandler := notifications.NewHandler(notifRepo, logger)

	// Events and registrations
	eventRepo := events.NewRepository(pool)
	registrationRepo := registrations.NewRepository(pool)
	capacityFeed := realtime.NewCapacityFeed(hub, eventRepo, nil, logger)
	ledger := registrations.NewLedger(registrationRepo, dispatcher, memberRepo, capacityFeed, logger)
	capacityFeed.SetSource(ledger)

	badgeRepo := badges.NewRepository(pool)
	awarder := badges.NewAwarder(badgeRepo, registrationRepo, dispatcher, logger)
	badgeHandler := badges.NewHandler(badgeRepo, logger)

	eventHandler := events.NewHandler(eventRepo, ledger, registrationRepo, loc, logger)
	registrationHandler := registrations.NewHandler(ledger, registrationRepo, eventRepo, memberRepo, awarder, logger)

	// Locations
	locationRepo := locations.NewRepository(pool)
	locationHandler := locations.NewHandler(locationRepo, logger)

	jwtValidate := func(token string) (memberID string, err error) {
		claims, err := jwtService.Validate(token)
		if err != nil {
			return "", err
		}
		return claims.MemberID.String(), nil
	}

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
	}

	staff := middleware.RequireRole("admin", "animateur")
	admin := middleware.RequireRole("admin")

	// Protected API (JWT required)
	api := router.Group("")
	api.Use(middleware.JWT(jwtService))
	{
		// Current member
		api.GET("/me", memberHandler.Me)
		api.PUT("/me", memberHandler.UpdateMe)
		api.GET("/me/badges", badgeHandler.ListMine)
		api.GET("/me/registrations", registrationHandler.ListMine)
		api.GET("/me/notifications", notifHandler.ListMine)

		// Members
		api.GET("/members", staff, memberHandler.List)
		api.GET("/members/:id", staff, memberHandler.GetByID)
		api.PUT("/members/:id/role", admin, memberHandler.UpdateRole)

		// Events
		api.GET("/events", eventHandler.List)
		api.POST("/events", staff, eventHandler.Create)
		api.GET("/events/:id", eventHandler.GetByID)
		api.PUT("/events/:id", staff, eventHandler.Update)
		api.DELETE("/events/:id", admin, eventHandler.Delete)
		api.GET("/events/:id/schedule", eventHandler.Schedule)
		api.GET("/events/:id/occurrences", staff, eventHandler.Occurrences)
		api.GET("/events/:id/capacity", registrationHandler.Capacity)

		// Registrations
		api.POST("/events/:id/register", registrationHandler.Register)
		api.DELETE("/events/:id/register", registrationHandler.CancelSelf)
		api.GET("/events/:id/registrations", staff, registrationHandler.ListByEvent)
		api.DELETE("/events/:id/registrations/:memberId", staff, registrationHandler.CancelMember)
		api.POST("/events/:id/registrations/:memberId/validate", staff, registrationHandler.Validate)

		// Locations
		api.GET("/locations", locationHandler.List)
		api.GET("/locations/:id", locationHandler.GetByID)
		api.POST("/locations", staff, locationHandler.Create)
		api.PUT("/locations/:id", staff, locationHandler.Update)
		api.DELETE("/locations/:id", admin, locationHandler.Delete)

		// Badges
		api.GET("/badges", badgeHandler.List)
		api.PUT("/badges", admin, badgeHandler.Upsert)
		api.DELETE("/badges/:id", admin, badgeHandler.Delete)

		// Notifications
		api.POST("/notifications/:id/read", notifHandler.MarkRead)
	}

	// WebSocket (token in query; no Authorization header required)
	router.GET("/ws", realtime.ServeWs(hub, logger, jwtValidate))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
