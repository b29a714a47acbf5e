package main

import (
	"context"
	"ctchen222/accounts/internal/api/controller"
	"ctchen222/accounts/internal/api/repository"
	"ctchen222/accounts/internal/api/service"
	"ctchen222/accounts/internal/auth"
	"ctchen222/accounts/internal/config"
	"ctchen222/accounts/internal/db"
	"ctchen222/accounts/internal/logger"
	"ctchen222/accounts/internal/server"
	"ctchen222/accounts/internal/telemetry"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
)

const version = "v0.1.0"

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Initialize telemetry
	shutdown, err := telemetry.InitOtel(ctx, telemetry.Options{
		ServiceName:    cfg.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.OtelEndpoint,
		Stdout:         cfg.OtelStdout,
	})
	if err != nil {
		log.Fatalf("failed to initialize telemetry: %v", err)
	}
	defer func() {
		if err := shutdown(ctx); err != nil {
			log.Printf("Error shutting down telemetry: %v", err)
		}
	}()

	logger.Init(cfg.LogLevel)

	// Initialize Redis
	rdb, err := db.NewRedisClient(ctx, cfg.RedisAddr)
	if err != nil {
		log.Fatalf("failed to initialize redis: %v", err)
	}
	defer rdb.Close()

	// Initialize SQLite DB
	DB, err := db.Connect(ctx, cfg.DBPath)
	if err != nil {
		log.Fatalf("failed to get sqlite db connection: %v", err)
	}
	defer DB.Close()
	if err := db.InitializeSchema(ctx, DB); err != nil {
		log.Fatalf("failed to initialize sqlite db: %v", err)
	}

	// Create repositories
	userRepo := repository.NewUserRepository(DB)
	sessionRepo := repository.NewSessionRepository(rdb)

	// Create services
	sessionService := service.NewSessionService(auth.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL), sessionRepo, userRepo)
	userService := service.NewUserService(userRepo, auth.NewAuthenticator(userRepo), sessionService, service.Options{
		PasswordMinLength: cfg.PasswordMinLength,
	})

	// Create controllers
	userController := controller.NewUserController(userService)

	// Create the Gin-based server
	gin.SetMode(gin.ReleaseMode)
	srv := server.NewServer(userController, sessionService, map[string]server.HealthCheck{
		"db":    DB.PingContext,
		"redis": func(ctx context.Context) error { return rdb.Ping(ctx).Err() },
	})

	// Graceful shutdown
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	httpServer := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: srv.Engine(),
	}

	go func() {
		slog.Info("http server started", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("ListenAndServe: %v", err)
		}
	}()

	<-stop

	slog.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server exiting")
}
