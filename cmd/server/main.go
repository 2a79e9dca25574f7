package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/gommon/log"

	_ "taskhub/docs" // swagger docs

	"taskhub/internal/auth"
	"taskhub/internal/cache"
	"taskhub/internal/config"
	"taskhub/internal/db"
	"taskhub/internal/handler"
	"taskhub/internal/logger"
	"taskhub/internal/realtime"
	"taskhub/internal/repository"
	"taskhub/internal/router"
	"taskhub/internal/service"
)

// @title Taskhub API
// @version 1.0
// @description Project and task management API with membership roles, comments, and live updates.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	lg := logger.New("taskhub", cfg.LogLevel)

	e := echo.New()
	e.HideBanner = true
	e.Logger = lg

	gormDB, err := db.NewMySQL(cfg.MySQLDSN)
	if err != nil {
		lg.Fatalf("database init: %v", err)
	}
	if cfg.ResetDB {
		lg.Warn("RESET_DB=true detected, dropping all tables")
		if err := db.Reset(gormDB); err != nil {
			lg.Fatalf("reset database: %v", err)
		}
	}
	if err := db.Migrate(gormDB); err != nil {
		lg.Fatalf("%v", err)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Services publish into the dispatcher; the hub feeds SSE subscribers.
	hub := realtime.NewHub(realtime.DefaultSubscriberBuffer)
	var (
		dispatcher *realtime.Dispatcher
		relay      *realtime.Relay
	)
	switch cfg.FanoutBackend {
	case config.FanoutRedis:
		broker := realtime.NewRedisBroker(cacheClient.Redis())
		relay, err = broker.Listen(ctx, lg)
		if err != nil {
			lg.Fatalf("realtime relay: %v", err)
		}
		go relay.Run(ctx, hub)
		dispatcher = realtime.NewDispatcher(broker, cfg.FanoutBuffer, lg)
	default:
		dispatcher = realtime.NewDispatcher(hub, cfg.FanoutBuffer, lg)
	}

	userRepo := repository.NewUserRepository(gormDB)
	projectRepo := repository.NewProjectRepository(gormDB)
	taskRepo := repository.NewTaskRepository(gormDB)

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	tokenStore := auth.NewTokenStore(cacheClient)

	authService := service.NewAuthService(userRepo, jwtService, tokenStore)
	userService := service.NewUserService(userRepo, cacheClient)
	projectService := service.NewProjectService(projectRepo, taskRepo, userRepo, dispatcher)
	taskService := service.NewTaskService(taskRepo, projectRepo, dispatcher)

	router.Register(e, cfg, jwtService, router.Handlers{
		Auth:     handler.NewAuthHandler(authService, userService),
		Project:  handler.NewProjectHandler(projectService),
		Task:     handler.NewTaskHandler(taskService),
		Realtime: handler.NewRealtimeHandler(hub, projectService, 0),
	})

	lg.Infof("swagger documentation available at: %s", swaggerURL(cfg))
	lg.Infof("realtime fanout: %s", cfg.FanoutBackend)

	go func() {
		if err := e.Start(":" + cfg.ServerPort); err != nil && !errors.Is(err, http.ErrServerClosed) {
			lg.Fatalf("server start: %v", err)
		}
	}()

	<-ctx.Done()
	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		lg.Errorf("server shutdown: %v", err)
	}
	dispatcher.Close()
	if relay != nil {
		if err := relay.Close(); err != nil {
			lg.Warnf("close relay: %v", err)
		}
	}
	if err := cacheClient.Redis().Close(); err != nil {
		lg.Warnf("close redis: %v", err)
	}
}

func swaggerURL(cfg *config.Config) string {
	host := cfg.SwaggerHost
	if host == "" {
		host = "localhost:" + cfg.ServerPort
	}
	if !strings.HasPrefix(host, "http://") && !strings.HasPrefix(host, "https://") {
		host = "http://" + host
	}
	return host + "/swagger/index.html"
}
