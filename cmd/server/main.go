package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"

	"passchecker/docs" // swagger docs

	"passchecker/internal/auth"
	"passchecker/internal/cache"
	"passchecker/internal/config"
	"passchecker/internal/db"
	"passchecker/internal/handler"
	"passchecker/internal/logging"
	"passchecker/internal/model"
	"passchecker/internal/repository"
	"passchecker/internal/router"
	"passchecker/internal/service"
)

//go:generate swag init -d ../.. -g cmd/server/main.go -o ../../docs

const shutdownTimeout = 10 * time.Second

// @title Password Checker API
// @version 1.0
// @description Password strength analysis, breach lookup and TOTP two-factor authentication.
// @host localhost:8080
// @BasePath /api
// @schemes http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	cfg := config.Load()

	logger := logging.New(logging.Config{
		Service: "password-checker",
		Env:     cfg.AppEnv,
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
	})

	gormDB, err := db.Open(cfg.DBDriver, cfg.MySQLDSN, cfg.SQLitePath)
	if err != nil {
		logger.Error("database init", "driver", cfg.DBDriver, "err", err)
		os.Exit(1)
	}

	if cfg.ResetDB {
		logger.Warn("RESET_DB=true detected, dropping users table")
		if err := gormDB.Migrator().DropTable(&model.User{}); err != nil {
			logger.Warn("drop users table", "err", err)
		}
	}

	if err := gormDB.AutoMigrate(&model.User{}); err != nil {
		logger.Error("auto-migrate", "err", err)
		os.Exit(1)
	}

	cacheClient := cache.New(cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
	defer cacheClient.Close()

	pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	if err := cacheClient.Ping(pingCtx); err != nil {
		logger.Warn("redis unavailable, caching disabled and refresh tokens will not persist", "addr", cfg.RedisAddr, "err", err)
	}
	cancel()

	// Initialize repositories
	userRepo := repository.NewUserRepository(gormDB)

	// Initialize auth components
	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
	tokenStore := auth.NewTokenStore(cacheClient)
	totpProvider := auth.NewTOTPProvider(cfg.AppName)

	// Initialize services
	authService := service.NewAuthService(userRepo, jwtService, tokenStore, totpProvider, cacheClient)
	breachChecker := service.NewBreachChecker(cfg.PwnedAPIURL, cfg.PwnedTimeout, cacheClient, cfg.PwnedCacheTTL)
	passwordService := service.NewPasswordService(service.NewStrengthEvaluator(), breachChecker)
	userService := service.NewUserService(userRepo, cacheClient)

	e := echo.New()
	router.Register(
		e,
		cfg,
		logger,
		gormDB,
		jwtService,
		handler.NewAuthHandler(authService),
		handler.NewPasswordHandler(passwordService),
		handler.NewUserHandler(userService),
	)

	if cfg.SwaggerHost != "" {
		docs.SwaggerInfo.Host = strings.TrimPrefix(strings.TrimPrefix(cfg.SwaggerHost, "http://"), "https://")
	}
	logger.Info("swagger documentation available", "url", swaggerURL(cfg))

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", cfg.ServerPort, "db_driver", cfg.DBDriver)
		errCh <- e.Start(":" + cfg.ServerPort)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("shutdown signal received", "signal", sig.String())
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := e.Shutdown(ctx); err != nil {
			logger.Error("graceful shutdown failed", "err", err)
		}
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server start", "err", err)
			os.Exit(1)
		}
	}

	if sqlDB, err := gormDB.DB(); err == nil {
		_ = sqlDB.Close()
	}
	logger.Info("server stopped")
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
