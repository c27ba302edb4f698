package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ngocanhtran/product-catalog/internal/config"
	"github.com/ngocanhtran/product-catalog/internal/http"
	"github.com/ngocanhtran/product-catalog/internal/log"
	"github.com/ngocanhtran/product-catalog/internal/repository"
	"github.com/ngocanhtran/product-catalog/internal/service"
	"github.com/ngocanhtran/product-catalog/internal/session"
	"github.com/ngocanhtran/product-catalog/internal/storage/db"
	"github.com/ngocanhtran/product-catalog/internal/telemetry"
	"github.com/ngocanhtran/product-catalog/pkg/validator"
)

func main() {
	if err := run(); err != nil {
		fmt.Printf("error running catalog server: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	time.Local = time.UTC

	type Config struct {
		Log      config.Log
		Postgres config.Postgres
		HTTP     config.HTTP
		Auth     config.Auth
		Storage  config.Storage
		Otel     config.Otel
	}
	cfg, err := config.New[Config]()
	if err != nil {
		return fmt.Errorf("error loading config: %w", err)
	}

	logger := log.NewSlogLogger(cfg.Log)

	cleanupTracer, err := telemetry.InitTracer(ctx, cfg.Otel)
	if err != nil {
		return fmt.Errorf("error initializing tracer: %w", err)
	}
	defer func() {
		if err := cleanupTracer(ctx); err != nil {
			logger.ErrorContext(ctx, "error cleaning up tracer", slog.Any("error", err))
		}
	}()

	pgxPool, err := db.NewPgxPool(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("error creating pgx pool: %w", err)
	}
	defer pgxPool.Close()

	dbClient := db.NewClient(pgxPool)

	valid, err := validator.NewDefaultValidator()
	if err != nil {
		return fmt.Errorf("error creating validator: %w", err)
	}

	userRepository := repository.NewUserRepository(dbClient)
	categoryRepository := repository.NewCategoryRepository(dbClient)
	productRepository := repository.NewProductRepository(dbClient)

	sessions := session.NewManager(cfg.Auth)
	authService := service.NewAuthService(cfg.Auth, userRepository, valid)
	catalogService := service.NewCatalogService(dbClient, productRepository, categoryRepository, valid)

	interruptChan := make(chan os.Signal, 1)
	signal.Notify(interruptChan, syscall.SIGINT, syscall.SIGTERM)

	svc := http.New(cfg.HTTP, cfg.Storage, logger, sessions, authService, catalogService, dbClient)
	cleanup, err := svc.Run(ctx)
	if err != nil {
		return fmt.Errorf("error running http service: %w", err)
	}

	logger.InfoContext(ctx, "http service started", slog.String("address", fmt.Sprintf(":%d", cfg.HTTP.Port)))

	<-interruptChan

	logger.InfoContext(ctx, "http service is shutting down")
	if err := cleanup(ctx); err != nil {
		logger.ErrorContext(ctx, "error shutting down http service", slog.Any("error", err))
	}

	logger.InfoContext(ctx, "http service is stopped")

	return nil
}
