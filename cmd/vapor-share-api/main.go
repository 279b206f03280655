package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	_ "github.com/noah-isme/vapor-share-api/api/swagger"
	"github.com/noah-isme/vapor-share-api/internal/handler"
	"github.com/noah-isme/vapor-share-api/internal/repository"
	"github.com/noah-isme/vapor-share-api/internal/server"
	"github.com/noah-isme/vapor-share-api/internal/service"
	"github.com/noah-isme/vapor-share-api/pkg/cache"
	"github.com/noah-isme/vapor-share-api/pkg/config"
	"github.com/noah-isme/vapor-share-api/pkg/database"
	"github.com/noah-isme/vapor-share-api/pkg/jobs"
	"github.com/noah-isme/vapor-share-api/pkg/logger"
	"github.com/noah-isme/vapor-share-api/pkg/storage"
)

// @title Vapor Share API
// @version 1.0.0
// @description Self-destructing file sharing with one-time access codes.
// @BasePath /api/v1
// @schemes http https
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @securityDefinitions.apikey CleanupToken
// @in header
// @name Authorization

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if err := cfg.Validate(); err != nil {
		logr.Fatal("configuration error", zap.Error(err))
	}

	if err := run(cfg, logr); err != nil {
		logr.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logr *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer db.Close()

	if cfg.Database.AutoMigrate {
		if err := database.Migrate(db, logr); err != nil {
			return fmt.Errorf("migrate database: %w", err)
		}
	}

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Warn("redis unavailable, attempt limiting disabled", zap.Error(err))
		redisClient = nil
	}
	attemptRepo := repository.NewAttemptRepository(redisClient)
	defer attemptRepo.Close() //nolint:errcheck

	blobs, err := storage.NewBlobStore(ctx, cfg)
	if err != nil {
		return fmt.Errorf("init blob store: %w", err)
	}

	auth, err := service.NewAuthService(ctx, service.AuthConfig{
		Secret:   cfg.JWT.Secret,
		JWKSURL:  cfg.JWT.JWKSURL,
		Issuer:   cfg.JWT.Issuer,
		Audience: cfg.JWT.Audience,
		Leeway:   cfg.JWT.Leeway,
	}, logr)
	if err != nil {
		return fmt.Errorf("init auth: %w", err)
	}

	metrics := service.NewMetricsService()
	fileRepo := repository.NewFileRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	userRepo := repository.NewUserRepository(db)

	deletionWorker := service.NewBlobDeletionWorker(blobs, fileRepo, metrics, logr)
	deletionQueue := jobs.NewQueue("blob-deletion", deletionWorker.Handle, jobs.QueueConfig{
		Workers:    cfg.Deletion.Workers,
		BufferSize: cfg.Deletion.BufferSize,
		MaxRetries: cfg.Deletion.Retries,
		RetryDelay: cfg.Deletion.RetryDelay,
		Logger:     logr,
		OnDrop:     deletionWorker.OnDrop,
	})
	deletionQueue.Start(context.Background())

	codes := service.NewCodeGenerator(fileRepo, service.CodeGeneratorConfig{
		Length:      cfg.Files.CodeLength,
		MaxAttempts: cfg.Files.CodeMaxAttempts,
		Legible:     cfg.Files.CodeLegibleAlphabet,
	})
	uploads := service.NewUploadService(blobs, fileRepo, codes, userRepo, notificationRepo, validator.New(), metrics, logr, service.UploadConfig{
		MaxFileSize:     cfg.Files.MaxFileSizeBytes,
		Retention:       cfg.Files.Retention,
		StorageFolder:   cfg.Files.StorageFolder,
		CodeMaxAttempts: cfg.Files.CodeMaxAttempts,
	})
	retrieval := service.NewRetrievalService(fileRepo, service.NewBlobDeletionScheduler(deletionQueue), metrics, logr)
	cleanup := service.NewCleanupService(blobs, fileRepo, metrics, logr, service.CleanupConfig{
		Interval:    cfg.Cleanup.Interval,
		BatchSize:   cfg.Cleanup.BatchSize,
		Concurrency: cfg.Cleanup.Concurrency,
	})
	notifications := service.NewNotificationService(notificationRepo, logr)
	attempts := service.NewAttemptLimiter(attemptRepo, cfg.Retrieval.MaxFailures, cfg.Retrieval.FailureWindow, logr)

	handlers := server.Handlers{
		Upload:        handler.NewUploadHandler(uploads, cfg.Files.MaxFileSizeBytes),
		Retrieval:     handler.NewRetrievalHandler(retrieval),
		Cleanup:       handler.NewCleanupHandler(cleanup),
		Notifications: handler.NewNotificationHandler(notifications),
		Metrics:       handler.NewMetricsHandler(metrics, db),
	}
	if local, ok := blobs.(*storage.LocalStorage); ok {
		handlers.Blobs = handler.NewBlobHandler(local)
	}

	router := server.NewRouter(cfg, server.Dependencies{
		Logger:   logr,
		Metrics:  metrics,
		Auth:     auth,
		Attempts: attempts,
	}, handlers)

	cleanup.Start(ctx)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logr.Info("server starting",
			zap.String("addr", srv.Addr),
			zap.String("env", cfg.Env),
			zap.String("blob_provider", blobs.Provider()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err, ok := <-serveErr:
		if ok {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}

	logr.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logr.Warn("http shutdown incomplete", zap.Error(err))
	}
	deletionQueue.Stop()
	return nil
}
