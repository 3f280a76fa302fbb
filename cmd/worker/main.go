package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/internal/database"
	"github.com/hugh/go-contacts/internal/mail"
	"github.com/hugh/go-contacts/internal/tasks"
	"github.com/hugh/go-contacts/pkg/config"
	"github.com/hugh/go-contacts/pkg/crypto"
	"github.com/hugh/go-contacts/pkg/queue"
	"github.com/hugh/go-contacts/pkg/util"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger := util.NewLogger(cfg.Server.Env)
	slog.SetDefault(logger)

	logger.Info("starting go-contacts worker")

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Encryption.Key == "" {
		// Offer a usable key so the operator can set it on server and worker alike.
		suggested, err := crypto.GenerateKey()
		if err != nil {
			logger.Error("ENCRYPTION_KEY must be set so queued mail can be decrypted", "error", err)
		} else {
			logger.Error("ENCRYPTION_KEY must be set so queued mail can be decrypted", "suggested_key", suggested)
		}
		os.Exit(1)
	}
	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}
	logger.Info("task payload encryption ready", "recipient", encryptor.PublicKey())

	storage, err := avatar.NewStorage(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to create avatar storage", "error", err)
		os.Exit(1)
	}

	// Create Asynq server
	srv := queue.NewServer(&cfg.Redis, 10, logger)

	// Create task handler
	sender := mail.NewSMTPSender(cfg.Mail, logger)
	handler := tasks.NewHandler(db, logger, encryptor, sender, storage, cfg.App.BaseURL)

	// Register handlers
	mux := asynq.NewServeMux()
	handler.RegisterHandlers(mux)

	// Periodic avatar sweep
	scheduler := queue.NewScheduler(&cfg.Redis)
	entryID, err := scheduler.Register(cfg.Avatars.SweepCron, tasks.NewAvatarSweepTask(), asynq.Queue(queue.Low))
	if err != nil {
		logger.Error("failed to register avatar sweep", "error", err)
		os.Exit(1)
	}
	if next, err := util.NextCronTime(cfg.Avatars.SweepCron, time.Now()); err == nil {
		logger.Info("avatar sweep scheduled", "entry_id", entryID, "cron", cfg.Avatars.SweepCron, "next_run", next)
	}

	if err := scheduler.Start(); err != nil {
		logger.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}

	// Handle shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("shutting down worker...")
		scheduler.Shutdown()
		srv.Shutdown()
		cancel()
	}()

	logger.Info("worker started, waiting for tasks...")

	// Start the server
	if err := srv.Run(mux); err != nil {
		logger.Error("worker error", "error", err)
	}

	// Wait for context cancellation
	<-ctx.Done()

	if err := database.Close(db); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("worker stopped")
}
