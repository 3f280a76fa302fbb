package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/hugh/go-contacts/internal/api"
	"github.com/hugh/go-contacts/internal/auth"
	"github.com/hugh/go-contacts/internal/avatar"
	"github.com/hugh/go-contacts/internal/contacts"
	"github.com/hugh/go-contacts/internal/database"
	"github.com/hugh/go-contacts/internal/mail"
	"github.com/hugh/go-contacts/internal/tasks"
	"github.com/hugh/go-contacts/pkg/config"
	"github.com/hugh/go-contacts/pkg/crypto"
	"github.com/hugh/go-contacts/pkg/queue"
	"github.com/hugh/go-contacts/pkg/util"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
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

	logger.Info("starting go-contacts server",
		"env", cfg.Server.Env,
		"addr", cfg.Server.Addr(),
	)

	// Connect to database
	db, err := database.Connect(&cfg.Database, logger)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	if cfg.Server.IsDevelopment() {
		if err := database.AutoMigrate(db); err != nil {
			logger.Error("failed to migrate database", "error", err)
			os.Exit(1)
		}
	}

	// Connect to Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr(),
		Password: cfg.Redis.Password,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		logger.Warn("failed to connect to Redis, sending mail inline", "error", err)
		redisClient.Close()
		redisClient = nil
	}

	encryptor, err := crypto.NewEncryptor(cfg.Encryption.Key)
	if err != nil {
		logger.Error("failed to create encryptor", "error", err)
		os.Exit(1)
	}

	// Verification mail goes through the worker when Redis is up.
	var (
		notifier    auth.Notifier
		asynqClient *asynq.Client
	)
	switch {
	case redisClient != nil && cfg.Encryption.Key != "":
		asynqClient = queue.NewClient(&cfg.Redis)
		notifier = tasks.NewEnqueuer(asynqClient, encryptor)
		logger.Info("verification mail queued for worker", "recipient", encryptor.PublicKey())
	default:
		if redisClient != nil {
			logger.Warn("ENCRYPTION_KEY not set, sending mail inline")
		}
		notifier = mail.NewVerificationNotifier(mail.NewSMTPSender(cfg.Mail, logger), cfg.App.BaseURL)
	}

	// Initialize services
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	authService := auth.NewService(db, jwtService, notifier)
	contactService := contacts.NewService(db)

	storage, err := avatar.NewStorage(context.Background(), cfg.Storage)
	if err != nil {
		logger.Error("failed to create avatar storage", "error", err)
		os.Exit(1)
	}

	pipeline, err := avatar.NewPipeline(storage, authService, cfg.Storage.TmpDir, logger)
	if err != nil {
		logger.Error("failed to create avatar pipeline", "error", err)
		os.Exit(1)
	}

	var publicDir string
	if cfg.Storage.Driver == "local" {
		publicDir = cfg.Storage.PublicDir
	}

	// Create router
	router := api.NewRouter(api.RouterConfig{
		DB:             db,
		Redis:          redisClient,
		Logger:         logger,
		JWTService:     jwtService,
		AuthService:    authService,
		ContactService: contactService,
		Avatars:        pipeline,
		MaxUploadBytes: cfg.Storage.MaxUploadBytes(),
		PublicDir:      publicDir,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RateLimitReqs:  cfg.RateLimit.Requests,
		RateLimitSecs:  cfg.RateLimit.WindowSeconds,
	})

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Server.Addr(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		logger.Info("server listening", "addr", cfg.Server.Addr())
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}
	router.Close()

	if asynqClient != nil {
		asynqClient.Close()
	}

	if redisClient != nil {
		redisClient.Close()
	}

	if err := database.Close(db); err != nil {
		logger.Error("failed to close database", "error", err)
	}

	logger.Info("server stopped")
}
