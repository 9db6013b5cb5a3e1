package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omnichan/backend/internal/models"
	"omnichan/backend/pkg/config"
	"omnichan/backend/pkg/di"
	"omnichan/backend/pkg/logger"
	"omnichan/backend/pkg/router"
	"omnichan/backend/pkg/secrets"
	"omnichan/backend/shared/observability"
)

func main() {
	cfg := config.New()

	// Initialize structured logger
	logConfig := logger.DefaultConfig()
	logConfig.Level = cfg.Logging.Level
	logConfig.JSON = cfg.Logging.Format != "text"

	log := logger.New(logConfig)
	logger.SetGlobal(log)

	log.Info("Starting application", "version", os.Getenv("APP_VERSION"), "env", cfg.Server.Env)

	// Secrets manager (Vault with environment fallback)
	if err := secrets.Init(log); err != nil {
		log.Warn("Secrets manager unavailable, using environment variables only", "error", err)
	}

	// Observability
	shutdownTracing := observability.SetupTracing("omnichan-backend")
	defer shutdownTracing()
	observability.SetupPrometheusMetrics()

	// Initialize database
	db, err := config.NewDB()
	if err != nil {
		log.LogError(err, "Failed to initialize database")
		os.Exit(1)
	}

	// Auto-migrate the schema
	if err := db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Conversation{},
		&models.Message{},
		&models.MessageAttachment{},
		&models.Integration{},
	); err != nil {
		log.LogError(err, "Failed to migrate database")
		os.Exit(1)
	}

	// The message idempotency key is partial: outbound sends that failed to
	// get a platform id must not collide, so NULL/empty ids stay unconstrained.
	if err := db.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_messages_conv_mid ON messages(conversation_id, platform_message_id) WHERE platform_message_id <> ''").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_conv_mid")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_messages_conv_sent ON messages(conversation_id, sent_at)").Error; err != nil {
		log.LogError(err, "Failed to create message index", "index", "idx_messages_conv_sent")
	}
	if err := db.Exec("CREATE INDEX IF NOT EXISTS idx_attachments_message ON message_attachments(message_id)").Error; err != nil {
		log.LogError(err, "Failed to create attachment index", "index", "idx_attachments_message")
	}

	// Initialize dependency injection container
	container, err := di.New(db, cfg, log)
	if err != nil {
		log.LogError(err, "Failed to initialize dependency container")
		os.Exit(1)
	}

	// Start the webhook event workers
	container.Dispatcher.Start()

	// Initialize and setup router
	r := router.New(container)
	r.SetupRoutes()

	// Add OpenAPI validation if schema file is available
	if schemaPath := os.Getenv("OPENAPI_SCHEMA_PATH"); schemaPath != "" {
		r.AddOpenAPIValidation(schemaPath)
	}

	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: r.Engine,
	}

	go func() {
		log.Info("Server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.LogError(err, "Server failed to start")
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	log.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.LogError(err, "Server forced to shutdown")
	}

	// Drain in-flight webhook events before exiting
	container.Dispatcher.Close()

	log.Info("Server exited gracefully")
}
