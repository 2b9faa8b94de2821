// cmd/api/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront-backend/internal/config"
	"github.com/your-org/storefront-backend/internal/domain/events"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/postgres"
	"github.com/your-org/storefront-backend/internal/infrastructure/database/redis"
	"github.com/your-org/storefront-backend/internal/infrastructure/messaging"
	"github.com/your-org/storefront-backend/internal/interfaces/http"
	"github.com/your-org/storefront-backend/internal/pkg/logger"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	appLogger := logger.New(cfg)
	appLogger.Infof("🚀 Starting %s v%s in %s mode", cfg.App.Name, cfg.App.Version, cfg.App.Environment)

	// Connect to database
	db, err := postgres.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Connect to Redis
	redisClient, err := redis.NewConnection(cfg, appLogger)
	if err != nil {
		appLogger.WithError(err).Fatal("Failed to connect to Redis")
	}
	defer redisClient.Close()

	// Run database migrations
	migration := postgres.NewMigration(db.GetDB(), appLogger)

	if cfg.Database.ResetOnStart {
		if err := migration.DropAllTables(); err != nil {
			appLogger.WithError(err).Fatal("Database reset failed")
		}
	}

	if err := migration.RunAutoMigrations(); err != nil {
		appLogger.WithError(err).Fatal("Database migration failed")
	}

	if err := migration.CreateIndexes(); err != nil {
		appLogger.WithError(err).Warn("Index creation failed")
	}

	// Seed initial data in development
	if cfg.IsDevelopment() {
		if err := migration.SeedInitialData(); err != nil {
			appLogger.WithError(err).Warn("Data seeding failed")
		}
		if _, err := migration.GetTableInfo(); err != nil {
			appLogger.WithError(err).Warn("Table info failed")
		}
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	bus := events.NewBus(appLogger)
	closeTransport := setupEventTransport(ctx, cfg, bus, redisClient, appLogger)
	defer closeTransport()

	appLogger.Info("✅ All systems operational!")

	// Create and start HTTP server
	server := http.NewServer(cfg, db.GetDB(), redisClient.GetClient(), bus, appLogger)
	server.AddHealthCheck("database", db)
	server.AddHealthCheck("redis", redisClient)

	go func() {
		if err := server.Start(); err != nil {
			appLogger.WithError(err).Fatal("Failed to start HTTP server")
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("👋 Shutting down gracefully...")

	// Give server 30 seconds to shutdown gracefully
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Stop(shutdownCtx); err != nil {
		appLogger.WithError(err).Error("Failed to shutdown HTTP server gracefully")
	}

	appLogger.Info("✅ Server shutdown completed")
}

// setupEventTransport attaches the configured out-of-process sink to the bus
// and returns its cleanup function.
func setupEventTransport(ctx context.Context, cfg *config.Config, bus *events.Bus, redisClient *redis.Client, logger *logrus.Logger) func() {
	switch cfg.Events.Transport {
	case config.EventsTransportRedis:
		relay := messaging.NewRedisRelay(redisClient.GetClient(), cfg.Events.RedisChannel, bus, logger)
		if err := relay.Start(ctx); err != nil {
			logger.WithError(err).Fatal("Failed to subscribe to event channel")
		}
		bus.AddSink(relay)
		logger.WithField("channel", cfg.Events.RedisChannel).Info("📡 Relaying change events through Redis")
		return func() {}

	case config.EventsTransportKafka:
		forwarder := messaging.NewKafkaForwarder(cfg.Events.KafkaBrokers, cfg.Events.KafkaTopic, cfg.Events.BufferSize, logger)
		forwarder.Start(ctx)
		bus.AddSink(forwarder)
		logger.WithField("topic", cfg.Events.KafkaTopic).Info("📡 Forwarding change events to Kafka")
		return forwarder.Close
	}

	logger.Info("Change events stay in process")
	return func() {}
}
