/**
 * OCR Worker - Main Entry Point
 *
 * Invoice/receipt recognition worker.
 *
 * Architecture:
 * - Asynq consumer for the Redis-backed recognition and export queues
 * - Remote (Baidu OCR) primary engine with local Tesseract fallback
 * - Result normalization into display lines and table grids
 * - Multi-format export: text, workbook, document, archival JSON
 * - Optional PostgreSQL registry for finished artifacts
 */

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/henryLiu9527/invoice-ocr/internal/clients"
	"github.com/henryLiu9527/invoice-ocr/internal/config"
	"github.com/henryLiu9527/invoice-ocr/internal/engine"
	"github.com/henryLiu9527/invoice-ocr/internal/export"
	"github.com/henryLiu9527/invoice-ocr/internal/normalize"
	"github.com/henryLiu9527/invoice-ocr/internal/queue"
	"github.com/henryLiu9527/invoice-ocr/internal/storage"
	"github.com/henryLiu9527/invoice-ocr/internal/store"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: .env not found, using system environment variables")
	}

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Printf("OCR worker starting...")
	log.Printf("Configuration loaded: Redis=%s, PrimaryEngine=%s, Fallback=%v, Workers=%d",
		cfg.RedisURL, cfg.PrimaryEngine, cfg.FallbackEnabled, cfg.WorkerConcurrency)

	// Export directories must exist before the first artifact lands
	for _, dir := range []string{cfg.ResultsDir, cfg.ArchiveDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			log.Fatalf("Failed to create export directory %s: %v", dir, err)
		}
	}

	// Session result store
	log.Printf("Connecting to Redis session store...")
	resultStore, err := store.NewRedisStore(cfg.RedisURL, time.Duration(cfg.SessionTTLHours)*time.Hour)
	if err != nil {
		log.Fatalf("Failed to initialize session store: %v", err)
	}
	defer resultStore.Close()

	pingCtx, cancelPing := context.WithTimeout(context.Background(), 10*time.Second)
	if err := resultStore.Ping(pingCtx); err != nil {
		cancelPing()
		log.Fatalf("Failed to reach Redis: %v", err)
	}
	cancelPing()
	log.Printf("Session store initialized (TTL=%dh)", cfg.SessionTTLHours)

	// Optional artifact registry
	var registry export.Registry
	var pgRegistry *storage.PostgresRegistry
	if cfg.DatabaseURL != "" {
		log.Printf("Connecting to PostgreSQL artifact registry...")
		pgRegistry, err = storage.NewPostgresRegistry(cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to initialize artifact registry: %v", err)
		}
		defer pgRegistry.Close()

		schemaCtx, cancelSchema := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgRegistry.EnsureSchema(schemaCtx); err != nil {
			cancelSchema()
			log.Fatalf("Failed to prepare artifact schema: %v", err)
		}
		cancelSchema()
		registry = pgRegistry
		log.Printf("Artifact registry initialized")
	} else {
		log.Printf("DATABASE_URL not set, artifact registry disabled")
	}

	// Recognition engines
	log.Printf("Initializing recognition engines...")
	baiduClient := clients.NewBaiduClient(cfg.OCRAPIKey, cfg.OCRSecretKey, cfg.OCRTokenURL, cfg.OCREndpointURL)
	remoteEngine := engine.NewRemoteEngine(baiduClient, cfg.OCRMaxRetries)
	localEngine := engine.NewLocalEngine(cfg.TesseractLang)

	manager, err := engine.NewManager(remoteEngine, localEngine, engine.Name(cfg.PrimaryEngine), cfg.FallbackEnabled)
	if err != nil {
		log.Fatalf("Failed to initialize engine manager: %v", err)
	}
	log.Printf("Engine manager initialized (primary=%s, fallback=%v)", cfg.PrimaryEngine, cfg.FallbackEnabled)

	// Normalization and export pipeline
	normalizer := normalize.NewNormalizer()
	coordinator := export.NewCoordinator(cfg.ResultsDir, cfg.ArchiveDir, normalizer, registry)

	// Queue consumer
	log.Printf("Connecting to Redis queue...")
	consumer, err := queue.NewConsumer(&queue.ConsumerConfig{
		RedisURL:    cfg.RedisURL,
		QueueName:   cfg.QueueName,
		Concurrency: cfg.WorkerConcurrency,
		Manager:     manager,
		Normalizer:  normalizer,
		Coordinator: coordinator,
		Results:     resultStore,
	})
	if err != nil {
		log.Fatalf("Failed to initialize queue consumer: %v", err)
	}

	if err := consumer.Start(context.Background()); err != nil {
		log.Fatalf("Failed to start queue consumer: %v", err)
	}

	// Print startup summary
	log.Printf("===========================================")
	log.Printf("OCR Worker is READY")
	log.Printf("===========================================")
	log.Printf("Queue: %s", cfg.QueueName)
	log.Printf("Workers: %d", cfg.WorkerConcurrency)
	log.Printf("Primary engine: %s", cfg.PrimaryEngine)
	log.Printf("Fallback enabled: %v", cfg.FallbackEnabled)
	log.Printf("Results dir: %s", cfg.ResultsDir)
	log.Printf("Archive dir: %s", cfg.ArchiveDir)
	log.Printf("===========================================")
	log.Printf("Waiting for jobs...")

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)

	sig := <-sigChan
	log.Printf("Received signal %v, initiating graceful shutdown...", sig)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := consumer.Stop(shutdownCtx); err != nil {
		log.Printf("Error stopping queue consumer: %v", err)
	} else {
		log.Printf("Queue consumer stopped successfully")
	}

	log.Printf("Shutdown complete")
}
