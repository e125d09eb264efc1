package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alfredoptarigan/competition-scorer/internal/config"
	"alfredoptarigan/competition-scorer/internal/handlers"
	"alfredoptarigan/competition-scorer/internal/repositories"
	"alfredoptarigan/competition-scorer/internal/services"
)

func main() {
	// Load configuration
	cfg := config.Load()
	log.Println("✅ Config loaded successfully")

	// Initialize database
	db, err := config.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("❌ Failed to initialize database: %v", err)
	}

	// Initialize repositories
	submissionRepo := repositories.NewSubmissionRepository(db)
	competitionRepo := repositories.NewCompetitionRepository(db)
	log.Println("✅ Repositories initialized successfully")

	// Initialize object store
	store := services.NewDiskObjectStore(cfg.Storage.Root)
	if err := store.EnsureBuckets(cfg.Storage.SubmissionsBucket, cfg.Storage.AnswerKeysBucket); err != nil {
		log.Fatalf("❌ Failed to create storage buckets: %v", err)
	}
	log.Println("✅ Object store initialized successfully")

	// Initialize telemetry
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	telemetry := services.NewTelemetry(registry)

	// Initialize processor
	processor := services.NewSubmissionProcessor(
		submissionRepo,
		competitionRepo,
		store,
		cfg.Storage.SubmissionsBucket,
		cfg.Storage.AnswerKeysBucket,
		services.WithTelemetry(telemetry),
	)
	log.Println("✅ Submission processor initialized")

	// Initialize worker
	worker := services.NewWorker(
		submissionRepo,
		processor,
		services.WorkerConfig{
			Concurrency:  cfg.Worker.Concurrency,
			QueueSize:    cfg.Worker.QueueSize,
			PollInterval: cfg.Worker.PollInterval,
		},
		telemetry,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	worker.Start(ctx)
	log.Println("✅ Worker started successfully")

	// Upload events
	var consumer *services.UploadEventConsumer
	if cfg.Kafka.Enabled() {
		consumer, err = services.NewUploadEventConsumer(services.UploadConsumerConfig{
			Brokers:     cfg.Kafka.Brokers,
			Topic:       cfg.Kafka.Topic,
			GroupID:     cfg.Kafka.GroupID,
			PollTimeout: cfg.Kafka.PollTimeout,
		}, worker)
		if err != nil {
			log.Fatalf("❌ Failed to initialize upload consumer: %v", err)
		}

		go func() {
			if err := consumer.Run(ctx); err != nil && ctx.Err() == nil {
				log.Printf("❌ Upload consumer stopped: %v", err)
			}
		}()
		log.Println("✅ Upload consumer started")
	} else {
		log.Println("⚠️  KAFKA_BROKERS not set, upload events disabled")
	}

	// Initialize handlers
	processHandler := handlers.NewProcessHandler(processor)
	uploadHandler := handlers.NewUploadHandler(
		submissionRepo,
		competitionRepo,
		store,
		cfg.Storage.SubmissionsBucket,
		cfg.Storage.MaxFileSize,
		worker,
	)
	resultHandler := handlers.NewResultHandler(submissionRepo)
	leaderboardHandler := handlers.NewLeaderboardHandler(submissionRepo, competitionRepo)
	log.Println("✅ Handlers initialized")

	// Create Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Competition Scoring API",
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		BodyLimit:    int(cfg.Storage.MaxFileSize) + 1<<20,
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} - ${latency} ${method} ${path}\n",
		TimeFormat: "2006-01-02 15:04:05",
	}))

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
	}))

	// Routes
	api := app.Group("/api/v1")

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	api.Post("/process", processHandler.HandleProcess)
	api.Post("/submissions", uploadHandler.HandleUpload)
	api.Get("/submissions/:id", resultHandler.HandleGetResult)
	api.Get("/competitions/:id/leaderboard", leaderboardHandler.HandleGetLeaderboard)

	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Competition Scoring API",
			"version": "1.0.0",
			"endpoints": []string{
				"POST /api/v1/process",
				"POST /api/v1/submissions",
				"GET /api/v1/submissions/:id",
				"GET /api/v1/competitions/:id/leaderboard",
				"GET /metrics",
			},
		})
	})

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("\n🛑 Shutting down server...")
		cancel()
		if consumer != nil {
			if err := consumer.Close(); err != nil {
				log.Printf("⚠️  Failed to close upload consumer: %v", err)
			}
		}
		worker.Stop()
		if err := app.Shutdown(); err != nil {
			log.Printf("❌ Server forced to shutdown: %v", err)
		}
	}()

	// Start server
	addr := fmt.Sprintf(":%s", cfg.Server.Port)
	log.Printf("🚀 Server starting on %s\n", addr)

	if err := app.Listen(addr); err != nil {
		log.Fatalf("❌ Failed to start server: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}
