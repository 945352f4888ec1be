package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	swagger "github.com/gofiber/swagger"
	"github.com/rs/zerolog"
	"github.com/winnerqin/jimeng4-image-generator/internal/config"
	"github.com/winnerqin/jimeng4-image-generator/internal/database"
	"github.com/winnerqin/jimeng4-image-generator/internal/handlers"
	"github.com/winnerqin/jimeng4-image-generator/internal/middleware"
	"github.com/winnerqin/jimeng4-image-generator/internal/progress"
	"github.com/winnerqin/jimeng4-image-generator/internal/providers"
	"github.com/winnerqin/jimeng4-image-generator/internal/services"
	"github.com/winnerqin/jimeng4-image-generator/internal/storage"

	_ "github.com/winnerqin/jimeng4-image-generator/docs/api" // Swagger docs
)

// @title Jimeng Image Generator API
// @version 1.0.0
// @description AI image generation service with batch progress tracking and an asset library
// @termsOfService http://swagger.io/terms/

// @host localhost:5000
// @BasePath /api
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zlog := zerolog.New(os.Stderr).With().Timestamp().Logger()

	// Connect to database
	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close(db)

	// Run auto-migrations
	if err := database.AutoMigrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Object storage (disabled unless configured)
	store, err := storage.New(context.Background(), cfg, zlog)
	if err != nil {
		log.Fatalf("Failed to initialize object storage: %v", err)
	}

	// Generation provider and batch machinery
	provider := providers.NewVisualClient(cfg.ProviderURL, cfg.ProviderAK, cfg.ProviderSK, cfg.ProviderTimeout)
	tracker := progress.NewTracker()
	generator := &services.Generator{DB: db, Provider: provider, Cfg: cfg, Log: zlog}

	// Create Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler:          customErrorHandler,
		BodyLimit:             32 * 1024 * 1024,
		DisableStartupMessage: false,
	})

	// Global middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(compress.New())

	// Prometheus metrics
	prometheus := fiberprometheus.New("jimeng")
	prometheus.RegisterAt(app, "/metrics")
	app.Use(prometheus.Middleware)

	// Swagger documentation
	app.Get("/swagger/*", swagger.HandlerDefault)

	// Health probe
	app.Get("/healthz", func(c *fiber.Ctx) error {
		result := services.HealthCheck(c.Context(), cfg, db, store)
		status := fiber.StatusOK
		if result.Status != "healthy" {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(result)
	})

	// Generated images are served from the per-user output tree
	app.Static("/output", cfg.OutputDir)

	// API routes under /api
	api := app.Group("/api")
	api.Use(middleware.VersionMiddleware())

	// Create handlers
	authHandler := &handlers.AuthHandler{DB: db, Cfg: cfg}
	genHandler := &handlers.GenerateHandler{Gen: generator, Tracker: tracker}
	recordsHandler := &handlers.RecordsHandler{DB: db}
	libraryHandler := &handlers.LibraryHandler{DB: db}
	statsHandler := &handlers.StatsHandler{DB: db}
	samplesHandler := &handlers.SamplesHandler{DB: db, Store: store}

	// Session routes
	api.Post("/login", authHandler.Login)
	api.Get("/me", middleware.AuthUser(cfg), authHandler.Me)

	// Generation routes (all require authentication)
	auth := middleware.AuthUser(cfg)
	api.Post("/generate", auth, genHandler.Generate)
	api.Post("/batch-generate", auth, genHandler.BatchGenerate)
	api.Get("/batch-progress/:batch_id", auth, genHandler.BatchProgress)

	// History routes
	api.Get("/records", auth, recordsHandler.ListRecords)
	api.Get("/records/batch/:batch_id", auth, recordsHandler.GetBatchRecords)
	api.Get("/records/:id", auth, recordsHandler.GetRecord)
	api.Delete("/records/:id", auth, recordsHandler.DeleteRecord)

	// Asset library routes
	api.Post("/library/:category", auth, libraryHandler.SaveAsset)
	api.Get("/library/:category", auth, libraryHandler.ListAssets)
	api.Delete("/library/:category/:id", auth, libraryHandler.DeleteAsset)

	// Sample images and uploads
	api.Get("/sample-images", auth, samplesHandler.ListSampleImages)
	api.Post("/upload", auth, samplesHandler.Upload)

	// Admin-only statistics routes
	admin := middleware.RequireAdmin()
	api.Get("/stats/overview", auth, admin, statsHandler.Overview)
	api.Get("/stats/users", auth, admin, statsHandler.PerUser)
	api.Get("/stats/daily", auth, admin, statsHandler.Daily)

	// 404 handler
	app.Use(func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
			"status":    fiber.StatusNotFound,
			"message":   "[404] Resource Not Found",
			"ok":        false,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
			"url":       c.OriginalURL(),
		})
	})

	// Graceful shutdown
	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-c
		log.Println("Gracefully shutting down...")
		_ = app.Shutdown()
	}()

	// Start server
	port := cfg.Port
	log.Printf("Starting server on port %s", port)
	if err := app.Listen(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}

	log.Println("Server stopped")
}

// customErrorHandler handles errors globally
func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := err.Error()
	errorType := "unknown"

	// Check if it's a Fiber error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"status":    code,
		"message":   message,
		"ok":        false,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"url":       c.OriginalURL(),
		"type":      errorType,
	})
}
