package main

import (
	"fmt"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"stontr/internal/config"
	"stontr/internal/database"
	"stontr/internal/handlers"
	"stontr/internal/logger"
	"stontr/internal/middleware"
	"stontr/internal/services"
	"stontr/internal/validator"
)

// @title           Stontr API
// @version         1.0
// @description     Stontr tracks recurring and one-time life events, computes how urgent each one is, and moves whole collections in and out via CSV.

// @host      localhost:8080
// @BasePath  /api/v1

func main() {
	// Initialize logger (use ENV var if available, default to development)
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if err := run(); err != nil {
		logger.Get().Fatalf("Fatal error: %v", err)
	}
}

func run() error {
	log := logger.Get()

	// Load configuration
	appConfig, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// Initialize database configuration
	dbConfig, err := database.NewConfig()
	if err != nil {
		return fmt.Errorf("failed to load database configuration: %w", err)
	}

	// Create database manager
	dbManager, err := database.NewManager(dbConfig)
	if err != nil {
		return fmt.Errorf("failed to create database manager: %w", err)
	}

	// Run migrations
	if err := dbManager.RunMigrations(); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	// Register custom request validators
	validator.Register()

	// Initialize services
	db := dbManager.DB()
	categoryService := services.NewCategoryService(db)
	eventService := services.NewEventService(db)
	importService := services.NewImportService(db, appConfig.ImportWorkers)
	exportService := services.NewExportService(db)
	auditService := services.NewAuditService(db)

	// Initialize handlers
	categoryHandler := handlers.NewCategoryHandler(categoryService, auditService)
	eventHandler := handlers.NewEventHandler(eventService, auditService, appConfig.OneTimeCycleDays)
	impexHandler := handlers.NewImpexHandler(importService, exportService, auditService)

	// Initialize Gin router
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogging())
	router.Use(middleware.ErrorHandler())

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	})

	// Health check endpoint
	router.GET("/api/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// API v1 group
	v1 := router.Group("/api/v1")

	// Category routes
	categories := v1.Group("/categories")
	categories.POST("", categoryHandler.CreateCategory)
	categories.GET("", categoryHandler.GetCategories)
	categories.DELETE("/:id", categoryHandler.DeleteCategory)

	// Event routes
	events := v1.Group("/events")
	events.POST("", eventHandler.CreateEvent)
	events.GET("", eventHandler.GetEvents)
	events.POST("/import", impexHandler.ImportEvents)
	events.GET("/export", impexHandler.ExportEvents)
	events.GET("/:id", eventHandler.GetEvent)
	events.PUT("/:id", eventHandler.UpdateEvent)
	events.DELETE("/:id", eventHandler.DeleteEvent)
	events.PUT("/:id/notes", eventHandler.UpdateEventNotes)
	events.POST("/:id/complete", eventHandler.CompleteEvent)

	log.Infof("Starting Stontr backend server on port %s", appConfig.Port)
	return router.Run(":" + appConfig.Port)
}
