package main

import (
	"fmt"
	"log"

	"guardialog/internal/api/middleware"
	"guardialog/internal/api/routes"
	"guardialog/internal/config"
	"guardialog/internal/models"
	"guardialog/internal/services"
	"guardialog/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.New(cfg.Server.Mode)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	// Initialize database
	db, err := models.InitDB(cfg)
	if err != nil {
		zapLogger.Fatal("Failed to initialize database", zap.Error(err))
	}

	// Seed the admin account before taking traffic
	authService := services.NewAuthService(cfg, db)
	if err := authService.EnsureBootstrapAdmin(); err != nil {
		zapLogger.Fatal("Failed to bootstrap admin account", zap.Error(err))
	}
	if err := authService.DeleteExpiredSessions(); err != nil {
		zapLogger.Warn("Failed to prune expired sessions", zap.Error(err))
	}

	// Set Gin mode
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Create router
	r := gin.New()
	r.Use(middleware.RequestLogger(zapLogger))
	r.Use(gin.Recovery())

	// Setup routes
	routes.SetupRoutes(r, cfg, db)

	r.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{"error": "Endpoint not found"})
	})

	// Run server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	zapLogger.Info("Starting Guardialog server", zap.String("addr", addr))
	if err := r.Run(addr); err != nil {
		zapLogger.Fatal("Failed to start server", zap.Error(err))
	}
}
