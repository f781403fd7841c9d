package routes

import (
	"guardialog/internal/api/handlers"
	"guardialog/internal/api/middleware"
	"guardialog/internal/config"
	"guardialog/internal/services"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

func SetupRoutes(r *gin.Engine, cfg *config.Config, db *gorm.DB) {
	// Initialize services
	authService := services.NewAuthService(cfg, db)
	userService := services.NewUserService(cfg, db)
	guardiaService := services.NewGuardiaService(db)
	reportService := services.NewReportService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService, cfg)
	guardiaHandler := handlers.NewGuardiaHandler(guardiaService, authService)
	userHandler := handlers.NewUserHandler(userService, authService)
	reportHandler := handlers.NewReportHandler(reportService)

	r.Use(middleware.CORSMiddleware())

	// Public routes
	api := r.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":  "ok",
				"message": "Guardialog API is running",
			})
		})

		auth := api.Group("/auth")
		{
			auth.POST("/login", authHandler.Login)
		}
	}

	// Protected routes. The auth subgroup sits outside the password gate so
	// a flagged account can still change its password, inspect itself and
	// log out.
	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware(authService))
	{
		protected.POST("/auth/logout", authHandler.Logout)
		protected.GET("/auth/me", authHandler.GetMe)
		protected.POST("/auth/password", authHandler.ChangePassword)
	}

	guarded := protected.Group("")
	guarded.Use(middleware.PasswordChangeGate())
	{
		// Guardia routes
		guardias := guarded.Group("/guardias")
		{
			guardias.GET("", guardiaHandler.List)
			guardias.POST("", guardiaHandler.Create)
			guardias.GET("/:id", guardiaHandler.Get)
			guardias.PUT("/:id", guardiaHandler.Update)
			guardias.POST("/:id/resolver", guardiaHandler.Resolve)
		}

		guarded.GET("/historial", guardiaHandler.History)

		// Reporting
		guarded.GET("/dashboard", middleware.RequireAdmin(), reportHandler.Dashboard)
		guarded.GET("/reportes/guardias.csv", reportHandler.ExportCSV)

		// User management routes
		users := guarded.Group("/users", middleware.RequireAdmin())
		{
			users.GET("", userHandler.GetUsers)
			users.GET("/:id", userHandler.GetUser)
			users.POST("", userHandler.CreateUser)
			users.PUT("/:id", userHandler.UpdateUser)
			users.POST("/:id/toggle", userHandler.ToggleActivo)
			users.POST("/:id/toggle-admin", userHandler.ToggleAdmin)
			users.POST("/:id/reset-password", userHandler.ResetPassword)
			users.DELETE("/:id", userHandler.DeleteUser)
		}
	}
}
