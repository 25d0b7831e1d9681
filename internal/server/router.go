package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"gorm.io/gorm"

	"github.com/platewise/platewise-backend/internal/handlers"
	"github.com/platewise/platewise-backend/internal/logger"
	"github.com/platewise/platewise-backend/internal/middleware"
)

type RouterConfig struct {
	DB                 *gorm.DB
	Log                *logger.Logger
	SyncHandler        *handlers.SyncHandler
	AlertsHandler      *handlers.AlertsHandler
	RestaurantsHandler *handlers.RestaurantsHandler
	DietHandler        *handlers.DietHandler
	CredentialsHandler *handlers.CredentialsHandler
	AllowedOrigins     []string
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("platewise-backend"))
	router.Use(middleware.RequestLogger(cfg.Log))

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:3000", "http://localhost:5173"}
	}
	router.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With", "X-Request-Id"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck(cfg.DB))

	api := router.Group("/api")
	{
		// Sync pipeline
		api.POST("/sync", cfg.SyncHandler.TriggerSync)
		api.POST("/import", cfg.SyncHandler.TriggerImport)
		api.GET("/jobs", cfg.SyncHandler.ListJobs)
		api.GET("/jobs/:id", cfg.SyncHandler.GetJob)

		// Review queue
		api.GET("/alerts", cfg.AlertsHandler.ListAlerts)
		api.POST("/alerts/dismiss_all", cfg.AlertsHandler.DismissAll)
		api.POST("/alerts/:id/dismiss", cfg.AlertsHandler.DismissAlert)

		// Catalog
		api.GET("/restaurants", cfg.RestaurantsHandler.ListRestaurants)
		api.GET("/restaurants/:id", cfg.RestaurantsHandler.GetRestaurant)
		api.GET("/diet/tags", cfg.DietHandler.ListTags)
		api.PUT("/restaurants/:id/diet/:tag", cfg.DietHandler.PutOverride)
		api.DELETE("/restaurants/:id/diet/:tag", cfg.DietHandler.DeleteOverride)

		// Provider administration
		api.PUT("/providers/:key/credential", cfg.CredentialsHandler.PutCredential)
	}

	return router
}
