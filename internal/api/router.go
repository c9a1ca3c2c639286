package api

import (
	"github.com/casper/babelbot/internal/api/handler"
	"github.com/casper/babelbot/internal/api/middleware"
	"github.com/casper/babelbot/internal/config"
	"github.com/casper/babelbot/internal/metrics"
	"github.com/casper/babelbot/internal/repository"
	"github.com/casper/babelbot/internal/service"
	"github.com/gin-gonic/gin"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	translator *service.Translator,
	dispatcher *service.Dispatcher,
	repo *repository.HistoryRepository,
	serverCfg *config.ServerConfig,
) *gin.Engine {
	// Set Gin mode
	switch serverCfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	// Add middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  serverCfg.CORS.AllowedOrigins,
		AllowAllOrigins: serverCfg.CORS.AllowAllOrigins,
	}))

	// Create handlers
	healthHandler := handler.NewHealthHandler()
	translateHandler := handler.NewTranslateHandler(translator, dispatcher)
	historyHandler := handler.NewHistoryHandler(repo)

	// Health check and metrics
	r.GET("/health", healthHandler.Health)
	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		// Translation
		v1.POST("/translate", translateHandler.Translate)
		v1.POST("/translate/async", translateHandler.TranslateAsync)

		// Stats
		v1.GET("/stats", historyHandler.GetStats)

		// User data
		v1.GET("/users/:id/stats", historyHandler.GetUserStats)
		v1.DELETE("/users/:id", historyHandler.DeleteUser)
	}

	return r
}
