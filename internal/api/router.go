package api

import (
	"github.com/gin-gonic/gin"
	"github.com/timmy/orderbatch/internal/api/handler"
	"github.com/timmy/orderbatch/internal/api/middleware"
	"github.com/timmy/orderbatch/internal/config"
	"github.com/timmy/orderbatch/internal/logger"
)

// SetupRouter configures the Gin router with all routes
func SetupRouter(
	runs handler.RunQuerier,
	db handler.Pinger,
	cfg *config.ServerConfig,
	log *logger.Logger,
) *gin.Engine {
	// Set Gin mode
	switch cfg.Mode {
	case "release":
		gin.SetMode(gin.ReleaseMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.DebugMode)
	}

	r := gin.New()

	r.Use(gin.Recovery())
	r.Use(middleware.LoggerMiddleware(log))
	r.Use(middleware.CORS(middleware.CORSConfig{
		AllowedOrigins:  cfg.CORS.AllowedOrigins,
		AllowAllOrigins: cfg.CORS.AllowAllOrigins,
	}))

	healthHandler := handler.NewHealthHandler(db)
	runHandler := handler.NewRunHandler(runs)

	r.GET("/health", healthHandler.Health)

	v1 := r.Group("/api/v1")
	{
		v1.GET("/runs", runHandler.ListRuns)
		v1.GET("/runs/:id", runHandler.GetRun)
		v1.GET("/runs/:id/chunks", runHandler.ListChunks)
		v1.GET("/runs/:id/summary", runHandler.Summary)
		v1.GET("/runs/:id/report", runHandler.ArchivedReport)
	}

	return r
}
