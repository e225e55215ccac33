package handler

import (
	"net/http"

	"distribuidora/internal/middleware"
	"distribuidora/internal/websocket"
	"distribuidora/pkg/token"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// RouteRegistrar is implemented by every handler that mounts endpoints.
type RouteRegistrar interface {
	RegisterRoutes(router *gin.RouterGroup)
}

type RouterConfig struct {
	CORSOrigins []string
	Hub         *websocket.Hub
	Tokens      *token.Issuer
	Handlers    []RouteRegistrar
}

// NewRouter assembles middleware, infrastructure routes and the /api handlers.
func NewRouter(cfg RouterConfig) *gin.Engine {
	RegisterValidators()

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger())

	// Without origins only same-origin callers are served.
	if len(cfg.CORSOrigins) > 0 {
		router.Use(corsMiddleware(cfg.CORSOrigins))
	}

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})

	if cfg.Hub != nil {
		router.GET("/ws", func(c *gin.Context) {
			websocket.ServeWs(cfg.Hub, c, cfg.Tokens)
		})
	}

	api := router.Group("/api")
	for _, h := range cfg.Handlers {
		h.RegisterRoutes(api)
	}

	return router
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = origins
	corsConfig.AllowCredentials = true
	corsConfig.AllowHeaders = []string{"Origin", "Content-Length", "Content-Type", "Authorization", "Accept", middleware.RequestIDHeader}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.ExposeHeaders = []string{"Content-Disposition", middleware.RequestIDHeader}
	return cors.New(corsConfig)
}
