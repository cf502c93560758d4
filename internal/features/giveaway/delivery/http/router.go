package http

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"giveaway-bot/internal/common/middleware"
	"giveaway-bot/internal/platform/sysinfo"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

type RouterConfig struct {
	Debug      bool
	AdminToken string
	Origin     string
	Service    string
}

// NewRouter builds the admin API: health checks and metrics at the root, the
// token-guarded API under /api/v1.
func NewRouter(cfg RouterConfig, handler *GiveawayHandler, store Pinger, metrics http.Handler) *gin.Engine {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(middleware.RequestID())
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Logger())
	router.Use(middleware.HandleErrors())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = []string{cfg.Origin}
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Content-Type", "Accept", middleware.AdminTokenHeader}
	router.Use(cors.New(corsConfig))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().UTC(),
			"service":   cfg.Service,
		})
	})

	router.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := store.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":  "unready",
				"error":   "store unavailable",
				"details": err.Error(),
			})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":    "ready",
			"timestamp": time.Now().UTC(),
			"service":   cfg.Service,
		})
	})

	router.GET("/status", middleware.RequireAdminToken(cfg.AdminToken), func(c *gin.Context) {
		c.JSON(http.StatusOK, sysinfo.Collect(c.Request.Context()))
	})

	router.GET("/metrics", gin.WrapH(metrics))

	v1 := router.Group("/api/v1", middleware.RequireAdminToken(cfg.AdminToken))
	handler.RegisterRoutes(v1)

	return router
}
