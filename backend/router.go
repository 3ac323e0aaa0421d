// backend/router.go
package main

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func newBaseRouter(cfg *Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	_ = router.SetTrustedProxies(nil)

	var allowedOrigins []string
	if cfg.CORSAllowedOrigins != "" {
		allowedOrigins = strings.Split(cfg.CORSAllowedOrigins, ",")
	}
	if len(allowedOrigins) > 0 {
		slog.Info("CORS Allowed Origins", "origins", allowedOrigins)
		router.Use(cors.New(cors.Config{
			AllowOrigins:     allowedOrigins,
			AllowMethods:     []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "X-Requested-With"},
			ExposeHeaders:    []string{"Content-Length"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}))
	}

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return router
}

func writeLimiter(cfg *Config) gin.HandlerFunc {
	if !cfg.RateLimit.Enabled {
		slog.Warn("速率限制已禁用")
		return nil
	}
	limiter := NewIPRateLimiter(cfg.RateLimit.Requests, cfg.GetRateLimitDuration())
	slog.Info("已启用写入速率限制", "requests", cfg.RateLimit.Requests, "durationMinutes", cfg.RateLimit.DurationMinutes)
	return limiter.RateLimitMiddleware()
}

// setupRouter 为已初始化的服务构建路由，不包含任何配置接口
func setupRouter(cfg *Config, imports *ImportHandler) *gin.Engine {
	router := newBaseRouter(cfg)

	apiV1 := router.Group("/api/v1")
	{
		writes := apiV1.Group("/")
		if mw := writeLimiter(cfg); mw != nil {
			writes.Use(mw)
		}
		writes.POST("/imports", imports.HandleCreateImport)

		apiV1.GET("/imports/:id", imports.HandleGetImport)
		apiV1.GET("/imports/:id/content", imports.HandleImportContent)
		apiV1.GET("/imports/:id/thumbnail", imports.HandleImportThumbnail)
		apiV1.DELETE("/imports/:id", imports.HandleDeleteImport)
	}
	return router
}

// setupModeRouter 只在未初始化时使用，仅提供配置状态与验证接口
func setupModeRouter(cfg *Config, setup *SetupHandler) *gin.Engine {
	router := newBaseRouter(cfg)

	apiV1 := router.Group("/api/v1/setup")
	{
		apiV1.GET("/status", setup.GetStatus)
		if mw := writeLimiter(cfg); mw != nil {
			apiV1.POST("/validate", mw, setup.ValidateConfig)
		} else {
			apiV1.POST("/validate", setup.ValidateConfig)
		}
	}
	return router
}
