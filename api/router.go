// Package api wires the HTTP service surface around the fetch dispatchers.
package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/use-agent/fetchkit/api/handler"
	"github.com/use-agent/fetchkit/api/middleware"
	"github.com/use-agent/fetchkit/config"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → Logger
//	API:     Auth (if enabled) → RateLimit
//
// Health endpoint is intentionally outside auth so monitoring probes always
// work.
func NewRouter(d handler.Dispatchers, cfg *config.Config) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.Logger())

	v1 := r.Group("/api/v1")

	v1.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	protected := v1.Group("")
	if cfg.Auth.Enabled {
		protected.Use(middleware.Auth(cfg.Auth.APIKeys))
	}
	protected.Use(middleware.RateLimit(cfg.RateLimit))

	protected.POST("/fetch", handler.Fetch(d))

	return r
}
