package server

import (
	"context"
	"net/http"
	"time"

	"github.com/foodscan/foodscan-api/internal/config"
	"github.com/foodscan/foodscan-api/internal/domain"
	"github.com/gin-gonic/gin"
)

// NewRouter builds the HTTP transport around the scan pipeline. One
// configurable pipeline, one transport binding.
func NewRouter(cfg *config.Config, scans domain.ScanService) http.Handler {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(),
		requestTimeout(cfg.Server.RequestTimeout),
		requestSizeLimiter(cfg.Server.MaxImageBytes))

	h := &handler{scans: scans, cfg: cfg}

	r.GET("/health", h.health)

	api := r.Group("/api/v1")
	{
		api.POST("/scan/image", h.scanImage)
		api.POST("/scan/barcode", h.scanBarcode)
		api.POST("/scan/text", h.scanText)
		api.GET("/scan/:id", h.getScan)
	}

	return r
}

// requestTimeout bounds every adapter call made during a request. A deadline
// hit inside an adapter is treated as that adapter's call failure and
// triggers its fallback tier.
func requestTimeout(timeout time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// requestSizeLimiter rejects bodies larger than the configured image limit
// before handlers buffer them.
func requestSizeLimiter(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
