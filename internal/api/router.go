// router.go - Route table and CORS setup

package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/secdoc/ocr-gateway/configs"
)

// NewRouter builds the gin engine with CORS, method-not-allowed handling
// and the gateway's route table.
func NewRouter(cfg *configs.Config, h *Handlers) *gin.Engine {
	router := gin.Default()
	router.HandleMethodNotAllowed = true

	// Permissive CORS; OPTIONS preflights answer 200 on every endpoint.
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", cfg.AllowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusOK)
			return
		}
		c.Next()
	})

	// Root endpoint for SSL verification
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"service": "ocr-gateway",
			"version": "1.0.0",
		})
	})

	router.POST("/ocr", h.Recognize)
	router.POST("/ocr/test", h.Probe)
	router.POST("/analyze", h.Analyze)
	router.POST("/terminology/parse", h.ParseTerminology)

	return router
}
