// main.go - The entry point and server setup.

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/secdoc/ocr-gateway/configs"
	"github.com/secdoc/ocr-gateway/internal/api"
	"github.com/secdoc/ocr-gateway/internal/storage"
)

func main() {
	// Step 1: Load configuration from environment variables
	cfg := configs.LoadConfig()

	if ginMode := os.Getenv("GIN_MODE"); ginMode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Step 2: Connect the optional request log / terminology store
	if cfg.MongoEnabled() {
		if err := storage.InitMongoDB(cfg); err != nil {
			log.Fatalf("Failed to connect to MongoDB: %v", err)
		}
		defer storage.CloseMongoDB()
	} else {
		log.Println("MONGO_URI not set, request logging disabled")
	}

	// Step 3: Build the router
	handlers := api.NewHandlers(cfg)
	router := api.NewRouter(cfg, handlers)

	// Step 4: Setup HTTP server with timeouts
	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   3 * time.Minute, // vendor OCR and model calls can be slow
		MaxHeaderBytes: 1 << 20,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Starting server on :%s", cfg.Port)
		log.Println("API Endpoints:")
		log.Println("  POST /ocr")
		log.Println("  POST /ocr/test")
		log.Println("  POST /analyze")
		log.Println("  POST /terminology/parse")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
