package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/n3utron0/telecom-call-data-analyzer/config"
	"github.com/n3utron0/telecom-call-data-analyzer/handler"
	"github.com/n3utron0/telecom-call-data-analyzer/middleware"
	"github.com/n3utron0/telecom-call-data-analyzer/pkg/logger"
	"github.com/n3utron0/telecom-call-data-analyzer/service"
)

func main() {
	// Load configuration
	cfg, err := config.Load("config.yaml")
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// Initialize logger
	logger.Init(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	})

	slog.Info("configuration loaded successfully")

	ctx := context.Background()

	// Initialize services
	audioStore, err := service.NewMinioAudioStore(&cfg.Minio)
	if err != nil {
		slog.Error("failed to initialize MINIO audio store", "error", err)
		os.Exit(1)
	}

	// Ensure bucket exists
	if err := audioStore.EnsureBucket(ctx); err != nil {
		slog.Error("failed to ensure MINIO bucket", "error", err)
		os.Exit(1)
	}

	llm, err := service.NewGeminiLLM(ctx, &cfg.Gemini)
	if err != nil {
		slog.Error("failed to initialize gemini client", "error", err)
		os.Exit(1)
	}

	sink, err := service.NewBigQuerySink(ctx, &cfg.BigQuery)
	if err != nil {
		slog.Error("failed to initialize bigquery sink", "error", err)
		os.Exit(1)
	}

	extractor := service.NewLLMExtractor(llm, cfg.Pipeline.CallTimeout())
	reviews := service.NewReviewStore(cfg.Pipeline.ReviewTTL())
	metrics := service.NewMetrics()
	gate := service.NewSafetyGate(cfg.Gate.ExtraDenyKeywords)

	singlePipeline := service.NewSinglePipeline(extractor, audioStore, sink, reviews, metrics)
	batchPipeline := service.NewBatchPipeline(extractor, audioStore, sink, metrics, cfg.Pipeline.MaxConcurrent)
	analyticsPipeline := service.NewAnalyticsPipeline(llm, gate, sink, sink.TableID())

	// Initialize handlers
	callHandler := handler.NewCallHandler(audioStore, singlePipeline, batchPipeline, cfg.Server.MaxUploadMB)
	chatHandler := handler.NewChatHandler(analyticsPipeline)
	metricsHandler := handler.NewMetricsHandler(metrics)

	// Setup Gin router
	gin.SetMode(gin.ReleaseMode)
	router := gin.New() // Use New() instead of Default() to avoid default middleware

	// Add custom middleware
	router.Use(middleware.RequestID())                 // Request ID for tracing
	router.Use(middleware.Recovery())                  // Panic recovery
	router.Use(middleware.RequestLogger())             // Access logging
	router.Use(corsMiddleware())                       // CORS
	router.Use(middleware.RateLimit(100, time.Minute)) // Rate limiting: 100 requests per minute

	router.MaxMultipartMemory = int64(cfg.Server.MaxUploadMB) << 20

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "ok",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	api := router.Group("/api")
	{
		api.POST("/calls/upload", callHandler.Upload)
		api.POST("/calls/batch", callHandler.BatchUpload)
		api.POST("/calls/:token/confirm", callHandler.Confirm)
		api.POST("/calls/:token/reject", callHandler.Reject)
		api.POST("/chat/query", chatHandler.Query)
		api.GET("/metrics", metricsHandler.Get)
		api.POST("/metrics/reset", metricsHandler.Reset)
	}

	// Create server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  60 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start server in goroutine
	go func() {
		slog.Info("server starting", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("failed to start server", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("server exited gracefully")
}

// corsMiddleware handles CORS headers
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")
		c.Writer.Header().Set("Access-Control-Expose-Headers", "X-Request-ID")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
