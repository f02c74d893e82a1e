package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrimitra/agrimitra-backend/pkg/config"
	"github.com/agrimitra/agrimitra-backend/pkg/health"
	"github.com/agrimitra/agrimitra-backend/pkg/logging"
	"github.com/agrimitra/agrimitra-backend/pkg/metrics"
	"github.com/agrimitra/agrimitra-backend/pkg/resilience"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "agrimitra",
		Version:     os.Getenv("APP_VERSION"),
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)

	// Initialize Prometheus metrics
	m := metrics.NewMetrics(&metrics.Config{
		Namespace: cfg.Metrics.Namespace,
		Subsystem: cfg.Metrics.Subsystem,
		Enabled:   cfg.Metrics.Enabled,
	})

	// Breaker registry and error tracker shared by the service wrappers
	registry := resilience.NewRegistry()
	tracker := resilience.NewErrorTracker()

	// Prune tracked errors periodically so the log stays bounded
	go func() {
		ticker := time.NewTicker(cfg.Resilience.TrackerMaxAge / 4)
		defer ticker.Stop()
		for range ticker.C {
			tracker.ClearOldErrors(cfg.Resilience.TrackerMaxAge)
		}
	}()

	// Health checks over the resilience state
	healthService := health.NewService(logger, map[string]string{
		"service": "agrimitra",
	})
	healthService.RegisterChecker("circuit_breakers", health.NewBreakerChecker(registry))
	healthService.RegisterChecker("error_tracker", health.NewTrackerChecker(tracker, 5*time.Minute))

	// Operational endpoints
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.GET("/health", healthService.Handler())
	router.GET("/health/live", healthService.LivenessHandler())
	router.GET("/health/ready", healthService.ReadinessHandler())
	router.GET("/metrics", gin.WrapH(m.Handler()))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("Starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	logger.Info("Server exited")
}
