package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"flight-aggregator-service/internal/app"
	"flight-aggregator-service/internal/infrastructure/config"
	"flight-aggregator-service/internal/infrastructure/router"
	"flight-aggregator-service/internal/interface/api"
	"flight-aggregator-service/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	// Create logger
	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting Flight Aggregator Service",
		"version", cfg.AppVersion,
		"flightDate", cfg.FlightDate,
		"policy", cfg.FailurePolicy)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, cfg, log, prometheus.DefaultRegisterer)
	if err != nil {
		log.Fatal("Failed to initialise service", "error", err)
	}

	flightHandler := api.NewFlightHandler(ctx,
		application.Session,
		application.Exporter,
		application.Persister,
		application.Runs,
		log.With("component", "http"))

	handler := router.NewRouter(router.Options{
		Version:        cfg.AppVersion,
		AllowedOrigins: cfg.CORSAllowedOrigins,
		Gatherer:       prometheus.DefaultGatherer,
	}, flightHandler, log.With("component", "http"))

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig)

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // Cancel the context to stop the run in flight

	application.Close(shutdownCtx)

	log.Info("Flight Aggregator Service stopped")
}
