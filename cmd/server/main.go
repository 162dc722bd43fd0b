package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/config"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/metrics"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/pricing"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/internal/server"
	"github.com/vijayalakshmivardineedi/Delicious-rest-user/pkg/logger"
)

var version = "dev"

func main() {
	// Load configuration from file and environment
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.NewWithConfig(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat})
	slog.SetDefault(log)

	log.Info("starting storefront api server",
		"port", cfg.Server.Port,
		"host", cfg.Server.Host,
		"log_level", cfg.LogLevel,
		"version", version,
	)

	rate, err := cfg.Pricing.Rate()
	if err != nil {
		log.Error("invalid pricing configuration", "error", err)
		os.Exit(1)
	}

	backend := server.New(server.Options{
		JWTSecret: cfg.Auth.JWTSecret,
		Version:   version,
		Pricing:   pricing.New(cfg.Pricing.DeliveryFee, rate),
		Logger:    log,
		Metrics:   metrics.NewCollector(),
	})

	if len(cfg.Coupon.Sources) > 0 {
		log.Info("loading coupon sources", "count", len(cfg.Coupon.Sources))
		loadCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		loaded, err := backend.Coupons.LoadSources(loadCtx, cfg.Coupon.Sources)
		cancel()
		if err != nil {
			log.Error("failed to load coupon sources", "error", err)
			os.Exit(1)
		}
		log.Info("coupon sources loaded", "coupons", loaded)
	}

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      backend,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		log.Info("server listening", "address", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.Server.ShutdownTimeout)*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped gracefully")
}
