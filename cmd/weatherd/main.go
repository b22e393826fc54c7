package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/cmorrow/weathercache/internal/api/http"
	"github.com/cmorrow/weathercache/internal/config"
	"github.com/cmorrow/weathercache/internal/forecast"
	"github.com/cmorrow/weathercache/internal/nws"
	"github.com/cmorrow/weathercache/internal/registry"
	"github.com/cmorrow/weathercache/internal/scheduler"
	"github.com/cmorrow/weathercache/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	reg, err := registry.New(cfg.Locations, cfg.DefaultLocation)
	if err != nil {
		log.Fatalf("failed to build location registry: %v", err)
	}

	// Shared HTTP client for outbound upstream calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}
	client := nws.NewClient(httpClient, cfg.NWSBaseURL, cfg.UserAgent)

	fileStore, err := store.NewFileStore(cfg.DataDir)
	if err != nil {
		log.Fatalf("failed to open cache store: %v", err)
	}

	// Core service orchestrating upstream fetches and the cache.
	service := forecast.NewService(reg, client, fileStore)

	// Scheduler that periodically refreshes all locations.
	sched := scheduler.New(cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		log.Fatalf("failed to start scheduler: %v", err)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weathercache",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weathercache",
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, service, cfg.MaxAge)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
