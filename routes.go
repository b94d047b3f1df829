package main

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	appconfig "verifybot/config"
	"verifybot/handlers"
	"verifybot/metrics"
	"verifybot/middleware"
	"verifybot/registry"
	appserver "verifybot/server"
)

// setupRoutes configures all API routes and middleware for the application
func setupRoutes(app *fiber.App, rdb *redis.Client, reg *registry.Registry, config *appconfig.Config, startTime time.Time, readyState *appserver.ReadyState) error {
	// Security middleware
	app.Use(helmet.New(helmet.Config{
		XSSProtection:      "1; mode=block",
		ContentTypeNosniff: "nosniff",
		XFrameOptions:      "DENY",
		HSTSMaxAge: func() int {
			if config.Environment == "production" {
				return 31536000
			}
			return 0
		}(),
		ReferrerPolicy: "strict-origin-when-cross-origin",
	}))

	// CORS
	app.Use(cors.New(cors.Config{
		AllowOrigins: strings.Join(config.AllowedOrigins, ","),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET, POST, PUT, DELETE, OPTIONS",
	}))

	// Prometheus metrics (if enabled)
	if config.EnableMetrics {
		app.Use(metrics.PrometheusMiddleware())
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	}

	// Rate limiting
	rateLimits := middleware.NewRateLimitConfig(rdb)
	app.Use(rateLimits.GlobalLimiter)

	if !config.AdminAPIEnabled {
		return nil
	}

	authHandler, err := handlers.NewAuthHandler(config)
	if err != nil {
		return err
	}
	sellersHandler := handlers.NewSellersHandler(reg, startTime, readyState.IsBotReady)

	api := app.Group("/api/v1")
	api.Post("/auth/login", rateLimits.LoginLimiter, authHandler.Login)

	admin := api.Group("", middleware.AdminJWT(config.AdminAPISecret), rateLimits.AdminAPILimiter)
	admin.Get("/sellers", sellersHandler.ListSellers)
	admin.Get("/sellers/:username", sellersHandler.GetSeller)
	admin.Put("/sellers/:username", sellersHandler.PutSeller)
	admin.Delete("/sellers/:username", sellersHandler.DeleteSeller)
	admin.Get("/stats", sellersHandler.Stats)

	return nil
}
