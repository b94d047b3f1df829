// verifybot - Telegram seller-verification bot with a Postgres-backed
// registry, an HTTP health/admin surface, and Prometheus metrics.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"verifybot/bot"
	"verifybot/config"
	"verifybot/database"
	"verifybot/metrics"
	"verifybot/registry"
	"verifybot/server"
	"verifybot/utils"
)

func main() {
	// Initialize logging
	utils.InitLogging()

	// Load configuration
	cfg := config.LoadConfig()
	utils.TrustProxyHeaders.Store(cfg.TrustProxyHeaders)

	// Track application start time for uptime calculation
	startTime := time.Now()

	// Shutdown context: SIGINT/SIGTERM stop the poller and the HTTP server
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup database with automatic migrations
	db, err := database.SetupDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Database setup failed:", err)
	}
	defer db.Close()

	// Setup Redis lookup cache (optional)
	var rdb *redis.Client
	redisReady := true
	if cfg.RedisURL != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0, // use default DB
		})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			redisReady = false
			log.Printf("Warning: Redis unavailable, lookups fall through to Postgres: %v", err)
		}
	} else {
		log.Println("REDIS_URL not set, running without a lookup cache")
	}

	// Verified-seller registry and admin store
	reg := registry.New(db, rdb, cfg.CacheTTL)
	admins := bot.NewAdminStore(db, cfg.OwnerID)
	if err := admins.SeedOwner(ctx, ""); err != nil {
		log.Printf("Warning: Failed to seed owner admin: %v", err)
	}

	readyState := server.NewReadyState(db, rdb, cfg)
	if redisReady {
		readyState.MarkRedisReady()
	}

	// Start the long-polling worker. It authenticates inside Run and
	// retries while Telegram is unreachable, so the HTTP surface still
	// comes up during an outage.
	tgBot := bot.NewWithToken(cfg.TelegramToken, reg, admins)
	tgBot.OnReady = readyState.MarkBotReady
	go tgBot.Run(ctx)

	// Periodic connection pool gauges
	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stat := db.Stat()
				metrics.UpdateDatabaseMetrics(int(stat.AcquiredConns()), int(stat.IdleConns()))
			}
		}
	}()

	// HTTP surface: health, metrics, admin API
	app := server.CreateFiberApp(startTime, readyState)
	if err := setupRoutes(app, rdb, reg, cfg, startTime, readyState); err != nil {
		log.Fatal("Route setup failed:", err)
	}

	go func() {
		<-ctx.Done()
		log.Println("Shutdown signal received, draining HTTP server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Warning: HTTP shutdown error: %v", err)
		}
	}()

	if err := server.ListenWithIPv6Fallback(app, cfg.Port, startTime); err != nil {
		log.Fatal("Server failed:", err)
	}

	log.Println("Shutdown complete")
}
