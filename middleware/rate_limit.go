package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis/v3"
	"github.com/redis/go-redis/v9"

	"verifybot/utils"
)

// RateLimitConfig holds all rate limiter instances
type RateLimitConfig struct {
	// Global ceiling on every route
	GlobalLimiter fiber.Handler
	// Strict limit on admin login attempts
	LoginLimiter fiber.Handler
	// Limit on authenticated admin API calls
	AdminAPILimiter fiber.Handler
}

// NewRateLimitConfig creates all rate limiters. With a Redis client the
// counters are shared across replicas; without one they fall back to
// per-process in-memory storage.
func NewRateLimitConfig(rdb *redis.Client) *RateLimitConfig {
	var storage fiber.Storage
	if rdb != nil {
		storage = redisstorage.NewFromConnection(rdb)
	}

	globalLimiter := limiter.New(limiter.Config{
		Max:        100,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
	})

	loginLimiter := limiter.New(limiter.Config{
		Max:        5,
		Expiration: 5 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many login attempts. Please try again later.",
			})
		},
	})

	adminAPILimiter := limiter.New(limiter.Config{
		Max:        60,
		Expiration: 1 * time.Minute,
		KeyGenerator: func(c *fiber.Ctx) string {
			return utils.ClientIP(c)
		},
		Storage: storage,
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests. Please slow down.",
			})
		},
	})

	return &RateLimitConfig{
		GlobalLimiter:   globalLimiter,
		LoginLimiter:    loginLimiter,
		AdminAPILimiter: adminAPILimiter,
	}
}
