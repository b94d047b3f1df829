package server

import (
	"sync/atomic"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"verifybot/config"
)

// ReadyState tracks initialization state for health checks
type ReadyState struct {
	db     *pgxpool.Pool
	rdb    *redis.Client
	config *config.Config

	botReady   atomic.Bool
	redisReady atomic.Bool
}

// NewReadyState creates a new ReadyState instance. rdb may be nil when no
// cache is configured; MarkRedisReady is then expected at startup.
func NewReadyState(db *pgxpool.Pool, rdb *redis.Client, cfg *config.Config) *ReadyState {
	return &ReadyState{db: db, rdb: rdb, config: cfg}
}

// MarkBotReady marks the Telegram poller as connected
func (r *ReadyState) MarkBotReady() {
	r.botReady.Store(true)
}

// MarkRedisReady marks the Redis initialization as complete
func (r *ReadyState) MarkRedisReady() {
	r.redisReady.Store(true)
}

// IsBotReady returns true if the Telegram poller is connected
func (r *ReadyState) IsBotReady() bool {
	return r.botReady.Load()
}

// IsRedisReady returns true if Redis initialization is complete
func (r *ReadyState) IsRedisReady() bool {
	return r.redisReady.Load()
}

// IsFullyReady returns true if all initialization steps are complete
func (r *ReadyState) IsFullyReady() bool {
	return r.botReady.Load() && r.redisReady.Load()
}

// GetDB returns the database connection pool
func (r *ReadyState) GetDB() *pgxpool.Pool {
	return r.db
}

// GetRedis returns the Redis client (nil when no cache is configured)
func (r *ReadyState) GetRedis() *redis.Client {
	return r.rdb
}

// GetConfig returns the application configuration
func (r *ReadyState) GetConfig() *config.Config {
	return r.config
}
