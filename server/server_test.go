package server

import (
	"io"
	"log"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifybot/config"
	"verifybot/utils"
)

// setupTestEnvironment initializes the test environment
func setupTestEnvironment() {
	if utils.InfoLogger == nil {
		utils.InfoLogger = log.New(os.Stdout, "TEST-INFO: ", log.Ldate|log.Ltime)
	}
	if utils.ErrorLogger == nil {
		utils.ErrorLogger = log.New(os.Stderr, "TEST-ERROR: ", log.Ldate|log.Ltime)
	}
}

func TestReadyState(t *testing.T) {
	cfg := &config.Config{Port: "8000"}
	readyState := NewReadyState(nil, nil, cfg)

	t.Run("initial state is not ready", func(t *testing.T) {
		assert.False(t, readyState.IsFullyReady())
		assert.False(t, readyState.IsBotReady())
		assert.False(t, readyState.IsRedisReady())
	})

	t.Run("components become ready individually", func(t *testing.T) {
		readyState.MarkBotReady()
		assert.True(t, readyState.IsBotReady())
		assert.False(t, readyState.IsFullyReady())

		readyState.MarkRedisReady()
		assert.True(t, readyState.IsRedisReady())
		assert.True(t, readyState.IsFullyReady())
	})

	t.Run("getters return wired values", func(t *testing.T) {
		assert.Equal(t, cfg, readyState.GetConfig())
		assert.Nil(t, readyState.GetDB())
		assert.Nil(t, readyState.GetRedis())
	})
}

func TestCreateFiberApp(t *testing.T) {
	setupTestEnvironment()

	cfg := &config.Config{Port: "8000"}
	readyState := NewReadyState(nil, nil, cfg)
	startTime := time.Now()

	app := CreateFiberApp(startTime, readyState)
	require.NotNil(t, app)

	t.Run("root route reports the bot is running", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "Bot is running", string(body))
	})

	t.Run("legacy health route returns OK", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Equal(t, "OK", string(body))
	})

	t.Run("health live endpoint works", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health/live", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 200, resp.StatusCode)
	})

	t.Run("health ready returns initializing when not ready", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/api/v1/health/ready", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.True(t, strings.Contains(string(body), "initializing"))
		assert.Contains(t, string(body), `"bot_ready":false`)
		assert.Contains(t, string(body), `"redis_ready":false`)
	})

	t.Run("one ready component still reports initializing", func(t *testing.T) {
		// A failed startup ping leaves redisReady unset; the bot alone
		// must not flip the service to ready
		readyState.MarkBotReady()
		req := httptest.NewRequest("GET", "/api/v1/health/ready", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 503, resp.StatusCode)
		body, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"bot_ready":true`)
		assert.Contains(t, string(body), `"redis_ready":false`)
	})

	t.Run("responses carry a request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
	})

	t.Run("unknown route is a JSON 404", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/nope", nil)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, 404, resp.StatusCode)
	})
}
