package metrics

import (
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "verifybot_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{0.001, 0.01, 0.1, 0.5, 1, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	// Bot metrics
	botCommandsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_bot_commands_total",
			Help: "Total number of bot commands processed",
		},
		[]string{"command", "outcome"}, // ok, denied, error, usage
	)

	botReconnectsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "verifybot_bot_reconnects_total",
			Help: "Total number of Telegram polling reconnects",
		},
	)

	// Registry metrics
	registryLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_registry_lookups_total",
			Help: "Total number of verified-seller lookups",
		},
		[]string{"result"}, // verified, unverified, error
	)

	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_cache_ops_total",
			Help: "Total number of lookup cache operations",
		},
		[]string{"result"}, // hit, miss, error, skip
	)

	// Database metrics
	dbQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation"}, // select, insert, update, delete
	)

	dbConnectionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verifybot_db_connections_active",
			Help: "Number of active database connections",
		},
	)

	dbConnectionsIdle = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "verifybot_db_connections_idle",
			Help: "Number of idle database connections",
		},
	)

	// Error metrics
	errorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "verifybot_errors_total",
			Help: "Total number of errors",
		},
		[]string{"type", "component"}, // telegram, database, redis, auth
	)
)

// PrometheusMiddleware creates a Fiber middleware for Prometheus metrics
func PrometheusMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		duration := time.Since(start).Seconds()
		method := c.Method()
		path := c.Route().Path
		if path == "" {
			path = c.Path()
		}
		statusCode := strconv.Itoa(c.Response().StatusCode())

		httpRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
		httpRequestDuration.WithLabelValues(method, path).Observe(duration)

		return err
	}
}

// IncrementBotCommand increments the per-command counter
func IncrementBotCommand(command, outcome string) {
	botCommandsTotal.WithLabelValues(command, outcome).Inc()
}

// IncrementBotReconnect counts a polling reconnect
func IncrementBotReconnect() {
	botReconnectsTotal.Inc()
}

// IncrementRegistryLookup increments the lookup counter
func IncrementRegistryLookup(result string) {
	registryLookupsTotal.WithLabelValues(result).Inc()
}

// IncrementCacheOp increments the lookup cache counter
func IncrementCacheOp(result string) {
	cacheOpsTotal.WithLabelValues(result).Inc()
}

// IncrementDatabaseQuery increments database query counter
func IncrementDatabaseQuery(operation string) {
	dbQueriesTotal.WithLabelValues(operation).Inc()
}

// UpdateDatabaseMetrics updates database connection metrics
func UpdateDatabaseMetrics(active, idle int) {
	dbConnectionsActive.Set(float64(active))
	dbConnectionsIdle.Set(float64(idle))
}

// IncrementError increments error counter
func IncrementError(errorType, component string) {
	errorsTotal.WithLabelValues(errorType, component).Inc()
}
