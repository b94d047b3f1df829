package config

import (
	"log"
	"net"
	neturl "net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	TelegramToken string
	OwnerID       int64
	DatabaseURL   string
	RedisURL      string
	RedisPassword string
	Port          string

	// Admin REST API
	AdminAPIEnabled bool
	AdminAPISecret  []byte
	AdminPassword   string
	SessionDuration time.Duration

	AllowedOrigins    []string
	Environment       string
	TrustProxyHeaders bool
	EnableMetrics     bool
	CacheTTL          time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	token := strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN"))
	if token == "" {
		log.Fatalf("💥 [FATAL] TELEGRAM_TOKEN environment variable is required and cannot be empty")
	}

	ownerRaw := strings.TrimSpace(os.Getenv("OWNER_ID"))
	if ownerRaw == "" {
		log.Fatalf("💥 [FATAL] OWNER_ID environment variable is required and cannot be empty")
	}
	ownerID, err := strconv.ParseInt(ownerRaw, 10, 64)
	if err != nil || ownerID <= 0 {
		log.Fatalf("💥 [FATAL] OWNER_ID must be a positive Telegram user ID, got '%s'", ownerRaw)
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		// Some hosting platforms provide the DSN as POSTGRES_URI
		dbURL = os.Getenv("POSTGRES_URI")
	}
	if dbURL == "" {
		if built := buildDatabaseURLFromEnv(); built != "" {
			dbURL = built
		} else {
			log.Fatalf("💥 [FATAL] DATABASE_URL (or POSTGRES_URI) environment variable is required")
		}
	}

	adminAPIEnabled := GetEnvAsBool("ENABLE_ADMIN_API", true)
	adminSecret := os.Getenv("ADMIN_API_SECRET")
	adminPassword := os.Getenv("ADMIN_PASSWORD")
	if adminAPIEnabled {
		if adminSecret == "" || adminPassword == "" {
			log.Printf("⚠️  [WARNING] ENABLE_ADMIN_API is set but ADMIN_API_SECRET or ADMIN_PASSWORD is missing; disabling admin API")
			adminAPIEnabled = false
		} else if len(adminSecret) < 32 {
			log.Fatalf("💥 [FATAL] ADMIN_API_SECRET must be at least 32 characters long for security")
		}
	}
	if adminAPIEnabled {
		weakSecrets := []string{"default", "secret", "change_me", "insecure", "test", "password", "admin", "your_"}
		secretLower := strings.ToLower(adminSecret)
		for _, weak := range weakSecrets {
			if strings.HasPrefix(secretLower, weak) || strings.EqualFold(adminSecret, weak) {
				log.Fatalf("💥 [FATAL] ADMIN_API_SECRET cannot start with or be a weak value: '%s'", weak)
			}
		}
	}

	return &Config{
		TelegramToken:   token,
		OwnerID:         ownerID,
		DatabaseURL:     dbURL,
		RedisURL:        normalizeRedisAddress(os.Getenv("REDIS_URL")),
		RedisPassword:   resolveRedisPassword(os.Getenv("REDIS_URL"), os.Getenv("REDIS_PASSWORD")),
		Port:            GetEnvOrDefault("PORT", "8000"),
		AdminAPIEnabled: adminAPIEnabled,
		AdminAPISecret:  []byte(adminSecret),
		AdminPassword:   adminPassword,
		SessionDuration: time.Duration(GetEnvAsInt("SESSION_HOURS", 24)) * time.Hour,
		AllowedOrigins: func() []string {
			origins := strings.Split(GetEnvOrDefault("CORS_ORIGINS", "*"), ",")
			for i := range origins {
				origins[i] = strings.TrimSpace(origins[i])
			}
			return origins
		}(),
		Environment:       GetEnvOrDefault("APP_ENV", "development"),
		TrustProxyHeaders: GetEnvAsBool("TRUST_PROXY_HEADERS", false),
		EnableMetrics:     GetEnvAsBool("ENABLE_METRICS", true),
		CacheTTL:          time.Duration(GetEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
	}
}

// GetEnvOrDefault returns environment variable value or default
func GetEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvAsBool parses environment variable as boolean
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		value = strings.ToLower(value)
		if value == "true" || value == "1" || value == "yes" {
			return true
		}
		if value == "false" || value == "0" || value == "no" {
			return false
		}
	}
	return defaultValue
}

// GetEnvAsInt parses environment variable as integer
func GetEnvAsInt(key string, defaultValue int) int {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvAsInt64 parses environment variable as 64-bit integer
func GetEnvAsInt64(key string, defaultValue int64) int64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// normalizeRedisAddress converts redis:// URLs into host[:port] that go-redis expects.
func normalizeRedisAddress(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return trimmed
	}
	if !strings.Contains(trimmed, "://") {
		return trimmed
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		log.Printf("Warning: could not parse REDIS_URL '%s': %v", trimmed, err)
		return trimmed
	}
	if u.Host != "" {
		return u.Host
	}
	return trimmed
}

// resolveRedisPassword returns an explicit password if provided, otherwise pulls
// the password component from a redis:// URL when available.
func resolveRedisPassword(redisURL, explicit string) string {
	if explicit != "" {
		return explicit
	}
	trimmed := strings.TrimSpace(redisURL)
	if trimmed == "" || !strings.Contains(trimmed, "://") {
		return explicit
	}
	u, err := neturl.Parse(trimmed)
	if err != nil {
		return explicit
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok && pw != "" {
			return pw
		}
	}
	return explicit
}

// buildDatabaseURLFromEnv builds a postgres URL from common env vars (Railway/Coolify/Postgres add-on style)
// Recognized: POSTGRESQL_* vars, Railway PG* vars, and POSTGRES_PASSWORD
func buildDatabaseURLFromEnv() string {
	host := strings.TrimSpace(os.Getenv("POSTGRESQL_HOST"))
	if host == "" {
		host = strings.TrimSpace(os.Getenv("PGHOST"))
	}
	user := strings.TrimSpace(os.Getenv("POSTGRESQL_USER"))
	if user == "" {
		user = strings.TrimSpace(os.Getenv("PGUSER"))
	}
	pass := os.Getenv("POSTGRESQL_PASSWORD") // may contain spaces/specials
	if pass == "" {
		pass = os.Getenv("PGPASSWORD")
	}
	if pass == "" {
		pass = os.Getenv("POSTGRES_PASSWORD")
	}
	db := strings.TrimSpace(os.Getenv("POSTGRESQL_DATABASE"))
	if db == "" {
		db = strings.TrimSpace(os.Getenv("PGDATABASE"))
	}
	if host == "" || user == "" || db == "" {
		return ""
	}
	port := strings.TrimSpace(os.Getenv("POSTGRESQL_PORT"))
	if port == "" {
		port = strings.TrimSpace(os.Getenv("PGPORT"))
	}
	if port == "" {
		port = "5432"
	}
	sslmode := strings.TrimSpace(os.Getenv("POSTGRESQL_SSLMODE"))
	if sslmode == "" {
		sslmode = strings.TrimSpace(os.Getenv("PGSSLMODE"))
	}
	if sslmode == "" {
		sslmode = "require"
	}
	u := &neturl.URL{
		Scheme: "postgres",
		User:   neturl.UserPassword(user, pass),
		Host:   net.JoinHostPort(host, port),
		Path:   "/" + db,
	}
	q := neturl.Values{}
	q.Set("sslmode", sslmode)
	u.RawQuery = q.Encode()
	return u.String()
}
