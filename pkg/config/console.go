package config

import "time"

// ConsoleConfig holds runtime configuration for the console API.
type ConsoleConfig struct {
	Environment         string
	Addr                string
	LogLevel            string
	DatabaseURL         string
	MigrationsDir       string
	JWTSecret           string
	SessionCookieName   string
	PlatformAPIURL      string
	PlatformAPIToken    string
	PlatformTimeout     time.Duration
	DockerHubURL        string
	PrivateRegistryURL  string
	BaseContainerDomain string
	RateLimitRedisAddr  string
	RateLimitRedisPass  string
	RateLimitRedisDB    int
	LogStreamInterval   time.Duration
}

// LoadConsoleConfig constructs a ConsoleConfig from environment variables.
func LoadConsoleConfig() ConsoleConfig {
	return ConsoleConfig{
		Environment:         GetString("APP_ENV", "development"),
		Addr:                GetString("CONSOLE_ADDR", ":4000"),
		LogLevel:            GetString("LOG_LEVEL", "info"),
		DatabaseURL:         GetString("DATABASE_URL", "postgres://stuga:stuga@db:5432/stuga?sslmode=disable"),
		MigrationsDir:       GetString("DB_MIGRATIONS_DIR", ""),
		JWTSecret:           GetString("SESSION_JWT_SECRET", "supersecuresecret"),
		SessionCookieName:   GetString("SESSION_COOKIE_NAME", "stuga_session"),
		PlatformAPIURL:      GetString("CONTAINERS_API_URL", "http://localhost:8080"),
		PlatformAPIToken:    GetString("CONTAINERS_API_AUTH_TOKEN", ""),
		PlatformTimeout:     GetDuration("CONTAINERS_API_TIMEOUT", 15*time.Second),
		DockerHubURL:        GetString("DOCKER_HUB_URL", "https://hub.docker.com"),
		PrivateRegistryURL:  GetString("PRIVATE_REGISTRY_URL", ""),
		BaseContainerDomain: GetString("BASE_CONTAINER_DOMAIN", "containers.localhost"),
		RateLimitRedisAddr:  GetString("RATE_LIMIT_REDIS_ADDR", ""),
		RateLimitRedisPass:  GetString("RATE_LIMIT_REDIS_PASSWORD", ""),
		RateLimitRedisDB:    GetInt("RATE_LIMIT_REDIS_DB", 0),
		LogStreamInterval:   time.Duration(GetInt("LOG_STREAM_INTERVAL_SECONDS", 3)) * time.Second,
	}
}
