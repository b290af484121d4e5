// Package config loads runtime settings from the environment. A .env file in
// the working directory is loaded first when present.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	// Load .env file to environments
	_ "github.com/joho/godotenv/autoload"
)

// Config holds every setting the server and tools read at startup
type Config struct {
	Port int

	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	UseConnStr bool
	DBConnStr  string

	SecretKey      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	AllowOrigins       []string
	RateLimitPerSecond int
	RedisURL           string
	RequestTimeout     time.Duration

	AdminUsername string
	AdminPassword string

	LogLevel  slog.Level
	LogFormat string

	// TraceExporter is "none" or "stdout"
	TraceExporter string
	ServiceName   string
}

// Load reads the environment. It fails only on values that are present but
// malformed, or on a missing signing key.
func Load() (*Config, error) {
	useConnStr, err := getBool("USE_CONNECTION_STR", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Port:               getInt("PORT", 8080),
		DBHost:             getEnv("DB_HOST", "localhost"),
		DBPort:             getEnv("DB_PORT", "5432"),
		DBUser:             getEnv("DB_USERNAME", ""),
		DBPassword:         getEnv("DB_PASSWORD", ""),
		DBName:             getEnv("DB_DATABASE", ""),
		UseConnStr:         useConnStr,
		DBConnStr:          getEnv("DB_CONNECTION_STR", ""),
		SecretKey:          getEnv("SECRET_KEY", ""),
		JWTIssuer:          getEnv("JWT_ISSUER", "PartTimeJob"),
		AccessTokenTTL:     getDuration("ACCESS_TOKEN_TTL", time.Hour),
		AllowOrigins:       splitList(getEnv("ALLOW_ORIGIN", "")),
		RateLimitPerSecond: getInt("RATE_LIMIT_REQUESTS_PER_SECOND", 5),
		RedisURL:           getEnv("REDIS_URL", ""),
		RequestTimeout:     getDuration("REQUEST_TIMEOUT", 10*time.Second),
		AdminUsername:      getEnv("ADMIN_USERNAME", ""),
		AdminPassword:      getEnv("ADMIN_PASSWORD", ""),
		LogLevel:           parseLevel(getEnv("LOG_LEVEL", "info")),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
		TraceExporter:      strings.ToLower(getEnv("OTEL_TRACES_EXPORTER", "none")),
		ServiceName:        getEnv("OTEL_SERVICE_NAME", "parttimejob-api"),
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf("SECRET_KEY is required")
	}
	switch cfg.TraceExporter {
	case "none", "stdout":
	default:
		return nil, fmt.Errorf("OTEL_TRACES_EXPORTER must be none or stdout, got %q", cfg.TraceExporter)
	}
	if cfg.RateLimitPerSecond <= 0 {
		cfg.RateLimitPerSecond = 5
	}

	return cfg, nil
}

// DSN returns the postgres connection string
func (c *Config) DSN() (string, error) {
	if c.UseConnStr {
		if c.DBConnStr == "" {
			return "", fmt.Errorf("DB_CONNECTION_STR is empty")
		}
		return c.DBConnStr, nil
	}
	if c.DBHost == "" || c.DBPort == "" || c.DBUser == "" || c.DBPassword == "" || c.DBName == "" {
		return "", fmt.Errorf("database configuration is incomplete")
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName), nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		parsed, err := strconv.Atoi(value)
		if err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		return fallback, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s environments variables are invalid: %w", key, err)
	}
	return parsed, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
