package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config represents the service configuration
type Config struct {
	HTTPAddr string

	// Dataset store; empty PostgresURL keeps snapshots in memory
	PostgresURL string

	// Snapshot cache; empty RedisAddr disables caching
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	// Remote prediction API; empty MLServiceURL means heuristic only
	MLServiceURL string
	MLTimeout    time.Duration

	PolicyFile        string
	RecordAssessments bool
	MaxUploadBytes    int64

	LogLevel  string
	LogFormat string
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		PostgresURL:       getEnv("POSTGRES_URL", ""),
		RedisAddr:         getEnv("REDIS_ADDR", ""),
		RedisPassword:     getEnv("REDIS_PASSWORD", ""),
		RedisDB:           getEnvAsInt("REDIS_DB", 0),
		CacheTTL:          time.Duration(getEnvAsInt("CACHE_TTL_SECONDS", 300)) * time.Second,
		MLServiceURL:      getEnv("ML_SERVICE_URL", ""),
		MLTimeout:         time.Duration(getEnvAsInt("ML_TIMEOUT_SECONDS", 5)) * time.Second,
		PolicyFile:        getEnv("POLICY_FILE", ""),
		RecordAssessments: getEnvAsBool("RECORD_ASSESSMENTS", false),
		MaxUploadBytes:    int64(getEnvAsInt("MAX_UPLOAD_MB", 32)) << 20,
		LogLevel:          getEnv("LOG_LEVEL", "info"),
		LogFormat:         getEnv("LOG_FORMAT", "json"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate ensures the configuration is usable
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("HTTP_ADDR must not be empty")
	}
	if c.CacheTTL <= 0 {
		return errors.New("cache TTL must be positive")
	}
	if c.MLTimeout <= 0 {
		return errors.New("ML timeout must be positive")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.RecordAssessments && c.PostgresURL == "" {
		return errors.New("RECORD_ASSESSMENTS requires POSTGRES_URL")
	}
	switch c.LogFormat {
	case "json", "console":
	default:
		return fmt.Errorf("unknown log format %q", c.LogFormat)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	switch strings.ToLower(getEnv(key, "")) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}
