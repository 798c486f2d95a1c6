package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Environment struct {
	// Platform configs
	APIBaseURL            string
	Environment           string
	RequestTimeoutSeconds int

	// Local storage configs
	StorageBackend    string // "file", "redis" or "memory"
	StorageDir        string
	StoragePassphrase string

	// Redis configs (only used when StorageBackend is "redis")
	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
}

var Env Environment

// LoadEnv loads environment variables from .env file if present
// and validates required variables
func LoadEnv() error {
	if err := godotenv.Load(); err != nil {
		fmt.Printf("Warning: .env file not found: %v\n", err)
	}

	Env.APIBaseURL = getEnvWithDefault("QUERYDESK_API_URL", "http://localhost:3000")
	Env.Environment = getEnvWithDefault("ENVIRONMENT", "DEVELOPMENT")
	Env.RequestTimeoutSeconds = getIntEnvWithDefault("QUERYDESK_REQUEST_TIMEOUT_SECONDS", 30)

	Env.StorageBackend = getEnvWithDefault("QUERYDESK_STORAGE_BACKEND", "file")
	Env.StorageDir = getEnvWithDefault("QUERYDESK_STORAGE_DIR", defaultStorageDir())
	Env.StoragePassphrase = getEnvWithDefault("QUERYDESK_STORAGE_PASSPHRASE", "")

	Env.RedisHost = getEnvWithDefault("QUERYDESK_REDIS_HOST", "localhost")
	Env.RedisPort = getEnvWithDefault("QUERYDESK_REDIS_PORT", "6379")
	Env.RedisUsername = getEnvWithDefault("QUERYDESK_REDIS_USERNAME", "")
	Env.RedisPassword = getEnvWithDefault("QUERYDESK_REDIS_PASSWORD", "")

	return validateConfig()
}

func defaultStorageDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".querydesk"
	}
	return home + "/.querydesk"
}

// Helper functions to get environment variables with defaults and validation
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnvWithDefault(key string, defaultValue int) int {
	strValue := os.Getenv(key)
	if strValue == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(strValue)
	if err != nil {
		fmt.Printf("Warning: Invalid value for %s, using default: %d\n", key, defaultValue)
		return defaultValue
	}
	return value
}

func validateConfig() error {
	parsed, err := url.Parse(Env.APIBaseURL)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return fmt.Errorf("invalid QUERYDESK_API_URL: %s", Env.APIBaseURL)
	}

	switch Env.StorageBackend {
	case "file", "redis", "memory":
	default:
		return fmt.Errorf("invalid QUERYDESK_STORAGE_BACKEND: %s (expected file, redis or memory)", Env.StorageBackend)
	}

	if Env.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("QUERYDESK_REQUEST_TIMEOUT_SECONDS must be positive, got: %d", Env.RequestTimeoutSeconds)
	}

	return nil
}
