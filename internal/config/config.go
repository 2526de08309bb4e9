package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Port        string
	Environment string
	DatabaseURL string // Empty means the in-memory store is used
	CORSOrigins string
	TablePrefix string
	// Session configuration
	SessionSecret string
	SessionTTL    time.Duration
	// Idempotency replay window
	IdempotencyTTL time.Duration
	// Bootstrap admin account (created only when no users exist)
	AdminUsername string
	AdminPassword string
	// File logging (empty disables the log directory)
	LogDir      string
	MaxLogFiles int
	// Debug flags
	Debug bool
}

// fileConfig is the optional YAML config file shape. Env vars always win;
// the file only supplies defaults. Secrets stay out of the file on purpose.
type fileConfig struct {
	Port           string `yaml:"port"`
	Environment    string `yaml:"environment"`
	DatabaseURL    string `yaml:"database_url"`
	CORSOrigins    string `yaml:"cors_origins"`
	SessionTTL     string `yaml:"session_ttl"`
	IdempotencyTTL string `yaml:"idempotency_ttl"`
	LogDir         string `yaml:"log_dir"`
	MaxLogFiles    int    `yaml:"max_log_files"`
}

func Load() *Config {
	file := loadFileConfig(getEnv("CONFIG_FILE", "config.yaml"))

	env := getEnv("ENVIRONMENT", fallback(file.Environment, "dev"))
	tablePrefix := getTablePrefix(env)

	maxLogFiles := 10
	if file.MaxLogFiles > 0 {
		maxLogFiles = file.MaxLogFiles
	}

	return &Config{
		Port:           getEnv("PORT", fallback(file.Port, "8080")),
		Environment:    env,
		DatabaseURL:    getEnv("DATABASE_URL", file.DatabaseURL),
		CORSOrigins:    getEnv("CORS_ORIGINS", fallback(file.CORSOrigins, "http://localhost:3000")),
		TablePrefix:    tablePrefix,
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		SessionTTL:     getDuration("SESSION_TTL", durationOr(file.SessionTTL, 24*time.Hour)),
		IdempotencyTTL: getDuration("IDEMPOTENCY_TTL", durationOr(file.IdempotencyTTL, 24*time.Hour)),
		AdminUsername:  getEnv("ADMIN_USERNAME", ""),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		LogDir:         getEnv("LOG_DIR", file.LogDir),
		MaxLogFiles:    maxLogFiles,
		// Debug flags - default to true in dev/test, false in production
		Debug: getEnv("DEBUG", getDefaultDebug(env)) == "true",
	}
}

// loadFileConfig reads the YAML config file. A missing or unreadable file
// is not an error; env-only configuration is the common case.
func loadFileConfig(path string) *fileConfig {
	fc := &fileConfig{}
	data, err := os.ReadFile(path)
	if err != nil {
		return fc
	}
	if err := yaml.Unmarshal(data, fc); err != nil {
		return &fileConfig{}
	}
	return fc
}

func fallback(value, defaultValue string) string {
	if value != "" {
		return value
	}
	return defaultValue
}

func durationOr(value string, defaultValue time.Duration) time.Duration {
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// getDefaultDebug returns the default debug setting based on environment
func getDefaultDebug(env string) string {
	if env == "prod" {
		return "false"
	}
	return "true" // Enable DEBUG in dev/test by default
}

// getTablePrefix returns the table prefix based on environment
func getTablePrefix(env string) string {
	// Allow manual override via TABLE_PREFIX env var
	if prefix := os.Getenv("TABLE_PREFIX"); prefix != "" {
		return prefix
	}

	// Auto-generate based on environment
	switch env {
	case "prod":
		return "prod_"
	case "test":
		return "test_"
	case "dev":
		return "dev_"
	default:
		return "dev_"
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
