package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Port string

	// Database configuration
	DBType            string // sqlite, mysql, postgres, sqlserver
	DBHost            string
	DBPort            string
	DBDatabase        string
	DBUser            string
	DBPassword        string
	DBConnectionLimit int

	// Filesystem layout (per-user subdirectories are created under these)
	OutputDir string
	UploadDir string

	// Session tokens
	JWTSecret string
	TokenTTL  time.Duration

	// Generation provider (Jimeng visual API)
	ProviderURL     string
	ProviderAK      string
	ProviderSK      string
	ProviderTimeout time.Duration

	// Object storage (S3-compatible; endpoint is the full bucket host,
	// e.g. my-bucket.oss-cn-wulanchabu.aliyuncs.com)
	OSSEnabled         bool
	OSSEndpoint        string
	OSSRegion          string
	OSSAccessKeyID     string
	OSSAccessKeySecret string
	OSSUsePathStyle    bool
}

// Load loads configuration from environment variables. A .env file in the
// working directory is applied first, without overriding the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:              getEnv("PORT", "5000"),
		DBType:            getEnv("DB_TYPE", "sqlite"),
		DBHost:            getEnv("DB_HOST", "localhost"),
		DBPort:            getEnv("DB_PORT", "3306"),
		DBDatabase:        getEnv("DB_DATABASE", "generation_records.db"),
		DBUser:            getEnv("DB_USER", ""),
		DBPassword:        getEnv("DB_PASSWORD", ""),
		DBConnectionLimit: getEnvAsInt("DB_CONNECTION_LIMIT", 5),

		OutputDir: getEnv("OUTPUT_DIR", "output"),
		UploadDir: getEnv("UPLOAD_DIR", "uploads"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		TokenTTL:  getEnvAsDuration("TOKEN_TTL", 24*time.Hour),

		ProviderURL:     getEnv("PROVIDER_URL", "https://visual.volcengineapi.com"),
		ProviderAK:      getEnvAlias("VOLCENGINE_AK", "VOLCENGINE_ACCESS_KEY"),
		ProviderSK:      getEnvAlias("VOLCENGINE_SK", "VOLCENGINE_SECRET_KEY"),
		ProviderTimeout: getEnvAsDuration("PROVIDER_TIMEOUT", 120*time.Second),

		OSSEnabled:         getEnvAsBool("OSS_ENABLED", false),
		OSSEndpoint:        getEnv("OSS_ENDPOINT", ""),
		OSSRegion:          getEnv("OSS_REGION", "cn-wulanchabu"),
		OSSAccessKeyID:     getEnv("OSS_ACCESS_KEY_ID", ""),
		OSSAccessKeySecret: getEnv("OSS_ACCESS_KEY_SECRET", ""),
		OSSUsePathStyle:    getEnvAsBool("OSS_USE_PATH_STYLE", false),
	}

	// Validate required fields
	if cfg.DBDatabase == "" {
		return nil, fmt.Errorf("DB_DATABASE is required")
	}
	if cfg.DBType != "sqlite" && cfg.DBUser == "" {
		return nil, fmt.Errorf("DB_USER is required for %s", cfg.DBType)
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAlias returns the first non-empty value among the given keys
func getEnvAlias(keys ...string) string {
	for _, key := range keys {
		if value := os.Getenv(key); value != "" {
			return value
		}
	}
	return ""
}

// getEnvAsInt gets an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsBool gets an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration gets an environment variable as a duration or returns a default value
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
