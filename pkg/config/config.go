package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the application configuration.
type Config struct {
	ServerPort string
	LogLevel   string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool

	OCREndpoint string
	OCRAPIKey   string
	OCRTimeout  time.Duration

	MaxConcurrency   int
	PageLoadTimeout  time.Duration
	SweepInterval    time.Duration
	ClaimBatchSize   int
	MaxRetries       int
	ClaimLease       time.Duration
	MaxAssetSize     int64
	DomainSweepGuard time.Duration
}

// Load loads configuration from environment variables, reading a local .env
// file first when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		LogLevel:         getEnv("LOG_LEVEL", "info"),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "assetpipeline"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:    getEnv("REDIS_PASSWORD", ""),
		RedisDB:          getEnvAsInt("REDIS_DB", 0),
		MinioEndpoint:    getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:   getEnv("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:   getEnv("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:      getEnv("MINIO_BUCKET", "crawled-assets"),
		MinioUseSSL:      getEnvAsBool("MINIO_USE_SSL", false),
		OCREndpoint:      getEnv("OCR_ENDPOINT", "http://localhost:9090/v1/recognize"),
		OCRAPIKey:        getEnv("OCR_API_KEY", ""),
		OCRTimeout:       getEnvAsDuration("OCR_TIMEOUT_SECONDS", 120) * time.Second,
		MaxConcurrency:   getEnvAsInt("MAX_CONCURRENCY", 10),
		PageLoadTimeout:  getEnvAsDuration("PAGE_LOAD_TIMEOUT_SECONDS", 60) * time.Second,
		SweepInterval:    getEnvAsDuration("SWEEP_INTERVAL_SECONDS", 3600) * time.Second,
		ClaimBatchSize:   getEnvAsInt("CLAIM_BATCH_SIZE", 50),
		MaxRetries:       getEnvAsInt("MAX_RETRIES", 5),
		ClaimLease:       getEnvAsDuration("CLAIM_LEASE_SECONDS", 600) * time.Second,
		MaxAssetSize:     getEnvAsInt64("MAX_ASSET_SIZE_BYTES", 100*1024*1024),
		DomainSweepGuard: getEnvAsDuration("DOMAIN_SWEEP_GUARD_SECONDS", 1800) * time.Second,
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsInt64(key string, fallback int64) int64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseInt(valueStr, 10, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallback int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallback))
}
