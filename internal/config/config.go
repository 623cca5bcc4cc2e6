package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	AppEnv         string
	Port           string
	AllowedOrigins string

	DatabaseURL string
	RedisURL    string

	MeiliSearchHost string
	MeiliMasterKey  string

	JWTSecret string

	UploadDir            string
	ImageDownloadTimeout time.Duration
	ImageMaxWidth        int

	RateLimitSearch  time.Duration
	OrphanSweepEvery time.Duration
}

func Load() (*Config, error) {
	// Don't fail if .env doesn't exist (might be prod env vars)
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:         getEnv("APP_ENV", "development"),
		Port:           getEnv("PORT", "8080"),
		AllowedOrigins: getEnv("ALLOWED_ORIGINS", "http://localhost:3000"),

		DatabaseURL: os.Getenv("DATABASE_URL"),
		RedisURL:    os.Getenv("REDIS_URL"),

		MeiliSearchHost: getEnv("MEILISEARCH_HOST", "http://localhost:7700"),
		MeiliMasterKey:  os.Getenv("MEILI_MASTER_KEY"),

		JWTSecret: getEnv("JWT_SECRET", "12345"),

		UploadDir:     getEnv("UPLOAD_DIR", "./uploads/covers"),
		ImageMaxWidth: 800,
	}

	var err error
	cfg.ImageDownloadTimeout, err = parseDuration(getEnv("IMAGE_DOWNLOAD_TIMEOUT", "30s"))
	if err != nil {
		return nil, fmt.Errorf("invalid IMAGE_DOWNLOAD_TIMEOUT: %w", err)
	}
	cfg.RateLimitSearch, err = parseDuration(getEnv("RATE_LIMIT_SEARCH", "1s"))
	if err != nil {
		return nil, fmt.Errorf("invalid RATE_LIMIT_SEARCH: %w", err)
	}
	cfg.OrphanSweepEvery, err = parseDuration(getEnv("ORPHAN_SWEEP_EVERY", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid ORPHAN_SWEEP_EVERY: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func parseDuration(s string) (time.Duration, error) {
	return time.ParseDuration(s)
}
