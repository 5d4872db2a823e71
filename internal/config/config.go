package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"github.com/deploymenttheory/go-apk-analyzer/internal/logger"
)

// Config holds the application configuration.
type Config struct {
	// Pipeline settings
	ModelPath string
	CachePath string

	// Reputation source settings
	VirusTotalAPIKey  string
	ReputationTimeout int // in seconds

	// Redis settings (empty addr = JSON file store)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Server settings
	ListenAddr     string
	MaxUploadBytes int64
}

// Load builds the configuration from the environment, reading a .env file
// first when present. Credentials (the reputation API key) are an external
// configuration concern and only ever enter through here.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		logger.Debugf("Loaded environment from .env")
	}

	return Config{
		ModelPath:         envString("MODEL_PATH", "models/malware_model.json"),
		CachePath:         envString("CACHE_PATH", "scans.json"),
		VirusTotalAPIKey:  os.Getenv("VIRUSTOTAL_API_KEY"),
		ReputationTimeout: envInt("REPUTATION_TIMEOUT_SECONDS", 10),
		RedisAddr:         os.Getenv("REDIS_ADDR"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           envInt("REDIS_DB", 0),
		ListenAddr:        envString("LISTEN_ADDR", ":8080"),
		MaxUploadBytes:    int64(envInt("MAX_UPLOAD_MB", 100)) << 20,
	}
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
		logger.Warningf("Invalid integer for %s, using default %d", key, fallback)
	}
	return fallback
}
