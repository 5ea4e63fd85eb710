package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration.
type Config struct {
	Port            string
	Env             string
	CORSAllowOrigin []string
	DatabaseURL     string
	RedisURL        string
	CacheTTL        time.Duration
	QueueURL        string
	AWSRegion       string
	LLMProvider     string
	LLMModel        string
	GeminiAPIKey    string

	WorkerConcurrency      int
	MaxAttempts            int
	ProviderTimeout        time.Duration
	ProviderCallsPerMinute int
}

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	dbURL := os.Getenv("DATABASE_URL")

	if env == "production" && dbURL == "" {
		log.Printf("DATABASE_URL is required in production")
	}

	return Config{
		Port:            getEnv("PORT", "8080"),
		Env:             env,
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000")),
		DatabaseURL:     dbURL,
		RedisURL:        getEnv("REDIS_URL", ""),
		CacheTTL:        time.Duration(getEnvInt("CACHE_TTL_SECONDS", 86400)) * time.Second,
		QueueURL:        getEnv("SG_SQS_QUEUE_URL", ""),
		AWSRegion:       getEnv("AWS_REGION", "us-east-1"),
		LLMProvider:     getEnv("LLM_PROVIDER", "gemini"),
		LLMModel:        getEnv("LLM_MODEL", "gemini-2.5-flash"),
		GeminiAPIKey:    getEnv("GEMINI_API_KEY", ""),

		WorkerConcurrency:      getEnvInt("WORKER_CONCURRENCY", 5),
		MaxAttempts:            getEnvInt("WORKER_MAX_ATTEMPTS", 3),
		ProviderTimeout:        time.Duration(getEnvInt("PROVIDER_TIMEOUT_SECONDS", 45)) * time.Second,
		ProviderCallsPerMinute: getEnvInt("PROVIDER_CALLS_PER_MINUTE", 10),
	}
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getEnvInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	val, err := strconv.Atoi(raw)
	if err != nil {
		log.Printf("config env %s invalid int: %v", key, err)
		return def
	}
	return val
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	case "development", "dev":
		return "dev"
	default:
		return "dev"
	}
}
