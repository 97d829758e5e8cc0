package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port string
	Env  string

	// Database
	DatabaseURL string

	// Redis
	RedisURL string

	// JWT
	JWTSecret string

	// YouTube Data API
	YouTubeAPIKey string

	// Gemini AI (generation policy is fixed system-wide, not per call)
	GeminiModel           string
	GeminiTemperature     float32
	GeminiTopP            float32
	GeminiTopK            int
	GeminiMaxOutputTokens int

	// Caching
	SearchCacheTTL     time.Duration
	TranscriptCacheTTL time.Duration

	// Rate limiting
	RateLimitPerMinute int

	// SMTP
	SMTPHost string
	SMTPPort string
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Frontend
	FrontendURL string
}

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:        getEnvOrDefault("PORT", "8080"),
		Env:         getEnvOrDefault("ENV", "development"),
		DatabaseURL: mustGetEnv("DATABASE_URL"),
		RedisURL:    mustGetEnv("REDIS_URL"),
		JWTSecret:   mustGetEnv("JWT_SECRET"),

		YouTubeAPIKey: mustGetEnv("YOUTUBE_API_KEY"),

		GeminiModel:           getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash-exp"),
		GeminiTemperature:     0.7,
		GeminiTopP:            0.95,
		GeminiTopK:            64,
		GeminiMaxOutputTokens: getEnvAsIntOrDefault("GEMINI_MAX_OUTPUT_TOKENS", 8192),

		SearchCacheTTL:     getEnvAsDurationOrDefault("SEARCH_CACHE_TTL", time.Hour),
		TranscriptCacheTTL: getEnvAsDurationOrDefault("TRANSCRIPT_CACHE_TTL", 24*time.Hour),

		RateLimitPerMinute: getEnvAsIntOrDefault("RATE_LIMIT_PER_MINUTE", 10),

		SMTPHost:    getEnvOrDefault("SMTP_HOST", ""),
		SMTPPort:    getEnvOrDefault("SMTP_PORT", "587"),
		SMTPUser:    getEnvOrDefault("SMTP_USER", ""),
		SMTPPass:    getEnvOrDefault("SMTP_PASS", ""),
		SMTPFrom:    getEnvOrDefault("SMTP_FROM", "noreply@youinsight.app"),
		FrontendURL: getEnvOrDefault("FRONTEND_URL", "http://localhost:5173"),
	}

	return cfg
}

func mustGetEnv(key string) string {
	val := os.Getenv(key)
	if val == "" {
		panic(fmt.Sprintf("required environment variable %s is not set", key))
	}
	return val
}

func getEnvOrDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

func getEnvAsIntOrDefault(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return defaultVal
	}
	return n
}

func getEnvAsDurationOrDefault(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return defaultVal
	}
	return d
}
