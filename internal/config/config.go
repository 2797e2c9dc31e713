package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	// Server
	Port  string
	Env   string
	Debug bool

	// LLM provider
	LLMProvider       string
	GroqAPIKey        string
	GroqModel         string
	GroqBaseURL       string
	GeminiAPIKey      string
	GeminiModel       string
	MaxTokens         int
	Temperature       float32
	LLMConcurrentReqs int
	LLMQueueTimeout   time.Duration

	// Database
	DBDriver    string
	DatabaseURL string
	SQLitePath  string
	DBReset     bool

	// Redis
	RedisURL string

	// HTTP
	CORSOrigin        string
	ChatRatePerMinute int
	WriteTimeout      time.Duration
}

const (
	ProviderGroq   = "groq"
	ProviderGemini = "gemini"

	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

func Load() *Config {
	// Load .env file if it exists
	godotenv.Load()

	cfg := &Config{
		Port:              getEnvOrDefault("PORT", "8000"),
		Env:               getEnvOrDefault("ENV", "development"),
		Debug:             getEnvAsBoolOrDefault("DEBUG", false),
		LLMProvider:       strings.ToLower(getEnvOrDefault("LLM_PROVIDER", ProviderGroq)),
		GroqModel:         getEnvOrDefault("GROQ_MODEL", "llama-3.3-70b-versatile"),
		GroqBaseURL:       getEnvOrDefault("GROQ_BASE_URL", "https://api.groq.com/openai/v1"),
		GeminiModel:       getEnvOrDefault("GEMINI_MODEL", "gemini-2.0-flash"),
		MaxTokens:         getEnvAsIntOrDefault("MAX_TOKENS", 500),
		Temperature:       float32(getEnvAsFloatOrDefault("TEMPERATURE", 0.7)),
		LLMConcurrentReqs: getEnvAsIntOrDefault("LLM_CONCURRENT_REQUESTS", 5),
		LLMQueueTimeout:   time.Duration(getEnvAsIntOrDefault("LLM_QUEUE_TIMEOUT_SECONDS", 30)) * time.Second,
		DBDriver:          strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverPostgres)),
		SQLitePath:        getEnvOrDefault("SQLITE_PATH", "data/mindease.db"),
		DBReset:           getEnvAsBoolOrDefault("DB_RESET", false),
		RedisURL:          getEnvOrDefault("REDIS_URL", ""),
		CORSOrigin:        getEnvOrDefault("CORS_ORIGIN", "*"),
		ChatRatePerMinute: getEnvAsIntOrDefault("CHAT_RATE_LIMIT_PER_MINUTE", 30),
		WriteTimeout:      time.Duration(getEnvAsIntOrDefault("HTTP_WRITE_TIMEOUT_SECONDS", 90)) * time.Second,
	}

	switch cfg.LLMProvider {
	case ProviderGroq:
		cfg.GroqAPIKey = mustGetEnv("GROQ_API_KEY")
	case ProviderGemini:
		cfg.GeminiAPIKey = mustGetEnv("GEMINI_API_KEY")
	default:
		panic(fmt.Sprintf("unsupported LLM_PROVIDER %q", cfg.LLMProvider))
	}

	switch cfg.DBDriver {
	case DriverPostgres:
		cfg.DatabaseURL = mustGetEnv("DATABASE_URL")
	case DriverSQLite:
	default:
		panic(fmt.Sprintf("unsupported DB_DRIVER %q", cfg.DBDriver))
	}

	if cfg.LLMConcurrentReqs < 1 {
		cfg.LLMConcurrentReqs = 1
	}

	// A turn queued for a provider slot must still have time to answer.
	if cfg.LLMQueueTimeout <= 0 || cfg.LLMQueueTimeout >= cfg.WriteTimeout {
		panic(fmt.Sprintf("LLM_QUEUE_TIMEOUT_SECONDS (%s) must be positive and below HTTP_WRITE_TIMEOUT_SECONDS (%s)",
			cfg.LLMQueueTimeout, cfg.WriteTimeout))
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

func getEnvAsFloatOrDefault(key string, defaultVal float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return defaultVal
	}
	return f
}

func getEnvAsBoolOrDefault(key string, defaultVal bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(strings.ToLower(val))
	if err != nil {
		return defaultVal
	}
	return b
}
