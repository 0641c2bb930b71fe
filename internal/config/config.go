package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/foodscan/foodscan-api/internal/logger"
)

const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
)

type Config struct {
	Env          string
	GeminiAPIKey string
	OpenAIAPIKey string
	AIProvider   string
	Server       ServerConfig
	Catalog      CatalogConfig
	DB           DBConfig
	Redis        RedisConfig
	Logger       LoggerConfig
}

type ServerConfig struct {
	Port           string
	RequestTimeout time.Duration
	MaxImageBytes  int64
}

type CatalogConfig struct {
	BaseURL string
	Timeout time.Duration
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

type RedisConfig struct {
	Host string
	Port string
	TTL  time.Duration
}

type LoggerConfig struct {
	Level      logger.LogLevel
	OutputPath string
	Format     string
}

// IsDevelopment reports whether the app runs in development mode. Error
// responses include internal detail only in this mode.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// CacheEnabled reports whether a Redis cache should be wired in front of the
// scan store.
func (c *RedisConfig) CacheEnabled() bool {
	return c.Host != ""
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

func parseLogLevel(level string) logger.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return logger.LevelDebug
	case "info":
		return logger.LevelInfo
	case "warn", "warning":
		return logger.LevelWarn
	case "error":
		return logger.LevelError
	default:
		return logger.LevelInfo
	}
}

func Load() (*Config, error) {
	maxImageBytes := int64(10 << 20)
	if v := os.Getenv("MAX_IMAGE_BYTES"); v != "" {
		parsed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid MAX_IMAGE_BYTES: %w", err)
		}
		maxImageBytes = parsed
	}

	cfg := &Config{
		Env:          getEnvOrDefault("APP_ENV", "production"),
		GeminiAPIKey: os.Getenv("GEMINI_API_KEY"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		AIProvider:   getEnvOrDefault("AI_PROVIDER", ProviderGemini),
		Server: ServerConfig{
			Port:           getEnvOrDefault("SERVER_PORT", "8080"),
			RequestTimeout: getDurationOrDefault("REQUEST_TIMEOUT", 30*time.Second),
			MaxImageBytes:  maxImageBytes,
		},
		Catalog: CatalogConfig{
			BaseURL: getEnvOrDefault("CATALOG_BASE_URL", "https://world.openfoodfacts.org"),
			Timeout: getDurationOrDefault("CATALOG_TIMEOUT", 10*time.Second),
		},
		DB: DBConfig{
			Host:     getEnvOrDefault("DB_HOST", "localhost"),
			Port:     getEnvOrDefault("DB_PORT", "5432"),
			User:     getEnvOrDefault("DB_USER", "postgres"),
			Password: getEnvOrDefault("DB_PASSWORD", "postgres"),
			DBName:   getEnvOrDefault("DB_NAME", "foodscan"),
		},
		Redis: RedisConfig{
			Host: os.Getenv("REDIS_HOST"),
			Port: getEnvOrDefault("REDIS_PORT", "6379"),
			TTL:  getDurationOrDefault("REDIS_TTL", 24*time.Hour),
		},
		Logger: LoggerConfig{
			Level:      parseLogLevel(getEnvOrDefault("LOG_LEVEL", "info")),
			OutputPath: getEnvOrDefault("LOG_OUTPUT", "stdout"),
			Format:     getEnvOrDefault("LOG_FORMAT", "json"),
		},
	}

	// Capability credentials are a startup-time requirement, not a
	// per-request one.
	switch cfg.AIProvider {
	case ProviderGemini:
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required when AI_PROVIDER=%s", ProviderGemini)
		}
	case ProviderOpenAI:
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER=%s", ProviderOpenAI)
		}
		if cfg.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for image identification")
		}
	default:
		return nil, fmt.Errorf("unsupported AI_PROVIDER %q", cfg.AIProvider)
	}

	return cfg, nil
}
