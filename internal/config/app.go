package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

type AppConfig struct {
	OpenAI    OpenAIConfig
	Telegram  TelegramConfig
	Server    ServerConfig
	Storage   StorageConfig
	Interview InterviewSettings
	LogLevel  slog.Level
}

type TelegramConfig struct {
	Token          string
	Debug          bool
	PollTimeout    time.Duration
	MessagesPerMin int
}

type ServerConfig struct {
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RateLimit       float64
	RateBurst       int
}

type StorageConfig struct {
	Backend       string
	Path          string
	MongoURI      string
	MongoDatabase string
}

type InterviewSettings struct {
	ConfigPath      string
	SessionTTL      time.Duration
	CleanupInterval time.Duration
}

func LoadAppConfig() *AppConfig {
	return &AppConfig{
		OpenAI: LoadOpenAIConfig(),
		Telegram: TelegramConfig{
			Token:          getEnv("TELEGRAM_BOT_TOKEN", ""),
			Debug:          getEnvAsBool("TELEGRAM_DEBUG", false),
			PollTimeout:    getEnvAsDuration("TELEGRAM_POLL_TIMEOUT", 30*time.Second),
			MessagesPerMin: getEnvAsInt("TELEGRAM_MESSAGES_PER_MINUTE", 20),
		},
		Server: ServerConfig{
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 90*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 30*time.Second),
			RateLimit:       getEnvAsFloat("SERVER_RATE_LIMIT", 5),
			RateBurst:       getEnvAsInt("SERVER_RATE_BURST", 10),
		},
		Storage: StorageConfig{
			Backend:       getEnv("STORAGE_BACKEND", "sqlite"),
			Path:          getEnv("STORAGE_PATH", "data/interviews.db"),
			MongoURI:      getEnv("MONGO_URI", ""),
			MongoDatabase: getEnv("MONGO_DATABASE", "interview_buddy"),
		},
		Interview: InterviewSettings{
			ConfigPath:      getEnv("INTERVIEW_CONFIG", "config/interview.yaml"),
			SessionTTL:      getEnvAsDuration("SESSION_TTL", 2*time.Hour),
			CleanupInterval: getEnvAsDuration("SESSION_CLEANUP_INTERVAL", 10*time.Minute),
		},
		LogLevel: getEnvAsLogLevel("LOG_LEVEL", slog.LevelInfo),
	}
}

// Validate checks settings that would otherwise fail later at runtime.
func (c *AppConfig) Validate() error {
	if err := c.OpenAI.ValidateConfig(); err != nil {
		return err
	}
	switch c.Storage.Backend {
	case "sqlite", "file":
	case "mongo":
		if c.Storage.MongoURI == "" {
			return fmt.Errorf("MONGO_URI is required for the mongo backend")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be sqlite, mongo or file, got %q", c.Storage.Backend)
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getEnvAsLogLevel(key string, defaultValue slog.Level) slog.Level {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(value)); err != nil {
		return defaultValue
	}
	return level
}
