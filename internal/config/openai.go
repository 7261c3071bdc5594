package config

import (
	"fmt"
	"time"
)

type OpenAIConfig struct {
	APIKey            string
	BaseURL           string
	Model             string
	MaxTokens         int
	Temperature       float64
	Timeout           time.Duration
	RequestsPerSecond float64
}

// LoadOpenAIConfig reads the OPENAI_* variables.
func LoadOpenAIConfig() OpenAIConfig {
	return OpenAIConfig{
		APIKey:            getEnv("OPENAI_API_KEY", ""),
		BaseURL:           getEnv("OPENAI_BASE_URL", ""),
		Model:             getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		MaxTokens:         getEnvAsInt("OPENAI_MAX_TOKENS", 1500),
		Temperature:       getEnvAsFloat("OPENAI_TEMPERATURE", 0.7),
		Timeout:           getEnvAsDuration("OPENAI_TIMEOUT", 60*time.Second),
		RequestsPerSecond: getEnvAsFloat("OPENAI_REQUESTS_PER_SECOND", 5),
	}
}

func (c *OpenAIConfig) ValidateConfig() error {
	if c.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}

	if c.MaxTokens <= 0 {
		return fmt.Errorf("OPENAI_MAX_TOKENS must be positive")
	}

	if c.Temperature < 0 || c.Temperature > 2 {
		return fmt.Errorf("OPENAI_TEMPERATURE must be between 0 and 2")
	}

	if c.RequestsPerSecond < 0 {
		return fmt.Errorf("OPENAI_REQUESTS_PER_SECOND cannot be negative")
	}

	return nil
}

// GetModelInfo is logged at startup.
func (c *OpenAIConfig) GetModelInfo() map[string]interface{} {
	return map[string]interface{}{
		"model":       c.Model,
		"max_tokens":  c.MaxTokens,
		"temperature": c.Temperature,
		"base_url":    c.BaseURL,
		"provider":    "OpenAI",
	}
}
