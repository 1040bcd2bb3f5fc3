package config

import (
	"sync"
	"time"
)

var (
	llmOnce   sync.Once
	llmConfig *LLMConfig
)

// LLMConfig selects and configures the text-completion backend.
type LLMConfig struct {
	// Provider is one of "ollama", "anthropic" or "vertex".
	Provider    string
	Model       string
	Endpoint    string
	APIKey      string
	ProjectID   string
	Region      string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	PoolSize    int
}

func GetLLMConfig() *LLMConfig {
	llmOnce.Do(func() {
		loadEnv()
		llmConfig = &LLMConfig{
			Provider:    getEnv("LLM_PROVIDER", "ollama"),
			Model:       getEnv("LLM_MODEL", ""),
			Endpoint:    getEnv("OLLAMA_ENDPOINT", "http://localhost:11434"),
			APIKey:      getEnv("ANTHROPIC_API_KEY", ""),
			ProjectID:   getEnv("GCP_PROJECT_ID", ""),
			Region:      getEnv("VERTEX_AI_REGION", "us-central1"),
			MaxTokens:   getEnvInt("LLM_MAX_TOKENS", 2048),
			Temperature: 0,
			Timeout:     getEnvDuration("LLM_TIMEOUT", 300*time.Second),
			PoolSize:    getEnvInt("LLM_POOL_SIZE", 4),
		}
	})
	return llmConfig
}
