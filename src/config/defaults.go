package config

import (
	"time"
)

// DefaultSystemPrompt is sent ahead of every conversation unless overridden.
const DefaultSystemPrompt = "You are a helpful AI assistant like ChatGPT. Answer any question clearly, accurately, and conversationally. Use code blocks for code examples."

// DefaultConfig returns a default configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Version: "1.0",
		API: APIConfig{
			Provider: ProviderOpenAI,
			Timeout:  60 * time.Second,
			Retry: RetryConfig{
				MaxRetries:   0,
				InitialDelay: 1 * time.Second,
			},
		},

		Chat: ChatConfig{
			Model:         "gpt-4o-mini",
			Temperature:   0.7,
			SystemPrompt:  DefaultSystemPrompt,
			HistoryWindow: 10,
			RecentLimit:   10,
			TitleLength:   50,
		},

		Server: ServerConfig{
			Host:            "",
			Port:            5000,
			CORSOrigin:      "*",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    120 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},

		Storage: StorageConfig{
			Backend:          BackendMemory,
			Path:             GetDefaultStoragePaths().DatabasePath,
			MaxConversations: 1000,
		},

		Observability: ObservabilityConfig{
			Logging: LoggingConfig{
				Level:  "info",
				Format: "text",
			},
		},
	}
}
