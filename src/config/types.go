package config

import (
	"net"
	"strconv"
	"time"
)

// Config represents the complete configuration for chatrelay
type Config struct {
	// Version of the configuration format
	Version string `json:"version"`

	// API configuration for the upstream completion provider
	API APIConfig `json:"api"`

	// Chat configuration
	Chat ChatConfig `json:"chat"`

	// HTTP server configuration
	Server ServerConfig `json:"server"`

	// Conversation storage configuration
	Storage StorageConfig `json:"storage"`

	// Observability configuration
	Observability ObservabilityConfig `json:"observability,omitempty"`
}

// APIConfig holds API-related configuration
type APIConfig struct {
	// Provider specifies the AI provider ("openai" or "openrouter")
	Provider string `json:"provider" validate:"provider"`

	// BaseURL overrides the default API endpoint
	BaseURL string `json:"base_url,omitempty" validate:"omitempty,url"`

	// APIKey for authentication (can be omitted if using env vars)
	APIKey string `json:"api_key,omitempty"`

	// Timeout for a single provider request
	Timeout time.Duration `json:"timeout,omitempty" validate:"min=0"`

	// Retry configuration
	Retry RetryConfig `json:"retry"`
}

// RetryConfig holds retry settings for provider calls
type RetryConfig struct {
	// MaxRetries is the number of extra attempts after the first; 0 disables retries
	MaxRetries   int           `json:"max_retries" validate:"min=0,max=10"`
	InitialDelay time.Duration `json:"initial_delay" validate:"min=0"`
}

// ChatConfig controls how conversations are sent to the provider
type ChatConfig struct {
	Model       string  `json:"model" validate:"required"`
	Temperature float64 `json:"temperature" validate:"min=0,max=2"`
	MaxTokens   int     `json:"max_tokens,omitempty" validate:"min=0"`

	// SystemPrompt is prepended to every provider request
	SystemPrompt string `json:"system_prompt"`

	// SystemPromptFile, when set, replaces SystemPrompt with the file contents
	SystemPromptFile string `json:"system_prompt_file,omitempty"`

	// HistoryWindow is the number of trailing messages sent as context, including
	// the message being answered
	HistoryWindow int `json:"history_window" validate:"min=1"`

	// RecentLimit is the number of conversations returned in summaries
	RecentLimit int `json:"recent_limit" validate:"min=0"`

	// TitleLength is the maximum title length in characters
	TitleLength int `json:"title_length" validate:"min=1"`
}

// ServerConfig holds HTTP listener settings
type ServerConfig struct {
	Host            string        `json:"host"`
	Port            int           `json:"port" validate:"min=1,max=65535"`
	CORSOrigin      string        `json:"cors_origin"`
	ReadTimeout     time.Duration `json:"read_timeout" validate:"min=0"`
	WriteTimeout    time.Duration `json:"write_timeout" validate:"min=0"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout" validate:"min=0"`
}

// Addr returns the host:port listen address.
func (s ServerConfig) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}

// StorageConfig selects the conversation store
type StorageConfig struct {
	// Backend is "memory" or "sqlite"
	Backend string `json:"backend" validate:"storage_backend"`

	// Path to the sqlite database
	Path string `json:"path,omitempty"`

	// MaxConversations caps the store; 0 means unbounded
	MaxConversations int `json:"max_conversations" validate:"min=0"`
}

// ObservabilityConfig holds observability configuration
type ObservabilityConfig struct {
	// Logging configuration
	Logging LoggingConfig `json:"logging,omitempty"`
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Level is the minimum log level (debug, info, warn, error)
	Level string `json:"level,omitempty" validate:"omitempty,oneof=debug info warn warning error"`

	// Format is the output format (text, json)
	Format string `json:"format,omitempty" validate:"log_format"`
}

// ConfigPrecedence defines the order of configuration loading
type ConfigPrecedence struct {
	// SystemConfig path
	SystemConfig string

	// UserConfig path
	UserConfig string

	// ProjectConfig path
	ProjectConfig string

	// LocalConfig path
	LocalConfig string

	// EnvironmentPrefix for env var overrides
	EnvironmentPrefix string
}

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// ConfigSource indicates where a configuration value came from
type ConfigSource string

const (
	SourceDefault     ConfigSource = "default"
	SourceSystem      ConfigSource = "system"
	SourceUser        ConfigSource = "user"
	SourceProject     ConfigSource = "project"
	SourceLocal       ConfigSource = "local"
	SourceEnvironment ConfigSource = "environment"
	SourceCLI         ConfigSource = "cli"
)

// Provider names
const (
	ProviderOpenAI     = "openai"
	ProviderOpenRouter = "openrouter"
)

// Storage backends
const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)
