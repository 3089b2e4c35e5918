package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/afero"
)

// Loader handles loading and merging configurations from multiple sources
type Loader struct {
	fs         afero.Fs
	precedence ConfigPrecedence
	validator  *Validator
	getenv     func(string) string
}

// NewLoader creates a new configuration loader reading from fsys. A nil fsys
// means the host filesystem.
func NewLoader(fsys afero.Fs, precedence ConfigPrecedence) *Loader {
	if fsys == nil {
		fsys = afero.NewOsFs()
	}
	return &Loader{
		fs:         fsys,
		precedence: precedence,
		validator:  NewValidator(),
		getenv:     os.Getenv,
	}
}

// WithEnv replaces the environment lookup, mainly for tests.
func (l *Loader) WithEnv(getenv func(string) string) *Loader {
	l.getenv = getenv
	return l
}

// Load loads configuration from all sources and merges them
func (l *Loader) Load() (*Config, error) {
	config := DefaultConfig()

	sources := []struct {
		path   string
		source ConfigSource
	}{
		{l.precedence.SystemConfig, SourceSystem},
		{l.precedence.UserConfig, SourceUser},
		{l.precedence.ProjectConfig, SourceProject},
		{l.precedence.LocalConfig, SourceLocal},
	}

	for _, src := range sources {
		if src.path == "" {
			continue
		}

		// Later files only replace the keys they mention.
		if err := l.mergeFile(src.path, config); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("failed to load %s config from %s: %w", src.source, src.path, err)
		}
	}

	if l.precedence.EnvironmentPrefix != "" {
		if err := l.applyEnvironmentOverrides(config); err != nil {
			return nil, err
		}
	}

	if err := l.ResolveSystemPrompt(config); err != nil {
		return nil, err
	}

	if err := l.validator.Validate(config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// mergeFile decodes the JSON file at path on top of config.
func (l *Loader) mergeFile(path string, config *Config) error {
	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return err
	}

	if err := json.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse JSON: %w", err)
	}
	return nil
}

// SaveFile saves configuration to a file
func (l *Loader) SaveFile(config *Config, path string) error {
	if err := l.validator.Validate(config); err != nil {
		return fmt.Errorf("configuration validation failed: %w", err)
	}

	if err := l.fs.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := afero.WriteFile(l.fs, path, data, 0644); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}

	return nil
}

// ResolveSystemPrompt loads chat.system_prompt_file, if set, into
// chat.system_prompt.
func (l *Loader) ResolveSystemPrompt(config *Config) error {
	path := config.Chat.SystemPromptFile
	if path == "" {
		return nil
	}

	data, err := afero.ReadFile(l.fs, path)
	if err != nil {
		return fmt.Errorf("failed to read system prompt file: %w", err)
	}

	prompt := strings.TrimSpace(string(data))
	if prompt == "" {
		return fmt.Errorf("system prompt file %s is empty", path)
	}
	config.Chat.SystemPrompt = prompt
	return nil
}

// applyEnvironmentOverrides applies environment variable overrides to config
func (l *Loader) applyEnvironmentOverrides(config *Config) error {
	prefix := l.precedence.EnvironmentPrefix

	if provider := l.getenv(prefix + "_PROVIDER"); provider != "" {
		config.API.Provider = provider
	}

	if apiKey := l.getenv(prefix + "_API_KEY"); apiKey != "" {
		config.API.APIKey = apiKey
	}
	// Fall back to the provider's conventional variable
	if config.API.APIKey == "" {
		switch config.API.Provider {
		case ProviderOpenAI:
			config.API.APIKey = l.getenv("OPENAI_API_KEY")
		case ProviderOpenRouter:
			config.API.APIKey = l.getenv("OPENROUTER_API_KEY")
		}
	}

	if model := l.getenv(prefix + "_MODEL"); model != "" {
		config.Chat.Model = model
	}

	if baseURL := l.getenv(prefix + "_BASE_URL"); baseURL != "" {
		config.API.BaseURL = baseURL
	}

	if prompt := l.getenv(prefix + "_SYSTEM_PROMPT"); prompt != "" {
		config.Chat.SystemPrompt = prompt
		config.Chat.SystemPromptFile = ""
	}

	port := l.getenv(prefix + "_PORT")
	if port == "" {
		port = l.getenv("PORT")
	}
	if port != "" {
		n, err := strconv.Atoi(port)
		if err != nil {
			return fmt.Errorf("invalid port %q in environment: %w", port, err)
		}
		config.Server.Port = n
	}

	if backend := l.getenv(prefix + "_STORAGE"); backend != "" {
		config.Storage.Backend = backend
	}

	return nil
}
