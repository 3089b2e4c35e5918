package config

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
)

func envMap(values map[string]string) func(string) string {
	return func(key string) string {
		return values[key]
	}
}

func TestDefaultConfig(t *testing.T) {
	config := DefaultConfig()

	if config.Version != "1.0" {
		t.Errorf("Expected version 1.0, got %s", config.Version)
	}

	if config.API.Provider != ProviderOpenAI {
		t.Errorf("Expected provider openai, got %s", config.API.Provider)
	}

	if config.Chat.Model != "gpt-4o-mini" {
		t.Errorf("Expected model gpt-4o-mini, got %s", config.Chat.Model)
	}

	if config.Chat.Temperature != 0.7 {
		t.Errorf("Expected temperature 0.7, got %v", config.Chat.Temperature)
	}

	if config.Chat.HistoryWindow != 10 || config.Chat.RecentLimit != 10 || config.Chat.TitleLength != 50 {
		t.Errorf("Unexpected chat limits: %+v", config.Chat)
	}

	if config.Server.Port != 5000 {
		t.Errorf("Expected port 5000, got %d", config.Server.Port)
	}

	if config.Chat.SystemPrompt != DefaultSystemPrompt {
		t.Error("Expected default system prompt")
	}

	if err := NewValidator().Validate(config); err != nil {
		t.Errorf("Default config should validate: %v", err)
	}
}

func TestConfigValidation(t *testing.T) {
	validator := NewValidator()

	tests := []struct {
		name    string
		config  *Config
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  DefaultConfig(),
			wantErr: false,
		},
		{
			name: "invalid temperature",
			config: func() *Config {
				c := DefaultConfig()
				c.Chat.Temperature = 3.0
				return c
			}(),
			wantErr: true,
		},
		{
			name: "missing model",
			config: func() *Config {
				c := DefaultConfig()
				c.Chat.Model = ""
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unknown provider",
			config: func() *Config {
				c := DefaultConfig()
				c.API.Provider = "carrier-pigeon"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "openrouter provider",
			config: func() *Config {
				c := DefaultConfig()
				c.API.Provider = ProviderOpenRouter
				return c
			}(),
			wantErr: false,
		},
		{
			name: "port out of range",
			config: func() *Config {
				c := DefaultConfig()
				c.Server.Port = 70000
				return c
			}(),
			wantErr: true,
		},
		{
			name: "unknown storage backend",
			config: func() *Config {
				c := DefaultConfig()
				c.Storage.Backend = "redis"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "sqlite without path",
			config: func() *Config {
				c := DefaultConfig()
				c.Storage.Backend = BackendSQLite
				c.Storage.Path = ""
				return c
			}(),
			wantErr: true,
		},
		{
			name: "invalid log format",
			config: func() *Config {
				c := DefaultConfig()
				c.Observability.Logging.Format = "xml"
				return c
			}(),
			wantErr: true,
		},
		{
			name: "zero history window",
			config: func() *Config {
				c := DefaultConfig()
				c.Chat.HistoryWindow = 0
				return c
			}(),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validator.Validate(tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				var verr ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("Expected ValidationError, got %T", err)
				}
			}
		})
	}
}

func TestConfigLoaderPrecedence(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/etc/chatrelay/config.json", []byte(`{"chat":{"model":"system-model","temperature":0.2}}`), 0644)
	afero.WriteFile(fs, "/home/u/.config/chatrelay/config.json", []byte(`{"chat":{"model":"user-model"},"server":{"port":8080}}`), 0644)
	afero.WriteFile(fs, ".chatrelay/config.local.json", []byte(`{"chat":{"temperature":0}}`), 0644)

	loader := NewLoader(fs, ConfigPrecedence{
		SystemConfig:  "/etc/chatrelay/config.json",
		UserConfig:    "/home/u/.config/chatrelay/config.json",
		ProjectConfig: ".chatrelay/config.json",
		LocalConfig:   ".chatrelay/config.local.json",
	})

	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.Chat.Model != "user-model" {
		t.Errorf("Expected user-model, got %s", config.Chat.Model)
	}
	if config.Chat.Temperature != 0 {
		t.Errorf("Expected local temperature 0 to win, got %v", config.Chat.Temperature)
	}
	if config.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", config.Server.Port)
	}
	// Untouched keys keep their defaults
	if config.Chat.HistoryWindow != 10 {
		t.Errorf("Expected default history window, got %d", config.Chat.HistoryWindow)
	}
}

func TestConfigLoaderRejectsMalformedFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "config.json", []byte(`{"chat":`), 0644)

	_, err := NewLoader(fs, ConfigPrecedence{UserConfig: "config.json"}).Load()
	if err == nil {
		t.Fatal("Expected error for malformed config")
	}
	if !strings.Contains(err.Error(), "failed to parse JSON") {
		t.Errorf("Unexpected error: %v", err)
	}
}

func TestConfigSaveAndLoad(t *testing.T) {
	fs := afero.NewMemMapFs()
	loader := NewLoader(fs, ConfigPrecedence{UserConfig: "/cfg/config.json"})

	saved := DefaultConfig()
	saved.API.Provider = ProviderOpenRouter
	saved.API.Timeout = 10 * time.Second

	if err := loader.SaveFile(saved, "/cfg/config.json"); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	loaded, err := loader.Load()
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}

	if loaded.API.Provider != ProviderOpenRouter {
		t.Errorf("Expected provider openrouter, got %s", loaded.API.Provider)
	}
	if loaded.API.Timeout != 10*time.Second {
		t.Errorf("Expected timeout 10s, got %v", loaded.API.Timeout)
	}
}

func TestEnvironmentOverrides(t *testing.T) {
	loader := NewLoader(afero.NewMemMapFs(), ConfigPrecedence{
		EnvironmentPrefix: "TEST",
	}).WithEnv(envMap(map[string]string{
		"TEST_API_KEY":       "test-key-123",
		"TEST_MODEL":         "test-model",
		"TEST_SYSTEM_PROMPT": "Be brief.",
		"PORT":               "9090",
	}))

	config, err := loader.Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if config.API.APIKey != "test-key-123" {
		t.Errorf("Expected API key from environment, got %s", config.API.APIKey)
	}
	if config.Chat.Model != "test-model" {
		t.Errorf("Expected model from environment, got %s", config.Chat.Model)
	}
	if config.Chat.SystemPrompt != "Be brief." {
		t.Errorf("Expected system prompt from environment, got %s", config.Chat.SystemPrompt)
	}
	if config.Server.Port != 9090 {
		t.Errorf("Expected port from PORT, got %d", config.Server.Port)
	}
}

func TestEnvironmentProviderKeyFallback(t *testing.T) {
	tests := []struct {
		name     string
		env      map[string]string
		expected string
	}{
		{
			name:     "openai key",
			env:      map[string]string{"OPENAI_API_KEY": "sk-openai"},
			expected: "sk-openai",
		},
		{
			name:     "prefixed key wins",
			env:      map[string]string{"OPENAI_API_KEY": "sk-openai", "TEST_API_KEY": "sk-prefixed"},
			expected: "sk-prefixed",
		},
		{
			name:     "openrouter key for openrouter provider",
			env:      map[string]string{"TEST_PROVIDER": "openrouter", "OPENROUTER_API_KEY": "sk-or", "OPENAI_API_KEY": "sk-openai"},
			expected: "sk-or",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loader := NewLoader(afero.NewMemMapFs(), ConfigPrecedence{EnvironmentPrefix: "TEST"}).WithEnv(envMap(tt.env))
			config, err := loader.Load()
			if err != nil {
				t.Fatalf("Load() failed: %v", err)
			}
			if config.API.APIKey != tt.expected {
				t.Errorf("Expected %s, got %s", tt.expected, config.API.APIKey)
			}
		})
	}
}

func TestEnvironmentInvalidPort(t *testing.T) {
	loader := NewLoader(afero.NewMemMapFs(), ConfigPrecedence{EnvironmentPrefix: "TEST"}).
		WithEnv(envMap(map[string]string{"TEST_PORT": "http"}))

	if _, err := loader.Load(); err == nil {
		t.Error("Expected error for non-numeric port")
	}
}

func TestSystemPromptFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	afero.WriteFile(fs, "/prompts/pirate.txt", []byte("  Talk like a pirate.\n"), 0644)
	afero.WriteFile(fs, "config.json", []byte(`{"chat":{"system_prompt_file":"/prompts/pirate.txt"}}`), 0644)

	config, err := NewLoader(fs, ConfigPrecedence{UserConfig: "config.json"}).Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if config.Chat.SystemPrompt != "Talk like a pirate." {
		t.Errorf("Expected prompt from file, got %q", config.Chat.SystemPrompt)
	}

	afero.WriteFile(fs, "config.json", []byte(`{"chat":{"system_prompt_file":"/prompts/missing.txt"}}`), 0644)
	if _, err := NewLoader(fs, ConfigPrecedence{UserConfig: "config.json"}).Load(); err == nil {
		t.Error("Expected error for missing prompt file")
	}
}

func TestServerAddr(t *testing.T) {
	s := ServerConfig{Host: "127.0.0.1", Port: 5000}
	if s.Addr() != "127.0.0.1:5000" {
		t.Errorf("Unexpected addr %s", s.Addr())
	}
	s.Host = ""
	if s.Addr() != ":5000" {
		t.Errorf("Unexpected addr %s", s.Addr())
	}
}

func TestGetConfigPaths(t *testing.T) {
	paths := GetConfigPaths()
	if paths.EnvironmentPrefix != "CHATRELAY" {
		t.Errorf("Expected CHATRELAY prefix, got %s", paths.EnvironmentPrefix)
	}
	if !strings.HasSuffix(paths.UserConfig, "chatrelay/config.json") && !strings.HasSuffix(paths.UserConfig, `chatrelay\config.json`) {
		t.Errorf("Unexpected user config path %s", paths.UserConfig)
	}
}
