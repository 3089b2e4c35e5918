package orclient

import (
	"log/slog"
	"time"
)

// Config holds configuration for the OpenRouter client
type Config struct {
	APIKey     string        // API key sent as a bearer token
	BaseURL    string        // Base URL of the OpenAI-compatible API
	Logger     *slog.Logger  // Logger for debugging
	Timeout    time.Duration // HTTP timeout
	RetryCount int           // Extra attempts after the first one; 0 disables retries
	RetryDelay time.Duration // Base delay between retries
	SiteURL    string        // Site URL for ranking
	SiteName   string        // Site name for ranking
	ModelTTL   time.Duration // How long model listings stay cached
}
