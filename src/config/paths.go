package config

import (
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

// StoragePaths contains paths for application storage
type StoragePaths struct {
	DatabasePath string
}

// GetDefaultStoragePaths returns default storage paths using XDG base directories
func GetDefaultStoragePaths() StoragePaths {
	// Conversations are runtime state, not user data.
	return StoragePaths{
		DatabasePath: filepath.Join(xdg.StateHome, "chatrelay", "conversations.db"),
	}
}

// GetConfigPaths returns the configuration file paths to check
func GetConfigPaths() ConfigPrecedence {
	userConfigPath := filepath.Join(xdg.ConfigHome, "chatrelay", "config.json")

	// System config path varies by OS
	systemConfigPath := "/etc/chatrelay/config.json"
	if runtime.GOOS == "windows" {
		systemConfigPath = filepath.Join(os.Getenv("PROGRAMDATA"), "chatrelay", "config.json")
	}

	return ConfigPrecedence{
		SystemConfig:      systemConfigPath,
		UserConfig:        userConfigPath,
		ProjectConfig:     filepath.Join(".chatrelay", "config.json"),
		LocalConfig:       filepath.Join(".chatrelay", "config.local.json"),
		EnvironmentPrefix: "CHATRELAY",
	}
}
