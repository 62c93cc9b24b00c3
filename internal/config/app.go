package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables read by LoadAppConfig.
const (
	EnvBackend   = "TAXEST_BACKEND"
	EnvDSN       = "TAXEST_DSN"
	EnvLogLevel  = "TAXEST_LOG_LEVEL"
	EnvLogFormat = "TAXEST_LOG_FORMAT"
)

// AppConfig holds process-level settings for the CLI
type AppConfig struct {
	Backend   string
	DSN       string
	LogLevel  string
	LogFormat string
}

// DefaultAppConfig is used for anything the environment leaves unset.
func DefaultAppConfig() AppConfig {
	return AppConfig{
		Backend:   "memory",
		LogLevel:  "warn",
		LogFormat: "text",
	}
}

// LoadAppConfig reads settings from the environment. When envFile is set it
// is loaded first with godotenv; a missing file is not an error, and values
// already in the environment win over the file.
func LoadAppConfig(envFile string) (AppConfig, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return AppConfig{}, fmt.Errorf("failed to load env file %s: %w", envFile, err)
		}
	}

	def := DefaultAppConfig()
	cfg := AppConfig{
		Backend:   strings.ToLower(getEnv(EnvBackend, def.Backend)),
		DSN:       getEnv(EnvDSN, def.DSN),
		LogLevel:  getEnv(EnvLogLevel, def.LogLevel),
		LogFormat: strings.ToLower(getEnv(EnvLogFormat, def.LogFormat)),
	}

	if cfg.Backend == "" {
		return AppConfig{}, fmt.Errorf("%s cannot be empty", EnvBackend)
	}
	if cfg.LogFormat != "text" && cfg.LogFormat != "json" {
		return AppConfig{}, fmt.Errorf("%s must be 'text' or 'json', got %q", EnvLogFormat, cfg.LogFormat)
	}
	return cfg, nil
}

func getEnv(key, defaultVal string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultVal
}
