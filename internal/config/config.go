package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"gamebot/internal/logging"
)

// Config holds all application configuration
type Config struct {
	Steam   SteamConfig    `mapstructure:"steam"`
	Cache   CacheConfig    `mapstructure:"cache"`
	Enrich  EnrichConfig   `mapstructure:"enrich"`
	Logging logging.Config `mapstructure:"logging"`
}

// SteamConfig holds Steam API credentials and client tuning
type SteamConfig struct {
	APIKey          string        `mapstructure:"api_key"`
	UserID          string        `mapstructure:"user_id"`
	Timeout         time.Duration `mapstructure:"timeout"`          // Per-request timeout
	RequestInterval time.Duration `mapstructure:"request_interval"` // Minimum spacing between catalog requests
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"` // Base backoff (multiplied by attempt)
}

// CacheConfig holds cache store and refresh tuning
type CacheConfig struct {
	File       string        `mapstructure:"file"`       // Path to the cache database
	Expiration time.Duration `mapstructure:"expiration"` // Staleness threshold
	ChunkSize  int           `mapstructure:"chunk_size"` // Titles fetched between persistence checkpoints
	Workers    int           `mapstructure:"workers"`    // Fetch pool width
}

// EnrichConfig holds the optional text-enrichment service configuration
type EnrichConfig struct {
	APIKey  string `mapstructure:"api_key"`
	BaseURL string `mapstructure:"base_url"`
	Model   string `mapstructure:"model"`
}

// IsConfigured reports whether the Steam credentials are present
func (c *Config) IsConfigured() bool {
	return c.Steam.APIKey != "" && c.Steam.UserID != ""
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Steam: SteamConfig{
			Timeout:         10 * time.Second,
			RequestInterval: time.Second,
			MaxRetries:      3,
			RetryDelay:      2 * time.Second,
		},
		Cache: CacheConfig{
			File:       defaultCachePath(),
			Expiration: 24 * time.Hour,
			ChunkSize:  15,
			Workers:    4,
		},
		Enrich: EnrichConfig{
			BaseURL: "https://api.openai.com",
			Model:   "gpt-4o-mini",
		},
		Logging: logging.Config{
			File:  defaultLogPath(),
			Level: "INFO",
		},
	}
}

// defaultCachePath returns the default cache database path for the current OS
func defaultCachePath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "gamebot", "games.db")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "gamebot", "games.db")
	}
}

// defaultLogPath returns the default log file path for the current OS
func defaultLogPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "gamebot", "gamebot.log")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".local", "share", "gamebot", "gamebot.log")
	}
}

// defaultConfigPath returns the default config directory for the current OS
func defaultConfigPath() string {
	switch runtime.GOOS {
	case "windows":
		return filepath.Join(os.Getenv("APPDATA"), "gamebot")
	default:
		home, _ := os.UserHomeDir()
		return filepath.Join(home, ".config", "gamebot")
	}
}

// Load loads configuration from file, environment, and a local .env file
func Load() (*Config, error) {
	// Credentials may live in a .env next to the binary; missing file is fine
	_ = godotenv.Load()

	cfg := Default()

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(defaultConfigPath())
	viper.AddConfigPath(".")

	viper.SetEnvPrefix("GAMEBOT")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, use defaults
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error parsing config: %w", err)
	}

	// Plain environment names take precedence for credentials, matching
	// the .env conventions this tool has always used
	if v := os.Getenv("STEAM_API_KEY"); v != "" {
		cfg.Steam.APIKey = v
	}
	if v := os.Getenv("STEAM_ID"); v != "" {
		cfg.Steam.UserID = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.Enrich.APIKey = v
	}

	return cfg, nil
}
