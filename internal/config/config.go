// Package config loads pgcheck configuration from its YAML config file,
// environment variables, and optional .env files.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the pgcheck configuration.
type Config struct {
	// URL is the connection URL under test. Usually supplied via the
	// POSTGRES_URL environment variable or the --url flag rather than
	// the config file.
	URL string `mapstructure:"url"`

	Connection ConnectionConfig `mapstructure:"connection"`
	History    HistoryConfig    `mapstructure:"history"`
	Log        LogConfig        `mapstructure:"log"`
}

// ConnectionConfig holds probe behavior configuration.
type ConnectionConfig struct {
	ConnectTimeout  time.Duration `mapstructure:"connect_timeout"`
	QueryTimeout    time.Duration `mapstructure:"query_timeout"`
	SSLMode         string        `mapstructure:"sslmode"`
	PasswordCommand string        `mapstructure:"password_command"`
	SkipAuth        bool          `mapstructure:"skip_auth"`
}

// HistoryConfig holds check history storage configuration.
type HistoryConfig struct {
	Enabled   bool          `mapstructure:"enabled"`
	Path      string        `mapstructure:"path"` // Auto-detected if empty
	Retention time.Duration `mapstructure:"retention"`
}

// LogConfig holds log output configuration.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"` // Auto-detected if empty
}

// Load loads configuration from the default locations.
func Load() (*Config, error) {
	return LoadFromPath("")
}

// LoadFromPath loads configuration from a specific path.
// If configPath is empty, it searches default locations.
func LoadFromPath(configPath string) (*Config, error) {
	v := viper.New()

	// Environment variable support
	v.AutomaticEnv()
	v.SetEnvPrefix("PGCHECK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// POSTGRES_URL is the conventional name; accept it alongside
	// PGCHECK_URL.
	_ = v.BindEnv("url", "PGCHECK_URL", "POSTGRES_URL")

	// Apply defaults
	applyDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		// Platform-specific config directories
		if configDir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(configDir, "pgcheck"))
		}
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", "pgcheck"))
		}
		v.AddConfigPath(".")
	}

	// Try to read config file
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, use defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	// Expand paths
	cfg.History.Path = expandPath(cfg.History.Path)
	cfg.Log.File = expandPath(cfg.Log.File)

	// Auto-detect the history path if not set
	if cfg.History.Path == "" {
		cfg.History.Path = DefaultHistoryPath()
	}

	// Validate
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyDefaults sets default configuration values.
func applyDefaults(v *viper.Viper) {
	v.SetDefault("url", "")

	// Connection defaults
	v.SetDefault("connection.connect_timeout", 2*time.Second)
	v.SetDefault("connection.query_timeout", 5*time.Second)
	v.SetDefault("connection.sslmode", "prefer")
	v.SetDefault("connection.password_command", "")
	v.SetDefault("connection.skip_auth", false)

	// History defaults
	v.SetDefault("history.enabled", true)
	v.SetDefault("history.path", "")
	v.SetDefault("history.retention", 720*time.Hour) // 30 days

	// Log defaults
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")
}

// Validate checks that the configuration has valid values.
func (c *Config) Validate() error {
	if c.Connection.ConnectTimeout <= 0 {
		return fmt.Errorf("connection.connect_timeout must be positive")
	}
	if c.Connection.QueryTimeout <= 0 {
		return fmt.Errorf("connection.query_timeout must be positive")
	}

	switch c.Connection.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full", "":
		// Valid
	default:
		return fmt.Errorf("connection.sslmode must be one of: disable, allow, prefer, require, verify-ca, verify-full")
	}

	if c.History.Retention < 0 {
		return fmt.Errorf("history.retention must not be negative")
	}

	switch c.Log.Level {
	case "debug", "info", "warn", "error":
		// Valid
	default:
		return fmt.Errorf("log.level must be one of: debug, info, warn, error")
	}

	return nil
}

// LoadEnvFile loads KEY=VALUE pairs from path into the process
// environment. Variables already set keep their values. A missing file
// is only an error when the path was explicitly requested.
func LoadEnvFile(path string, explicit bool) error {
	if err := godotenv.Load(path); err != nil {
		if os.IsNotExist(err) && !explicit {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

// DefaultConfigDir returns the platform-appropriate configuration
// directory.
func DefaultConfigDir() string {
	if configDir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(configDir, "pgcheck")
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, ".config", "pgcheck")
	}
	return "."
}

// DefaultConfigPath returns the default config file path.
func DefaultConfigPath() string {
	return filepath.Join(DefaultConfigDir(), "config.yaml")
}

// DefaultHistoryPath returns the default check history database path.
func DefaultHistoryPath() string {
	return filepath.Join(DefaultConfigDir(), "history.db")
}

// expandPath expands ~ to the user's home directory.
func expandPath(path string) string {
	if path == "" {
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}
