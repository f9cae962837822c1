package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors Config for YAML serialization. Durations are
// written as strings so the generated file reads naturally.
type fileConfig struct {
	Connection fileConnection `yaml:"connection"`
	History    fileHistory    `yaml:"history"`
	Log        fileLog        `yaml:"log"`
}

type fileConnection struct {
	ConnectTimeout  string `yaml:"connect_timeout"`
	QueryTimeout    string `yaml:"query_timeout"`
	SSLMode         string `yaml:"sslmode"`
	PasswordCommand string `yaml:"password_command,omitempty"`
	SkipAuth        bool   `yaml:"skip_auth"`
}

type fileHistory struct {
	Enabled   bool   `yaml:"enabled"`
	Path      string `yaml:"path,omitempty"`
	Retention string `yaml:"retention"`
}

type fileLog struct {
	Level string `yaml:"level"`
	File  string `yaml:"file,omitempty"`
}

// WriteDefault writes a config file populated with the default values
// and returns the path it wrote. An existing file is left untouched
// unless force is set.
func WriteDefault(path string, force bool) (string, error) {
	if path == "" {
		path = DefaultConfigPath()
	}

	if !force {
		if _, err := os.Stat(path); err == nil {
			return path, fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return path, fmt.Errorf("failed to create config directory: %w", err)
	}

	file := fileConfig{
		Connection: fileConnection{
			ConnectTimeout: "2s",
			QueryTimeout:   "5s",
			SSLMode:        "prefer",
		},
		History: fileHistory{
			Enabled:   true,
			Retention: "720h",
		},
		Log: fileLog{
			Level: "info",
		},
	}

	data, err := yaml.Marshal(&file)
	if err != nil {
		return path, fmt.Errorf("failed to marshal config: %w", err)
	}

	header := []byte("# pgcheck configuration. The connection URL is usually supplied\n# via POSTGRES_URL or the --url flag rather than this file.\n")
	data = append(header, data...)

	if err := os.WriteFile(path, data, 0644); err != nil {
		return path, fmt.Errorf("failed to write config file: %w", err)
	}

	return path, nil
}
